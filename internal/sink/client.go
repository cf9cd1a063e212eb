// Package sink implements the document/graph store client the ETL
// daemon writes its projection to. No Go driver for the target store
// (ArangoDB) was found anywhere in the reference corpus, so this talks
// directly to its documented HTTP REST API with net/http and
// encoding/json rather than fabricating a dependency — see DESIGN.md.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

// Client talks to the target document/graph store over HTTP.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   zerolog.Logger
}

// New constructs a Client. Reachability is not verified here (the store
// may legitimately be warming up); the first real call surfaces
// ConnectTransient/ConnectFatal as appropriate.
func New(baseURL, username, password string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 2 * time.Minute},
		logger:   logger.With().Str("component", "sink").Logger(),
	}
}

// UpsertResult reports how a bulk_upsert call was applied.
type UpsertResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// BulkUpsert imports docs into collection via the bulk import endpoint,
// with waitForSync=true so the caller's progress counters reflect
// durable writes, per §4.3.
func (c *Client) BulkUpsert(ctx context.Context, collection string, docs []map[string]any, onDuplicate string) (UpsertResult, error) {
	if len(docs) == 0 {
		return UpsertResult{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return UpsertResult{}, errs.New(errs.KindUpsert, "sink.BulkUpsert", err)
		}
	}

	url := fmt.Sprintf("%s/_api/import?collection=%s&type=documents&onDuplicate=%s&waitForSync=true&complete=false",
		c.baseURL, collection, onDuplicate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return UpsertResult{}, errs.New(errs.KindUpsert, "sink.BulkUpsert", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return UpsertResult{}, errs.New(errs.KindConnectTransient, "sink.BulkUpsert", err)
	}
	defer resp.Body.Close()

	var result UpsertResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return UpsertResult{}, errs.New(errs.KindUpsert, "sink.BulkUpsert", err)
	}
	if resp.StatusCode >= 500 {
		return result, errs.New(errs.KindConnectTransient, "sink.BulkUpsert", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return result, errs.New(errs.KindUpsert, "sink.BulkUpsert", fmt.Errorf("status %d", resp.StatusCode))
	}

	c.logger.Debug().
		Str("collection", collection).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("errors", result.Errors).
		Msg("bulk upsert applied")

	return result, nil
}

// cursorRequest/cursorResponse mirror ArangoDB's /_api/cursor AQL
// execution contract: bind variables, never interpolated query text,
// addressing the f-string-injection design note.
type cursorRequest struct {
	Query     string         `json:"query"`
	BindVars  map[string]any `json:"bindVars,omitempty"`
	BatchSize int            `json:"batchSize,omitempty"`
}

type cursorResponse struct {
	Result []json.RawMessage `json:"result"`
	HasMore bool             `json:"hasMore"`
	ID      string           `json:"id"`
	Error   bool             `json:"error"`
	ErrorMessage string      `json:"errorMessage"`
}

// Query executes an AQL statement with bound variables and returns every
// result row as raw JSON, paging through /_api/cursor's hasMore/id
// continuation protocol.
func (c *Client) Query(ctx context.Context, aql string, bindVars map[string]any) ([]json.RawMessage, error) {
	body, err := json.Marshal(cursorRequest{Query: aql, BindVars: bindVars, BatchSize: 1000})
	if err != nil {
		return nil, errs.New(errs.KindQuery, "sink.Query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/_api/cursor", bytes.NewReader(body))
	if err != nil {
		return nil, errs.New(errs.KindQuery, "sink.Query", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.New(errs.KindConnectTransient, "sink.Query", err)
	}
	defer resp.Body.Close()

	var cr cursorResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, errs.New(errs.KindQuery, "sink.Query", err)
	}
	if cr.Error {
		return nil, errs.New(errs.KindQuery, "sink.Query", fmt.Errorf("%s", cr.ErrorMessage))
	}

	results := append([]json.RawMessage{}, cr.Result...)
	for cr.HasMore {
		more, err := c.nextCursorBatch(ctx, cr.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, more.Result...)
		cr = more
	}

	return results, nil
}

func (c *Client) nextCursorBatch(ctx context.Context, id string) (cursorResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/_api/cursor/"+id, nil)
	if err != nil {
		return cursorResponse{}, errs.New(errs.KindQuery, "sink.Query", err)
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return cursorResponse{}, errs.New(errs.KindConnectTransient, "sink.Query", err)
	}
	defer resp.Body.Close()

	var cr cursorResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return cursorResponse{}, errs.New(errs.KindQuery, "sink.Query", err)
	}
	return cr, nil
}

// DeleteWhere removes every document in collection matching an AQL
// field comparison, e.g. DeleteWhere(ctx, "witnesses", "time", "<", cutoff).
func (c *Client) DeleteWhere(ctx context.Context, collection, field, op string, value any) error {
	aql := fmt.Sprintf(`FOR d IN %s FILTER d.%s %s @value REMOVE d IN %s OPTIONS { waitForSync: true }`,
		collection, field, op, collection)
	_, err := c.Query(ctx, aql, map[string]any{"value": value})
	if err != nil {
		return errs.New(errs.KindUpsert, "sink.DeleteWhere", err)
	}
	return nil
}

// EnsureGeoIndex creates a GeoJSON index on field in collection (I5).
func (c *Client) EnsureGeoIndex(ctx context.Context, collection, field string) error {
	body, err := json.Marshal(map[string]any{
		"type":    "geo",
		"fields":  []string{field},
		"geoJson": true,
	})
	if err != nil {
		return errs.New(errs.KindConfig, "sink.EnsureGeoIndex", err)
	}

	url := fmt.Sprintf("%s/_api/index?collection=%s", c.baseURL, collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errs.New(errs.KindConfig, "sink.EnsureGeoIndex", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.New(errs.KindConnectTransient, "sink.EnsureGeoIndex", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		return errs.New(errs.KindConfig, "sink.EnsureGeoIndex", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

// Healthy reports whether the target store answers its version endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/_api/version", nil)
	if err != nil {
		return false
	}
	c.setAuth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
