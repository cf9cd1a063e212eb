package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/evandiewald/helium-arango-etl/pkg/errs"
)

// collectionSpec describes one collection the daemon bootstraps at
// startup, mirroring the original ETL's init_collection/init_edges.
type collectionSpec struct {
	name    string
	isEdge  bool
	geoField string // non-empty to also create a geo index
}

// Schema is every collection the sink must exist before the controller
// starts its first inventory sync.
var Schema = []collectionSpec{
	{name: "accounts"},
	{name: "hotspots", geoField: "geo_location"},
	{name: "cities"},
	{name: "balances"},
	{name: "payments", isEdge: true},
	{name: "witnesses", isEdge: true},
}

// EnsureSchema creates every collection in Schema that doesn't already
// exist (idempotent — a 409 conflict from an existing collection is not
// an error) and the geo index hotspots.geo_location requires (I5).
func (c *Client) EnsureSchema(ctx context.Context) error {
	for _, spec := range Schema {
		if err := c.ensureCollection(ctx, spec); err != nil {
			return err
		}
		if spec.geoField != "" {
			if err := c.EnsureGeoIndex(ctx, spec.name, spec.geoField); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, spec collectionSpec) error {
	collType := 2 // document
	if spec.isEdge {
		collType = 3 // edge
	}

	body, err := json.Marshal(map[string]any{
		"name": spec.name,
		"type": collType,
	})
	if err != nil {
		return errs.New(errs.KindConfig, "sink.ensureCollection", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/_api/collection", bytes.NewReader(body))
	if err != nil {
		return errs.New(errs.KindConfig, "sink.ensureCollection", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.New(errs.KindConnectTransient, "sink.ensureCollection", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		return errs.New(errs.KindConfig, "sink.ensureCollection", fmt.Errorf("collection %s: status %d", spec.name, resp.StatusCode))
	}
	return nil
}
