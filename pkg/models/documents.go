// Package models defines the document and edge shapes the ETL daemon
// reads from the relational source and writes to the graph-oriented sink.
package models

// GeoPoint is a GeoJSON Point, used for a hotspot's geo_location field.
// Coordinates is nil when the H3 cell could not be decoded.
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates []float64  `json:"coordinates"`
}

// Account is a row from the source's account_inventory table, keyed by
// wallet address.
type Account struct {
	Key           string `json:"_key"`
	Address       string `json:"address"`
	Balance       int64  `json:"balance"`
	DCBalance     int64  `json:"dc_balance"`
	SecurityBalance int64 `json:"security_balance"`
	StakedBalance int64  `json:"staked_balance"`
	Nonce         int64  `json:"nonce"`
	FirstBlock    int64  `json:"first_block"`
	LastBlock     int64  `json:"last_block"`
}

// Hotspot is a row from gateway_inventory left-joined with gateway_status,
// enriched with a derived geo_location and null-initialized analytics
// fields that Graph Analytics fills in later.
type Hotspot struct {
	Key         string   `json:"_key"`
	Address     string   `json:"address"`
	Owner       string   `json:"owner"`
	LocationHex string   `json:"location_hex"`
	GeoLocation GeoPoint `json:"geo_location"`
	CityKey     *string  `json:"city_key"`
	Name        string   `json:"name"`
	Online      *bool    `json:"online"`
	RewardScale float64  `json:"reward_scale"`
	Elevation   int64    `json:"elevation"`
	Gain        int64    `json:"gain"`
	Mode        string   `json:"mode"`
	FirstBlock  int64    `json:"first_block"`
	LastBlock   int64    `json:"last_block"`

	// Analytics fields, null-initialized at inventory sync, populated by
	// Graph Analytics (§4.6). Pointers so "not yet computed" is distinct
	// from zero.
	Rewards5d                 *int64   `json:"rewards_5d"`
	PageRank                  *float64 `json:"pagerank"`
	PageRankNormalized        *float64 `json:"pagerank_n"`
	BetweennessCentrality     *float64 `json:"betweenness_centrality"`
	BetweennessCentralityNorm *float64 `json:"betweenness_centrality_n"`
}

// PaymentEdge is an accounts→accounts edge keyed by the content hash of a
// payment_v1/payment_v2 transaction's fields (I1, I3).
type PaymentEdge struct {
	Key    string `json:"_key"`
	From   string `json:"_from"`
	To     string `json:"_to"`
	Amount int64  `json:"amount"`
	Time   int64  `json:"time"`
}

// WitnessEdge is a hotspots→hotspots edge keyed by
// md5(challengee + witness gateway) (I2).
type WitnessEdge struct {
	Key        string  `json:"_key"`
	From       string  `json:"_from"`
	To         string  `json:"_to"`
	Signal     float64 `json:"signal"`
	SNR        float64 `json:"snr"`
	Frequency  float64 `json:"frequency"`
	Datarate   string  `json:"datarate"`
	IsValid    bool    `json:"is_valid"`
	Time       int64   `json:"time"`
}

// DailyBalance is one calendar day's closing balance snapshot inside a
// DailyBalanceDoc's daily_balances array.
type DailyBalance struct {
	Date          string `json:"date"`
	Balance       int64  `json:"balance"`
	DCBalance     int64  `json:"dc_balance"`
	StakedBalance int64  `json:"staked_balance"`
}

// DailyBalanceDoc aggregates one account's daily balance snapshots for a
// time window; repeated ingestion appends, it never replaces (see
// internal/sink's UpsertDailyBalances).
type DailyBalanceDoc struct {
	Key           string         `json:"_key"`
	DailyBalances []DailyBalance `json:"daily_balances"`
}

// City is a distinct city_id drawn from the locations table.
type City struct {
	Key    string `json:"_key"`
	CityID string `json:"city_id"`
}

// CityFeatures is the per-hotspot centrality update Graph Analytics
// upserts back into the hotspots collection for one city.
type CityFeatures struct {
	Key                       string  `json:"_key"`
	PageRank                  float64 `json:"pagerank"`
	PageRankNormalized        float64 `json:"pagerank_n"`
	BetweennessCentrality     float64 `json:"betweenness_centrality"`
	BetweennessCentralityNorm float64 `json:"betweenness_centrality_n"`
}

// Checkpoint is the Sync Controller's persisted resume state.
type Checkpoint struct {
	ServiceName    string `json:"service_name"`
	Phase          string `json:"phase"`
	SyncHeight     int64  `json:"sync_height"`
	CurrentHeight  int64  `json:"current_height"`
	CurrentTime    int64  `json:"current_time"`
	UpdatedAtUnix  int64  `json:"updated_at_unix"`
}
