// Package witness canonicalizes proof-of-coverage witness receipts into
// deduplicated hotspots→hotspots edges.
//
// Within a single batch, receipts are walked in descending-time order,
// keeping the first occurrence of each derived edge key. Correctness
// across batches follows from two things holding elsewhere in the
// pipeline: the source query orders the whole window by time
// descending, and the sink ingests witness edges with duplicate policy
// "ignore" — so an earlier (therefore newer) batch's write is never
// clobbered by a later (therefore older) batch's duplicate of the same
// edge.
package witness

import "github.com/evandiewald/helium-arango-etl/pkg/canon"

// Receipt is one witness observation pulled out of a poc_receipts_v1
// transaction's fields.path[0].witnesses array, alongside the
// challengee it witnessed and the transaction's time, already in
// descending-time order within the batch.
type Receipt struct {
	Challengee string
	Gateway    string
	Signal     float64
	SNR        float64
	Frequency  float64
	Datarate   string
	IsValid    bool
	Time       int64
}

// Edge is the deduplicated hotspots→hotspots document derived from a
// Receipt.
type Edge struct {
	Key       string
	Challengee string
	Gateway    string
	Signal     float64
	SNR        float64
	Frequency  float64
	Datarate   string
	IsValid    bool
	Time       int64
}

// Key derives the content-addressed edge key for a witness observation
// (I2): md5(challengee ∥ witness gateway).
func Key(challengee, gateway string) string {
	return canon.KeyString(challengee + gateway)
}

// Canonicalize walks receipts (already descending by time) once,
// keeping the first — i.e. most recent — occurrence of each derived
// key.
func Canonicalize(receipts []Receipt) []Edge {
	seen := make(map[string]struct{}, len(receipts))
	edges := make([]Edge, 0, len(receipts))

	for _, r := range receipts {
		key := Key(r.Challengee, r.Gateway)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		edges = append(edges, Edge{
			Key:        key,
			Challengee: r.Challengee,
			Gateway:    r.Gateway,
			Signal:     r.Signal,
			SNR:        r.SNR,
			Frequency:  r.Frequency,
			Datarate:   r.Datarate,
			IsValid:    r.IsValid,
			Time:       r.Time,
		})
	}

	return edges
}
