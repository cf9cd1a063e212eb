// Package analytics computes city-partitioned witness-graph centrality:
// PageRank and betweenness centrality over each city's hotspot witness
// subgraph, weighted by great-circle distance between witnessing
// hotspots.
package analytics

import (
	"context"
	"encoding/json"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/evandiewald/helium-arango-etl/internal/sink"
	"github.com/evandiewald/helium-arango-etl/pkg/errs"
	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

// Config drives RunCityAnalytics.
type Config struct {
	SinkBaseURL  string
	SinkUsername string
	SinkPassword string
	Cities       []string // city keys to process
	MinCitySize  int      // skip a city with fewer hotspots than this (I6)
	Workers      int      // 0 means len(Cities), capped at 16
	Logger       zerolog.Logger
}

type cityEdge struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	DistanceM float64 `json:"distance_m"`
}

// RunCityAnalytics shards Config.Cities across an errgroup of workers,
// each with its own sink connection (§4.6: "independent target
// connections per worker; city shards are disjoint"), and returns the
// total number of hotspots updated with fresh centrality scores.
func RunCityAnalytics(ctx context.Context, cfg Config) (int, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = len(cfg.Cities)
	}
	if workers > 16 {
		workers = 16
	}
	if workers < 1 {
		return 0, nil
	}

	shards := shardCities(cfg.Cities, workers)

	g, gctx := errgroup.WithContext(ctx)
	counts := make([]int, len(shards))

	for i, shard := range shards {
		i, shard := i, shard
		g.Go(func() error {
			client := sink.New(cfg.SinkBaseURL, cfg.SinkUsername, cfg.SinkPassword, cfg.Logger)
			n, err := processCityShard(gctx, client, shard, cfg.MinCitySize, cfg.Logger)
			counts[i] = n
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return sum(counts), errs.New(errs.KindAnalytics, "analytics.RunCityAnalytics", err)
	}
	return sum(counts), nil
}

func processCityShard(ctx context.Context, client *sink.Client, cities []string, minCitySize int, logger zerolog.Logger) (int, error) {
	total := 0
	for _, city := range cities {
		n, err := processCity(ctx, client, city, minCitySize)
		if err != nil {
			// one city's failure must not abort the shard (§4.6 is
			// embarrassingly parallel with no cross-city dependency);
			// a single bad city is logged and skipped.
			logger.Warn().Err(err).Str("city", city).Msg("city analytics failed, skipping city")
			continue
		}
		total += n
	}
	return total, nil
}

const hotspotCountAQL = `
	FOR hotspot IN hotspots
		FILTER hotspot.city_key == @city
		COLLECT WITH COUNT INTO c
		RETURN c`

// countCityHotspots returns the number of hotspots assigned to city
// (I6/Scenario 4 gate on hotspot count, not witness edge count).
func countCityHotspots(ctx context.Context, client *sink.Client, city string) (int, error) {
	rows, err := client.Query(ctx, hotspotCountAQL, map[string]any{"city": city})
	if err != nil {
		return 0, errs.New(errs.KindQuery, "analytics.countCityHotspots", err)
	}
	return parseCityHotspotCount(rows)
}

func parseCityHotspotCount(rows []json.RawMessage) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var count int
	if err := json.Unmarshal(rows[0], &count); err != nil {
		return 0, errs.New(errs.KindValidation, "analytics.parseCityHotspotCount", err)
	}
	return count, nil
}

func processCity(ctx context.Context, client *sink.Client, city string, minCitySize int) (int, error) {
	hotspotCount, err := countCityHotspots(ctx, client, city)
	if err != nil {
		return 0, err
	}
	if hotspotCount < minCitySize {
		return 0, nil
	}

	const aql = `
		FOR hotspot IN hotspots
			FILTER hotspot.city_key == @city
			FOR v, e IN 1..1 OUTBOUND hotspot witnesses
				FILTER e.is_valid
				LET distance_m = DISTANCE(
					v.geo_location.coordinates[1], v.geo_location.coordinates[0],
					hotspot.geo_location.coordinates[1], hotspot.geo_location.coordinates[0])
				RETURN { from: hotspot._key, to: v._key, distance_m: distance_m }`

	rows, err := client.Query(ctx, aql, map[string]any{"city": city})
	if err != nil {
		return 0, errs.New(errs.KindQuery, "analytics.processCity", err)
	}

	edges := make([]cityEdge, 0, len(rows))
	for _, raw := range rows {
		var e cityEdge
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		edges = append(edges, e)
	}

	features := computeCentrality(edges)
	if len(features) == 0 {
		return 0, nil
	}

	docs := make([]map[string]any, 0, len(features))
	for _, f := range features {
		docs = append(docs, map[string]any{
			"_key":                     f.Key,
			"pagerank":                 f.PageRank,
			"pagerank_n":               f.PageRankNormalized,
			"betweenness_centrality":   f.BetweennessCentrality,
			"betweenness_centrality_n": f.BetweennessCentralityNorm,
		})
	}
	if _, err := client.BulkUpsert(ctx, "hotspots", docs, "update"); err != nil {
		return 0, errs.New(errs.KindUpsert, "analytics.processCity", err)
	}
	return len(docs), nil
}

// cityFeature is the per-vertex result of computeCentrality.
type cityFeature = models.CityFeatures

// computeCentrality builds a weighted directed graph from edges and
// returns PageRank/betweenness centrality per vertex, normalized by the
// per-city mean with NaN replaced by 0 (§4.6 steps 4-6).
func computeCentrality(edges []cityEdge) []cityFeature {
	ids := make(map[string]int64)
	keys := make(map[int64]string)
	nextID := func(key string) int64 {
		if id, ok := ids[key]; ok {
			return id
		}
		id := int64(len(ids))
		ids[key] = id
		keys[id] = key
		return id
	}

	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for _, e := range edges {
		from := nextID(e.From)
		to := nextID(e.To)
		weight := e.DistanceM
		if weight <= 0 {
			weight = 1
		}
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(from), T: simple.Node(to), W: weight})
	}

	pg := network.PageRank(g, 0.85, 1e-8)
	bc := network.BetweennessWeighted(g, path.DijkstraAllPaths(g))

	// bc only holds vertices with non-zero betweenness, so both means are
	// taken over every vertex of the city subgraph.
	pgMean := mean(pg, len(ids))
	bcMean := mean(bc, len(ids))

	features := make([]cityFeature, 0, len(ids))
	for id, key := range keys {
		p := pg[id]
		b := bc[id]
		features = append(features, cityFeature{
			Key:                       key,
			PageRank:                  p,
			PageRankNormalized:        safeDiv(p, pgMean),
			BetweennessCentrality:     b,
			BetweennessCentralityNorm: safeDiv(b, bcMean),
		})
	}
	return features
}

func mean(values map[int64]float64, n int) float64 {
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(n)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func shardCities(cities []string, workers int) [][]string {
	shards := make([][]string, workers)
	for i, city := range cities {
		shards[i%workers] = append(shards[i%workers], city)
	}
	return shards
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
