package query

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evandiewald/helium-arango-etl/pkg/canon"
	"github.com/evandiewald/helium-arango-etl/pkg/errs"
	"github.com/evandiewald/helium-arango-etl/pkg/models"
)

// HotspotsCursor scans gateway_inventory left-joined with gateway_status,
// deriving geo_location from the H3 location_hex and null-initializing
// the analytics fields Graph Analytics fills in later.
type HotspotsCursor struct {
	pool  *pgxpool.Pool
	state BatchState
}

func NewHotspotsCursor(pool *pgxpool.Pool, batchSize int64) *HotspotsCursor {
	return &HotspotsCursor{pool: pool, state: NewBatchState(batchSize)}
}

func (c *HotspotsCursor) NextBatch(ctx context.Context) ([]Document, error) {
	if c.state.Complete {
		return []Document{}, nil
	}

	rows, err := c.pool.Query(ctx, `
		SELECT gi.address, gi.owner, gi.location_hex, gi.name, gi.reward_scale,
		       gi.elevation, gi.gain, gi.mode, gi.first_block, gi.last_block,
		       gs.online, loc.city_id
		FROM gateway_inventory gi
		LEFT JOIN gateway_status gs ON gs.address = gi.address
		LEFT JOIN locations loc ON loc.location = gi.location_hex
		ORDER BY gi.address
		LIMIT $1 OFFSET $2`,
		c.state.Limit(), c.state.Offset())
	if err != nil {
		return nil, errs.New(errs.KindQuery, "query.HotspotsCursor", err)
	}
	defer rows.Close()

	var batch []Document
	for rows.Next() {
		var (
			address, owner, locationHex, name, mode string
			rewardScale                              float64
			elevation, gain, firstBlock, lastBlock   int64
			online                                   *bool
			cityID                                   *string
		)
		if err := rows.Scan(&address, &owner, &locationHex, &name, &rewardScale, &elevation, &gain, &mode, &firstBlock, &lastBlock, &online, &cityID); err != nil {
			return nil, errs.New(errs.KindValidation, "query.HotspotsCursor", err)
		}

		var cityKey *string
		if cityID != nil {
			k := canon.KeyString(*cityID)
			cityKey = &k
		}

		hotspot := models.Hotspot{
			Key:         address,
			Address:     address,
			Owner:       owner,
			LocationHex: locationHex,
			GeoLocation: geoLocationFromH3(locationHex),
			CityKey:     cityKey,
			Name:        name,
			Online:      online,
			RewardScale: rewardScale,
			Elevation:   elevation,
			Gain:        gain,
			Mode:        mode,
			FirstBlock:  firstBlock,
			LastBlock:   lastBlock,
			// Rewards5d/PageRank/BetweennessCentrality and their
			// normalized counterparts stay nil: Graph Analytics fills
			// them in on a later pass.
		}

		batch = append(batch, Document{
			"_key":                     hotspot.Key,
			"address":                  hotspot.Address,
			"owner":                    hotspot.Owner,
			"location_hex":             hotspot.LocationHex,
			"geo_location":             hotspot.GeoLocation,
			"city_key":                 hotspot.CityKey,
			"name":                     hotspot.Name,
			"online":                   hotspot.Online,
			"reward_scale":             hotspot.RewardScale,
			"elevation":                hotspot.Elevation,
			"gain":                     hotspot.Gain,
			"mode":                     hotspot.Mode,
			"first_block":              hotspot.FirstBlock,
			"last_block":               hotspot.LastBlock,
			"rewards_5d":               hotspot.Rewards5d,
			"pagerank":                 hotspot.PageRank,
			"pagerank_n":               hotspot.PageRankNormalized,
			"betweenness_centrality":   hotspot.BetweennessCentrality,
			"betweenness_centrality_n": hotspot.BetweennessCentralityNorm,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.KindQuery, "query.HotspotsCursor", err)
	}

	c.state.Advance(int64(len(batch)))
	return batch, nil
}
