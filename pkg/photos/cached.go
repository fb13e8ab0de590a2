package photos

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/defeedco/wanderlens/pkg/lib"
)

// cachePrecision rounds coordinates to roughly 11 meters.
const cachePrecision = 4

// CachedSearcher serves repeated searches around the same spot from memory.
// Only successful searches are cached so failures are retried upstream.
type CachedSearcher struct {
	searcher Searcher
	cache    *lib.Cache
	logger   *zerolog.Logger
}

func NewCachedSearcher(searcher Searcher, cache *lib.Cache, logger *zerolog.Logger) *CachedSearcher {
	return &CachedSearcher{
		searcher: searcher,
		cache:    cache,
		logger:   logger,
	}
}

func (c *CachedSearcher) Search(ctx context.Context, lat, lon float64) SearchResult {
	key := cacheKey(lat, lon)

	if cached, ok := c.cache.Get(key); ok {
		if res, ok := cached.(SearchResult); ok {
			c.logger.Debug().
				Float64("lat", lat).
				Float64("lon", lon).
				Msg("Serving photo search from cache")
			return res
		}
	}

	res := c.searcher.Search(ctx, lat, lon)
	if res.HasPhotos() {
		c.cache.Set(key, res)
	}

	return res
}

func cacheKey(lat, lon float64) string {
	return lib.HashParams(
		"photos.search",
		strconv.FormatFloat(lat, 'f', cachePrecision, 64),
		strconv.FormatFloat(lon, 'f', cachePrecision, 64),
	)
}
