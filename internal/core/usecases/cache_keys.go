package usecases

import (
	"context"
	"strconv"

	"github.com/samirrijal/trailwhisper/internal/core/ports"
)

func visitsCachePrefix(userID string) string {
	return "visits:" + userID + ":"
}

// visitsCacheKey keeps full float precision so that distinct lookups never
// share an entry.
func visitsCacheKey(userID string, lat, lon, radius float64) string {
	return visitsCachePrefix(userID) + formatKeyFloat(lat) + ":" + formatKeyFloat(lon) + ":" + formatKeyFloat(radius)
}

func formatKeyFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// invalidateUser drops cached visit lookups after the user's activities
// change.
func invalidateUser(ctx context.Context, cache ports.CacheService, userID string) {
	if cache == nil {
		return
	}
	_ = cache.DeletePrefix(ctx, visitsCachePrefix(userID))
}
