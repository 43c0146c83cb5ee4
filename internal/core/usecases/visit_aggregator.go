package usecases

import (
	"sort"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// RecentVisitsLimit is how many visits a summary lists.
const RecentVisitsLimit = 5

// AggregateVisits summarizes visits. The input is expected most recent
// first; it is not re-sorted. Sports with equal counts keep the order in
// which they first appear.
func AggregateVisits(visits []domain.VisitRecord) domain.VisitSummary {
	summary := domain.VisitSummary{
		TotalVisits:  len(visits),
		RecentVisits: []domain.VisitRecord{},
		BySport:      []domain.SportCount{},
	}

	index := make(map[domain.Sport]int)
	for _, v := range visits {
		summary.TotalDistanceMeters += v.TotalDistanceMeters
		i, ok := index[v.Sport]
		if !ok {
			i = len(summary.BySport)
			index[v.Sport] = i
			summary.BySport = append(summary.BySport, domain.SportCount{Sport: v.Sport})
		}
		summary.BySport[i].Count++
	}
	sort.SliceStable(summary.BySport, func(i, j int) bool {
		return summary.BySport[i].Count > summary.BySport[j].Count
	})

	n := min(len(visits), RecentVisitsLimit)
	summary.RecentVisits = append(summary.RecentVisits, visits[:n]...)
	return summary
}
