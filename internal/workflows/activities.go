package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
	"github.com/samirrijal/trailwhisper/internal/pkg/fitdecode"
)

// Activity names, as registered from the ReprocessActivities methods.
const (
	ActivityListArchived = "ListArchivedActivities"
	ActivityRebuild      = "RebuildActivity"
)

// errRebuildRejected is the application error type of failures a retry
// cannot fix.
const errRebuildRejected = "RebuildRejected"

// RebuildResult describes one rebuilt activity.
type RebuildResult struct {
	ActivityID string       `json:"activity_id"`
	Sport      domain.Sport `json:"sport"`
	Points     int          `json:"points"`
}

// ReprocessActivities holds the activity implementations for the
// reprocessing workflow.
type ReprocessActivities struct {
	Reprocess *usecases.ReprocessService
}

// ListArchivedActivities returns the ids of up to limit activities with an
// archived original file.
func (a *ReprocessActivities) ListArchivedActivities(ctx context.Context, limit int) ([]string, error) {
	archived, err := a.Reprocess.Archived(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived activities: %w", err)
	}
	ids := make([]string, len(archived))
	for i, act := range archived {
		ids[i] = act.ID
	}
	return ids, nil
}

// RebuildActivity decodes one archived file again and updates the stored
// activity. Decode failures and missing activities are not retried.
func (a *ReprocessActivities) RebuildActivity(ctx context.Context, id string) (RebuildResult, error) {
	rebuilt, err := a.Reprocess.Rebuild(ctx, id)
	if err != nil {
		var de *fitdecode.DecodeError
		if errors.As(err, &de) || errors.Is(err, usecases.ErrNotFound) || errors.Is(err, usecases.ErrInvalidInput) {
			return RebuildResult{}, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("rebuild %s: %v", id, err), errRebuildRejected, err)
		}
		return RebuildResult{}, fmt.Errorf("rebuild %s: %w", id, err)
	}

	activity.GetLogger(ctx).Info("activity rebuilt", "activity_id", id, "sport", string(rebuilt.Sport))
	return RebuildResult{
		ActivityID: rebuilt.ID,
		Sport:      rebuilt.Sport,
		Points:     len(rebuilt.Track),
	}, nil
}
