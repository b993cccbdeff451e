package service

import (
	"context"
	"parkade/internal/reservations/repository"
	apperrors "parkade/pkg/errors"
	"time"
)

// ConflictChecker decides whether a window can be placed on a space without
// intersecting any active reservation. It must run inside the transaction,
// after the space lock is held, so its verdict cannot be invalidated by a
// concurrent insert.
type ConflictChecker struct {
	repo repository.ReservationRepository
}

func NewConflictChecker(repo repository.ReservationRepository) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// Check returns a conflict error listing the colliding windows, or nil when
// the space is clear for [start, end). excludeID skips a reservation being
// rescheduled so it does not conflict with itself.
func (c *ConflictChecker) Check(ctx context.Context, spaceID string, start, end time.Time, excludeID string) error {
	existing, err := c.repo.FindOverlapping(ctx, spaceID, start, end, excludeID)
	if err != nil {
		return apperrors.Internal("Failed to check existing reservations", err)
	}

	if len(existing) == 0 {
		return nil
	}

	windows := make([]map[string]any, 0, len(existing))
	for _, r := range existing {
		windows = append(windows, map[string]any{
			"reservation_id": r.ID,
			"start_time":     r.StartTime.Format(time.RFC3339),
			"end_time":       r.EndTime.Format(time.RFC3339),
		})
	}

	return apperrors.Conflict("Requested window overlaps an active reservation on this space").
		WithDetails(map[string]any{
			"space_id":  spaceID,
			"conflicts": windows,
		})
}
