package service

import (
	"context"
	apperrors "parkade/pkg/errors"
	"parkade/pkg/model"
	"testing"
	"time"
)

func TestConflictChecker_ClearSpace(t *testing.T) {
	checker := NewConflictChecker(&mockReservationRepo{})

	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	if err := checker.Check(context.Background(), testSpaceID, start, start.Add(time.Hour), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConflictChecker_ReportsCollidingWindows(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	repo := &mockReservationRepo{
		findOverlappingFunc: func(ctx context.Context, spaceID string, qStart, qEnd time.Time, excludeID string) ([]*model.Reservation, error) {
			return []*model.Reservation{
				{ID: "aaa", SpaceID: spaceID, StartTime: start, EndTime: start.Add(time.Hour)},
				{ID: "bbb", SpaceID: spaceID, StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour)},
			}, nil
		},
	}
	checker := NewConflictChecker(repo)

	err := checker.Check(context.Background(), testSpaceID, start.Add(30*time.Minute), start.Add(90*time.Minute), "")
	assertCode(t, err, apperrors.CodeConflict)

	appErr := apperrors.AsAppError(err)
	conflicts, ok := appErr.Details["conflicts"].([]map[string]any)
	if !ok || len(conflicts) != 2 {
		t.Fatalf("expected 2 conflicting windows in details, got %v", appErr.Details["conflicts"])
	}
}

func TestConflictChecker_PassesExcludeThrough(t *testing.T) {
	var gotExclude string
	repo := &mockReservationRepo{
		findOverlappingFunc: func(ctx context.Context, spaceID string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
			gotExclude = excludeID
			return nil, nil
		},
	}
	checker := NewConflictChecker(repo)

	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	if err := checker.Check(context.Background(), testSpaceID, start, start.Add(time.Hour), testResID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotExclude != testResID {
		t.Errorf("expected exclude ID to reach the repository, got %q", gotExclude)
	}
}
