package service

import (
	"context"
	"parkade/internal/occupancy/repository"
	"parkade/pkg/config"
	apperrors "parkade/pkg/errors"
	"parkade/pkg/logger"
	"parkade/pkg/model"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type mockOccupancyRepo struct {
	statusCalls int

	byStatusFunc   func(ctx context.Context) (map[model.SpaceStatus]int64, error)
	byCategoryFunc func(ctx context.Context) (map[model.SpaceCategory]map[model.SpaceStatus]int64, error)
	dailyFunc      func(ctx context.Context, from, to time.Time) ([]repository.DailyBucket, error)
	hourlyFunc     func(ctx context.Context, from, to time.Time) ([]repository.HourlyBucket, error)
	endingFunc     func(ctx context.Context, from, to time.Time, limit int) ([]*model.Reservation, error)
}

func (m *mockOccupancyRepo) CountSpacesByStatus(ctx context.Context) (map[model.SpaceStatus]int64, error) {
	m.statusCalls++
	if m.byStatusFunc != nil {
		return m.byStatusFunc(ctx)
	}
	return map[model.SpaceStatus]int64{}, nil
}

func (m *mockOccupancyRepo) CountSpacesByCategory(ctx context.Context) (map[model.SpaceCategory]map[model.SpaceStatus]int64, error) {
	if m.byCategoryFunc != nil {
		return m.byCategoryFunc(ctx)
	}
	return map[model.SpaceCategory]map[model.SpaceStatus]int64{
		model.CategoryNormal: {model.SpaceFree: 10},
	}, nil
}

func (m *mockOccupancyRepo) CountActiveReservations(ctx context.Context) (int64, error) {
	return 3, nil
}

func (m *mockOccupancyRepo) FindEndingWithin(ctx context.Context, from, to time.Time, limit int) ([]*model.Reservation, error) {
	if m.endingFunc != nil {
		return m.endingFunc(ctx, from, to, limit)
	}
	return []*model.Reservation{}, nil
}

func (m *mockOccupancyRepo) DailyUsage(ctx context.Context, from, to time.Time) ([]repository.DailyBucket, error) {
	if m.dailyFunc != nil {
		return m.dailyFunc(ctx, from, to)
	}
	return []repository.DailyBucket{}, nil
}

func (m *mockOccupancyRepo) HourlyProfile(ctx context.Context, from, to time.Time) ([]repository.HourlyBucket, error) {
	if m.hourlyFunc != nil {
		return m.hourlyFunc(ctx, from, to)
	}
	return []repository.HourlyBucket{}, nil
}

func testOccupancyService(repo repository.OccupancyRepository, cacheTTL time.Duration) *occupancyService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		ReadTimeout:           5 * time.Second,
		OccupancyLookahead:    2 * time.Hour,
		UpcomingReleasesLimit: 10,
		SnapshotCacheTTL:      cacheTTL,
	}
	return &occupancyService{
		repo:  repo,
		cache: gocache.New(cacheTTL, time.Minute),
		cfg:   cfg,
		now:   func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) },
	}
}

func TestSnapshot_Math(t *testing.T) {
	repo := &mockOccupancyRepo{
		byStatusFunc: func(ctx context.Context) (map[model.SpaceStatus]int64, error) {
			return map[model.SpaceStatus]int64{
				model.SpaceFree:        5,
				model.SpaceOccupied:    3,
				model.SpaceMaintenance: 2,
			}, nil
		},
		byCategoryFunc: func(ctx context.Context) (map[model.SpaceCategory]map[model.SpaceStatus]int64, error) {
			return map[model.SpaceCategory]map[model.SpaceStatus]int64{
				model.CategoryNormal:     {model.SpaceFree: 4, model.SpaceOccupied: 2, model.SpaceMaintenance: 2},
				model.CategoryAccessible: {model.SpaceFree: 1, model.SpaceOccupied: 1},
			}, nil
		},
	}
	service := testOccupancyService(repo, time.Minute)

	snapshot, err := service.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.TotalSpaces != 10 {
		t.Errorf("expected 10 total spaces, got %d", snapshot.TotalSpaces)
	}
	// 3 occupied over 8 operative spaces. Maintenance spaces are excluded
	// from the denominator.
	if snapshot.OccupancyPercent != 37.5 {
		t.Errorf("expected 37.5%% occupancy, got %v", snapshot.OccupancyPercent)
	}
	if snapshot.ActiveReservations != 3 {
		t.Errorf("expected 3 active reservations, got %d", snapshot.ActiveReservations)
	}
	if got := snapshot.ByCategory[model.CategoryNormal][model.SpaceMaintenance]; got != 2 {
		t.Errorf("expected 2 normal spaces in maintenance, got %d", got)
	}
	if got := snapshot.ByCategory[model.CategoryAccessible][model.SpaceOccupied]; got != 1 {
		t.Errorf("expected 1 accessible space occupied, got %d", got)
	}
}

func TestSnapshot_EmptyLot(t *testing.T) {
	service := testOccupancyService(&mockOccupancyRepo{}, time.Minute)

	snapshot, err := service.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot.TotalSpaces != 0 || snapshot.OccupancyPercent != 0 {
		t.Errorf("empty lot must report zero occupancy, got %+v", snapshot)
	}
}

func TestSnapshot_Cached(t *testing.T) {
	repo := &mockOccupancyRepo{
		byStatusFunc: func(ctx context.Context) (map[model.SpaceStatus]int64, error) {
			return map[model.SpaceStatus]int64{model.SpaceFree: 1}, nil
		},
	}
	service := testOccupancyService(repo, time.Minute)

	first, err := service.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := service.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.statusCalls != 1 {
		t.Errorf("expected the second snapshot to come from cache, repo hit %d times", repo.statusCalls)
	}
	if first.GeneratedAt != second.GeneratedAt {
		t.Error("cached snapshot must be identical to the first")
	}
}

func TestSnapshot_UpcomingReleasesWindow(t *testing.T) {
	var gotFrom, gotTo time.Time
	var gotLimit int
	repo := &mockOccupancyRepo{
		endingFunc: func(ctx context.Context, from, to time.Time, limit int) ([]*model.Reservation, error) {
			gotFrom, gotTo, gotLimit = from, to, limit
			return []*model.Reservation{}, nil
		},
	}
	service := testOccupancyService(repo, time.Minute)

	if _, err := service.Snapshot(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotTo.Sub(gotFrom) != 2*time.Hour {
		t.Errorf("expected lookahead of 2h, got %s", gotTo.Sub(gotFrom))
	}
	if gotLimit != 10 {
		t.Errorf("expected upcoming releases limit of 10, got %d", gotLimit)
	}
}

func TestDailyUsage_RejectsBadRange(t *testing.T) {
	service := testOccupancyService(&mockOccupancyRepo{}, time.Minute)

	for _, days := range []int{0, -1, 366} {
		_, err := service.DailyUsage(context.Background(), days)
		if err == nil {
			t.Errorf("days=%d: expected error, got nil", days)
			continue
		}
		if apperrors.AsAppError(err).Code != apperrors.CodeInvalidInput {
			t.Errorf("days=%d: expected INVALID_INPUT, got %v", days, err)
		}
	}
}

func TestHourlyProfile_PeakHours(t *testing.T) {
	repo := &mockOccupancyRepo{
		hourlyFunc: func(ctx context.Context, from, to time.Time) ([]repository.HourlyBucket, error) {
			return []repository.HourlyBucket{
				{Hour: 8, Count: 10},
				{Hour: 9, Count: 25},
				{Hour: 12, Count: 25},
				{Hour: 17, Count: 40},
				{Hour: 22, Count: 2},
			}, nil
		},
	}
	service := testOccupancyService(repo, time.Minute)

	report, err := service.HourlyProfile(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{17, 9, 12}
	if len(report.PeakHours) != len(want) {
		t.Fatalf("expected %d peak hours, got %v", len(want), report.PeakHours)
	}
	for i, hour := range want {
		if report.PeakHours[i] != hour {
			t.Errorf("peak hour %d: expected %d, got %d", i, hour, report.PeakHours[i])
		}
	}
}

func TestPeakHours_FewerBucketsThanRequested(t *testing.T) {
	hours := peakHours([]repository.HourlyBucket{{Hour: 7, Count: 1}}, 3)
	if len(hours) != 1 || hours[0] != 7 {
		t.Errorf("expected single peak hour 7, got %v", hours)
	}
}
