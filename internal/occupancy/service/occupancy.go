package service

import (
	"context"
	"math"
	"parkade/internal/occupancy/repository"
	"parkade/pkg/config"
	apperrors "parkade/pkg/errors"
	"parkade/pkg/model"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const snapshotCacheKey = "occupancy_snapshot"

// Snapshot is a point-in-time picture of the lot. OccupancyPercent is
// computed over operative spaces only; a space in maintenance is not
// allocatable and would skew the figure.
type Snapshot struct {
	GeneratedAt        time.Time                                           `json:"generated_at"`
	TotalSpaces        int64                                               `json:"total_spaces"`
	FreeSpaces         int64                                               `json:"free_spaces"`
	OccupiedSpaces     int64                                               `json:"occupied_spaces"`
	MaintenanceSpaces  int64                                               `json:"maintenance_spaces"`
	ByCategory         map[model.SpaceCategory]map[model.SpaceStatus]int64 `json:"by_category"`
	ActiveReservations int64                                               `json:"active_reservations"`
	OccupancyPercent   float64                                             `json:"occupancy_percent"`
	UpcomingReleases   []*model.Reservation                                `json:"upcoming_releases"`
}

// HourlyReport is the hour-of-day demand profile with the busiest hours
// called out.
type HourlyReport struct {
	Buckets   []repository.HourlyBucket `json:"buckets"`
	PeakHours []int                     `json:"peak_hours"`
}

type OccupancyService interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	DailyUsage(ctx context.Context, days int) ([]repository.DailyBucket, error)
	HourlyProfile(ctx context.Context, days int) (*HourlyReport, error)
}

type occupancyService struct {
	repo  repository.OccupancyRepository
	cache *gocache.Cache
	cfg   *config.Config

	// now is swappable for tests that pin the clock.
	now func() time.Time
}

func NewOccupancyService(repo repository.OccupancyRepository, cfg *config.Config) OccupancyService {
	return &occupancyService{
		repo:  repo,
		cache: gocache.New(cfg.SnapshotCacheTTL, 2*cfg.SnapshotCacheTTL),
		cfg:   cfg,
		now:   time.Now,
	}
}

func (s *occupancyService) Snapshot(ctx context.Context) (*Snapshot, error) {
	if cached, found := s.cache.Get(snapshotCacheKey); found {
		if snapshot, ok := cached.(*Snapshot); ok {
			return snapshot, nil
		}
	}

	now := s.now().UTC()

	byStatus, err := s.repo.CountSpacesByStatus(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count spaces by status", "error", err)
		return nil, apperrors.Internal("Failed to compute occupancy snapshot", err)
	}
	byCategory, err := s.repo.CountSpacesByCategory(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count spaces by category", "error", err)
		return nil, apperrors.Internal("Failed to compute occupancy snapshot", err)
	}
	active, err := s.repo.CountActiveReservations(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count active reservations", "error", err)
		return nil, apperrors.Internal("Failed to compute occupancy snapshot", err)
	}
	upcoming, err := s.repo.FindEndingWithin(ctx, now, now.Add(s.cfg.OccupancyLookahead), s.cfg.UpcomingReleasesLimit)
	if err != nil {
		s.cfg.Log.Error("Failed to find upcoming releases", "error", err)
		return nil, apperrors.Internal("Failed to compute occupancy snapshot", err)
	}

	free := byStatus[model.SpaceFree]
	occupied := byStatus[model.SpaceOccupied]
	maintenance := byStatus[model.SpaceMaintenance]
	total := free + occupied + maintenance

	snapshot := &Snapshot{
		GeneratedAt:        now,
		TotalSpaces:        total,
		FreeSpaces:         free,
		OccupiedSpaces:     occupied,
		MaintenanceSpaces:  maintenance,
		ByCategory:         byCategory,
		ActiveReservations: active,
		OccupancyPercent:   occupancyPercent(occupied, free+occupied),
		UpcomingReleases:   upcoming,
	}

	s.cache.Set(snapshotCacheKey, snapshot, gocache.DefaultExpiration)
	return snapshot, nil
}

func (s *occupancyService) DailyUsage(ctx context.Context, days int) ([]repository.DailyBucket, error) {
	from, to, err := s.historyRange(days)
	if err != nil {
		return nil, err
	}

	buckets, err := s.repo.DailyUsage(ctx, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to compute daily usage", "days", days, "error", err)
		return nil, apperrors.Internal("Failed to compute daily usage", err)
	}
	return buckets, nil
}

func (s *occupancyService) HourlyProfile(ctx context.Context, days int) (*HourlyReport, error) {
	from, to, err := s.historyRange(days)
	if err != nil {
		return nil, err
	}

	buckets, err := s.repo.HourlyProfile(ctx, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to compute hourly profile", "days", days, "error", err)
		return nil, apperrors.Internal("Failed to compute hourly profile", err)
	}

	return &HourlyReport{
		Buckets:   buckets,
		PeakHours: peakHours(buckets, 3),
	}, nil
}

func (s *occupancyService) historyRange(days int) (time.Time, time.Time, error) {
	if days <= 0 || days > 365 {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("days must be between 1 and 365")
	}
	to := s.now().UTC()
	return to.AddDate(0, 0, -days), to, nil
}

func occupancyPercent(occupied, operative int64) float64 {
	if operative == 0 {
		return 0
	}
	percent := float64(occupied) / float64(operative) * 100
	return math.Round(percent*100) / 100
}

// peakHours returns the n busiest hours, busiest first. Ties break toward
// the earlier hour so the result is stable.
func peakHours(buckets []repository.HourlyBucket, n int) []int {
	sorted := make([]repository.HourlyBucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Hour < sorted[j].Hour
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	hours := make([]int, 0, n)
	for _, bucket := range sorted[:n] {
		hours = append(hours, bucket.Hour)
	}
	return hours
}
