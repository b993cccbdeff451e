package service

import (
	"context"
	"errors"
	spaceserrors "parkade/internal/spaces/errors"
	"parkade/internal/spaces/repository"
	"parkade/internal/spaces/validator"
	"parkade/pkg/audit"
	"parkade/pkg/auth"
	"parkade/pkg/config"
	apperrors "parkade/pkg/errors"
	"parkade/pkg/model"
	"parkade/pkg/sanitizer"
	"sync"
)

type SpaceService interface {
	Create(ctx context.Context, space *model.Space) error
	GetByID(ctx context.Context, id string) (*model.Space, error)
	GetAll(ctx context.Context, status model.SpaceStatus, limit int, offset int64) ([]*model.Space, int64, error)
	EnterMaintenance(ctx context.Context, id string) error
	LeaveMaintenance(ctx context.Context, id string) error
}

type spaceService struct {
	repo      repository.SpaceRepository
	validator *validator.SpaceValidator
	sink      audit.Sink
	cfg       *config.Config
}

func NewSpaceService(
	repo repository.SpaceRepository,
	validator *validator.SpaceValidator,
	sink audit.Sink,
	cfg *config.Config,
) SpaceService {
	return &spaceService{
		repo:      repo,
		validator: validator,
		sink:      sink,
		cfg:       cfg,
	}
}

func (s *spaceService) Create(ctx context.Context, space *model.Space) error {
	principal, err := s.requireElevated(ctx)
	if err != nil {
		return err
	}

	s.applyDefaults(space)
	space.Label = sanitizer.NormalizeLabel(space.Label)

	if err := s.validator.Validate(space); err != nil {
		s.cfg.Log.Warn("Space validation failed", "error", err)
		return apperrors.Validation("Space validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, space); err != nil {
		s.cfg.Log.Error("Failed to create space", "error", err)
		return apperrors.Internal("Failed to create space", err)
	}

	s.cfg.Log.Info("Space created successfully",
		"id", space.ID,
		"label", space.Label,
		"category", space.Category,
		"actor_id", principal.ID,
	)
	return nil
}

func (s *spaceService) GetByID(ctx context.Context, id string) (*model.Space, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Space ID cannot be empty")
	}

	space, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, spaceserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Space", id)
		}
		if errors.Is(err, spaceserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid space ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve space", err)
	}

	return space, nil
}

func (s *spaceService) GetAll(ctx context.Context, status model.SpaceStatus, limit int, offset int64) ([]*model.Space, int64, error) {
	var count int64
	var spaces []*model.Space
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, status)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count spaces", "error", errCount)
			errCount = apperrors.Internal("Failed to count spaces", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		spaces, errFind = s.repo.FindAll(ctx, status, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list spaces", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve spaces", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return spaces, count, nil
}

func (s *spaceService) EnterMaintenance(ctx context.Context, id string) error {
	principal, err := s.requireElevated(ctx)
	if err != nil {
		return err
	}

	if err := s.transition(ctx, id, model.SpaceMaintenance); err != nil {
		return err
	}

	s.cfg.Log.Info("Space placed in maintenance", "id", id, "actor_id", principal.ID)
	s.sink.Record(ctx, audit.Event{
		Kind:       audit.EventSpaceMaintenanceSet,
		ActorID:    principal.ID,
		SubjectIDs: map[string]string{"space_id": id},
	})
	return nil
}

func (s *spaceService) LeaveMaintenance(ctx context.Context, id string) error {
	principal, err := s.requireElevated(ctx)
	if err != nil {
		return err
	}

	if err := s.transition(ctx, id, model.SpaceFree); err != nil {
		return err
	}

	s.cfg.Log.Info("Space returned to service", "id", id, "actor_id", principal.ID)
	s.sink.Record(ctx, audit.Event{
		Kind:       audit.EventSpaceMaintenanceEnd,
		ActorID:    principal.ID,
		SubjectIDs: map[string]string{"space_id": id},
	})
	return nil
}

// transition performs a guarded status change. The transition table is checked
// against the status read first, then the update is conditioned on that same
// status so a concurrent change surfaces as a retryable conflict.
func (s *spaceService) transition(ctx context.Context, id string, to model.SpaceStatus) error {
	space, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if space.Status == to {
		return nil
	}
	if !model.CanTransitionSpace(space.Status, to) {
		return apperrors.InvalidState(
			"Space cannot move from " + string(space.Status) + " to " + string(to),
		)
	}

	err = s.repo.SetStatus(ctx, id, space.Status, to)
	if err != nil {
		if errors.Is(err, spaceserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Space", id)
		}
		if errors.Is(err, spaceserrors.ErrStateMismatch) {
			return apperrors.Conflict("Space status changed concurrently. Please try again.")
		}
		s.cfg.Log.Error("Failed to update space status", "id", id, "to", to, "error", err)
		return apperrors.Internal("Failed to update space status", err)
	}

	return nil
}

func (s *spaceService) applyDefaults(space *model.Space) {
	if space.Status == "" {
		space.Status = model.SpaceFree
	}
	if space.Category == "" {
		space.Category = model.CategoryNormal
	}
}

func (s *spaceService) requireElevated(ctx context.Context) (auth.Principal, error) {
	principal, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Principal{}, apperrors.Unauthorized("Missing caller identity")
	}
	if !auth.IsElevated(principal) {
		return auth.Principal{}, apperrors.Forbidden("Operation requires an admin or staff role")
	}
	return principal, nil
}
