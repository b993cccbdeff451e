package service

import (
	"context"
	spaceserrors "parkade/internal/spaces/errors"
	"parkade/internal/spaces/validator"
	"parkade/pkg/audit"
	"parkade/pkg/auth"
	"parkade/pkg/config"
	apperrors "parkade/pkg/errors"
	"parkade/pkg/logger"
	"parkade/pkg/model"
	"testing"
	"time"
)

type mockSpaceRepo struct {
	createFunc    func(ctx context.Context, space *model.Space) error
	findByIDFunc  func(ctx context.Context, id string) (*model.Space, error)
	setStatusFunc func(ctx context.Context, id string, from, to model.SpaceStatus) error
}

func (m *mockSpaceRepo) Create(ctx context.Context, space *model.Space) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, space)
	}
	space.ID = "111111111111111111111111"
	return nil
}

func (m *mockSpaceRepo) FindByID(ctx context.Context, id string) (*model.Space, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, spaceserrors.ErrNotFound
}

func (m *mockSpaceRepo) FindAll(ctx context.Context, status model.SpaceStatus, limit int, offset int64) ([]*model.Space, error) {
	return []*model.Space{}, nil
}

func (m *mockSpaceRepo) Count(ctx context.Context, status model.SpaceStatus) (int64, error) {
	return 0, nil
}

func (m *mockSpaceRepo) SetStatus(ctx context.Context, id string, from, to model.SpaceStatus) error {
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, id, from, to)
	}
	return nil
}

type recordingSink struct {
	events []audit.Event
}

func (s *recordingSink) Record(_ context.Context, event audit.Event) {
	s.events = append(s.events, event)
}

func (s *recordingSink) Close() error { return nil }

func testService(repo *mockSpaceRepo, sink audit.Sink) *spaceService {
	cfg := &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return &spaceService{
		repo:      repo,
		validator: validator.NewSpaceValidator(cfg.Log),
		sink:      sink,
		cfg:       cfg,
	}
}

func adminCtx() context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{ID: "admin-1", Role: auth.RoleAdmin})
}

func userContext() context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{ID: "user-1", Role: auth.RoleUser})
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
}

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	var created *model.Space
	repo := &mockSpaceRepo{
		createFunc: func(ctx context.Context, space *model.Space) error {
			space.ID = "111111111111111111111111"
			created = space
			return nil
		},
	}
	service := testService(repo, &recordingSink{})

	space := &model.Space{Label: "  Level 2   /  B "}
	if err := service.Create(adminCtx(), space); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Status != model.SpaceFree {
		t.Errorf("expected new space to default to free, got %s", created.Status)
	}
	if created.Category != model.CategoryNormal {
		t.Errorf("expected default category normal, got %s", created.Category)
	}
	if created.Label != "Level 2 / B" {
		t.Errorf("expected normalized label, got %q", created.Label)
	}
}

func TestCreate_RequiresElevatedRole(t *testing.T) {
	service := testService(&mockSpaceRepo{}, &recordingSink{})

	err := service.Create(userContext(), &model.Space{Category: model.CategoryNormal})
	assertCode(t, err, apperrors.CodeForbidden)

	err = service.Create(context.Background(), &model.Space{Category: model.CategoryNormal})
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestCreate_RejectsUnknownCategory(t *testing.T) {
	service := testService(&mockSpaceRepo{}, &recordingSink{})

	err := service.Create(adminCtx(), &model.Space{Category: "helipad"})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestEnterMaintenance_FromFree(t *testing.T) {
	var gotFrom, gotTo model.SpaceStatus
	repo := &mockSpaceRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Space, error) {
			return &model.Space{ID: id, Status: model.SpaceFree, Category: model.CategoryNormal}, nil
		},
		setStatusFunc: func(ctx context.Context, id string, from, to model.SpaceStatus) error {
			gotFrom, gotTo = from, to
			return nil
		},
	}
	sink := &recordingSink{}
	service := testService(repo, sink)

	if err := service.EnterMaintenance(adminCtx(), "111111111111111111111111"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFrom != model.SpaceFree || gotTo != model.SpaceMaintenance {
		t.Errorf("expected free to maintenance transition, got %s to %s", gotFrom, gotTo)
	}
	if len(sink.events) != 1 || sink.events[0].Kind != audit.EventSpaceMaintenanceSet {
		t.Errorf("expected one maintenance audit event, got %+v", sink.events)
	}
}

func TestEnterMaintenance_OccupiedIsInvalidState(t *testing.T) {
	repo := &mockSpaceRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Space, error) {
			return &model.Space{ID: id, Status: model.SpaceOccupied, Category: model.CategoryNormal}, nil
		},
	}
	service := testService(repo, &recordingSink{})

	err := service.EnterMaintenance(adminCtx(), "111111111111111111111111")
	assertCode(t, err, apperrors.CodeInvalidState)
}

func TestEnterMaintenance_RequiresElevatedRole(t *testing.T) {
	service := testService(&mockSpaceRepo{}, &recordingSink{})

	err := service.EnterMaintenance(userContext(), "111111111111111111111111")
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestLeaveMaintenance_ReturnsSpaceToFree(t *testing.T) {
	var gotTo model.SpaceStatus
	repo := &mockSpaceRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Space, error) {
			return &model.Space{ID: id, Status: model.SpaceMaintenance, Category: model.CategoryNormal}, nil
		},
		setStatusFunc: func(ctx context.Context, id string, from, to model.SpaceStatus) error {
			gotTo = to
			return nil
		},
	}
	sink := &recordingSink{}
	service := testService(repo, sink)

	if err := service.LeaveMaintenance(adminCtx(), "111111111111111111111111"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTo != model.SpaceFree {
		t.Errorf("expected transition to free, got %s", gotTo)
	}
	if len(sink.events) != 1 || sink.events[0].Kind != audit.EventSpaceMaintenanceEnd {
		t.Errorf("expected one maintenance cleared event, got %+v", sink.events)
	}
}

func TestTransition_ConcurrentChangeIsRetryableConflict(t *testing.T) {
	repo := &mockSpaceRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Space, error) {
			return &model.Space{ID: id, Status: model.SpaceFree, Category: model.CategoryNormal}, nil
		},
		setStatusFunc: func(ctx context.Context, id string, from, to model.SpaceStatus) error {
			return spaceserrors.ErrStateMismatch
		},
	}
	service := testService(repo, &recordingSink{})

	err := service.EnterMaintenance(adminCtx(), "111111111111111111111111")
	assertCode(t, err, apperrors.CodeConflict)
	if !apperrors.AsAppError(err).Retryable() {
		t.Error("concurrent status change must be retryable")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	service := testService(&mockSpaceRepo{}, &recordingSink{})

	_, err := service.GetByID(context.Background(), "111111111111111111111111")
	assertCode(t, err, apperrors.CodeNotFound)
}
