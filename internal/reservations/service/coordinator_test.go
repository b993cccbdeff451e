package service

import (
	"context"
	reservationserrors "parkade/internal/reservations/errors"
	"parkade/internal/reservations/repository"
	"parkade/internal/reservations/validator"
	spaceserrors "parkade/internal/spaces/errors"
	"parkade/pkg/audit"
	"parkade/pkg/auth"
	"parkade/pkg/config"
	mongotx "parkade/pkg/db/mongo"
	apperrors "parkade/pkg/errors"
	"parkade/pkg/logger"
	"parkade/pkg/model"
	"sync"
	"testing"
	"time"
)

// --- Mocks ---

type mockReservationRepo struct {
	createFunc          func(ctx context.Context, r *model.Reservation) error
	findByIDFunc        func(ctx context.Context, id string) (*model.Reservation, error)
	findOverlappingFunc func(ctx context.Context, spaceID string, start, end time.Time, excludeID string) ([]*model.Reservation, error)
	updateStatusFunc    func(ctx context.Context, id string, from, to model.ReservationStatus) error
	countActiveFunc     func(ctx context.Context, spaceID string) (int64, error)
	executeTxFunc       func(ctx context.Context, fn mongotx.TransactionFunc) error
}

func (m *mockReservationRepo) Create(ctx context.Context, r *model.Reservation) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, r)
	}
	r.ID = "aaaaaaaaaaaaaaaaaaaaaaaa"
	return nil
}

func (m *mockReservationRepo) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reservationserrors.ErrNotFound
}

func (m *mockReservationRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, error) {
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepo) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *mockReservationRepo) FindByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, error) {
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	return 0, nil
}

func (m *mockReservationRepo) FindActive(ctx context.Context, spaceID string, limit int, offset int64) ([]*model.Reservation, error) {
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepo) CountActive(ctx context.Context, spaceID string) (int64, error) {
	if m.countActiveFunc != nil {
		return m.countActiveFunc(ctx, spaceID)
	}
	return 0, nil
}

func (m *mockReservationRepo) FindOverlapping(ctx context.Context, spaceID string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
	if m.findOverlappingFunc != nil {
		return m.findOverlappingFunc(ctx, spaceID, start, end, excludeID)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepo) UpdateStatus(ctx context.Context, id string, from, to model.ReservationStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, from, to)
	}
	return nil
}

func (m *mockReservationRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if m.executeTxFunc != nil {
		return m.executeTxFunc(ctx, fn)
	}
	return fn(nil)
}

type mockLockRepo struct {
	acquireFunc func(ctx context.Context, spaceID string) (string, error)
	releaseFunc func(ctx context.Context, lockID string) error
}

func (m *mockLockRepo) Acquire(ctx context.Context, spaceID string) (string, error) {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, spaceID)
	}
	return "space_lock_" + spaceID, nil
}

func (m *mockLockRepo) Release(ctx context.Context, lockID string) error {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, lockID)
	}
	return nil
}

// memoryLockRepo behaves like the Mongo lock collection: one holder per
// space, second acquirer rejected.
type memoryLockRepo struct {
	mu    sync.Mutex
	locks map[string]bool
}

func newMemoryLockRepo() *memoryLockRepo {
	return &memoryLockRepo{locks: map[string]bool{}}
}

func (m *memoryLockRepo) Acquire(ctx context.Context, spaceID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lockID := "space_lock_" + spaceID
	if m.locks[lockID] {
		return "", reservationserrors.ErrLockHeld
	}
	m.locks[lockID] = true
	return lockID, nil
}

func (m *memoryLockRepo) Release(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, lockID)
	return nil
}

type mockSpaceRepo struct {
	mu        sync.Mutex
	spaces    map[string]*model.Space
	setStatus func(ctx context.Context, id string, from, to model.SpaceStatus) error
}

func newMockSpaceRepo(spaces ...*model.Space) *mockSpaceRepo {
	m := &mockSpaceRepo{spaces: map[string]*model.Space{}}
	for _, s := range spaces {
		m.spaces[s.ID] = s
	}
	return m
}

func (m *mockSpaceRepo) Create(ctx context.Context, space *model.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces[space.ID] = space
	return nil
}

func (m *mockSpaceRepo) FindByID(ctx context.Context, id string) (*model.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	space, ok := m.spaces[id]
	if !ok {
		return nil, spaceNotFoundErr
	}
	copied := *space
	return &copied, nil
}

func (m *mockSpaceRepo) FindAll(ctx context.Context, status model.SpaceStatus, limit int, offset int64) ([]*model.Space, error) {
	return []*model.Space{}, nil
}

func (m *mockSpaceRepo) Count(ctx context.Context, status model.SpaceStatus) (int64, error) {
	return 0, nil
}

func (m *mockSpaceRepo) SetStatus(ctx context.Context, id string, from, to model.SpaceStatus) error {
	if m.setStatus != nil {
		return m.setStatus(ctx, id, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	space, ok := m.spaces[id]
	if !ok {
		return spaceNotFoundErr
	}
	if space.Status != from {
		return spaceStateMismatchErr
	}
	space.Status = to
	return nil
}

type mockVehicleRegistry struct {
	resolveFunc func(ctx context.Context, id string) (*model.Vehicle, error)
}

func (m *mockVehicleRegistry) Resolve(ctx context.Context, id string) (*model.Vehicle, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, id)
	}
	return &model.Vehicle{ID: id, OwnerID: testOwnerID, Plate: "AB123CD"}, nil
}

type mockOwnerDirectory struct {
	resolveFunc func(ctx context.Context, id string) (*model.Owner, error)
}

func (m *mockOwnerDirectory) Resolve(ctx context.Context, id string) (*model.Owner, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, id)
	}
	return &model.Owner{ID: id, DisplayName: "Test Owner"}, nil
}

type mockSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *mockSink) Record(_ context.Context, event audit.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockSink) Close() error { return nil }

func (m *mockSink) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]string, 0, len(m.events))
	for _, e := range m.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// --- Fixtures ---

const (
	testSpaceID   = "111111111111111111111111"
	testOwnerID   = "222222222222222222222222"
	testVehicleID = "333333333333333333333333"
	testResID     = "444444444444444444444444"
)

var (
	spaceNotFoundErr      = spaceserrors.ErrNotFound
	spaceStateMismatchErr = spaceserrors.ErrStateMismatch
)

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		ReadTimeout:          5 * time.Second,
		WriteTimeout:         5 * time.Second,
		SpaceLockTTL:         10 * time.Second,
		ReservationMaxWindow: 24 * time.Hour,
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
}

func testCoordinator(
	repo *mockReservationRepo,
	locks repository.SpaceLockRepository,
	spaceRepo *mockSpaceRepo,
	sink *mockSink,
) *reservationCoordinator {
	cfg := testConfig()
	return &reservationCoordinator{
		repo:      repo,
		lockRepo:  locks,
		spaceRepo: spaceRepo,
		conflicts: NewConflictChecker(repo),
		validator: validator.NewReservationValidator(cfg.Log),
		vehicles:  &mockVehicleRegistry{},
		owners:    &mockOwnerDirectory{},
		sink:      sink,
		cfg:       cfg,
		now:       fixedNow,
	}
}

func userCtx(ownerID string) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{ID: ownerID, Role: auth.RoleUser})
}

func newReservation(start, end time.Time) *model.Reservation {
	return &model.Reservation{
		SpaceID:   testSpaceID,
		OwnerID:   testOwnerID,
		VehicleID: testVehicleID,
		StartTime: start,
		EndTime:   end,
	}
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

// --- Create ---

func TestCreate_Success(t *testing.T) {
	var inserted *model.Reservation
	repo := &mockReservationRepo{
		createFunc: func(ctx context.Context, r *model.Reservation) error {
			r.ID = testResID
			inserted = r
			return nil
		},
	}
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceFree, Category: model.CategoryNormal})
	sink := &mockSink{}
	coordinator := testCoordinator(repo, &mockLockRepo{}, spaceRepo, sink)

	start := fixedNow().Add(time.Hour)
	details, err := coordinator.Create(userCtx(testOwnerID), newReservation(start, start.Add(2*time.Hour)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inserted == nil || inserted.Status != model.ReservationActive {
		t.Fatalf("expected an active reservation to be inserted, got %+v", inserted)
	}
	if details.Space == nil || details.Space.Status != model.SpaceOccupied {
		t.Errorf("expected space to be occupied after create, got %+v", details.Space)
	}
	if details.Owner == nil || details.Vehicle == nil {
		t.Errorf("expected hydrated owner and vehicle, got %+v", details)
	}
	if kinds := sink.kinds(); len(kinds) != 1 || kinds[0] != audit.EventReservationCreated {
		t.Errorf("expected one created audit event, got %v", kinds)
	}
}

func TestCreate_RequiresPrincipal(t *testing.T) {
	coordinator := testCoordinator(&mockReservationRepo{}, &mockLockRepo{}, newMockSpaceRepo(), &mockSink{})

	start := fixedNow().Add(time.Hour)
	_, err := coordinator.Create(context.Background(), newReservation(start, start.Add(time.Hour)))
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestCreate_ForbiddenForOtherOwner(t *testing.T) {
	coordinator := testCoordinator(&mockReservationRepo{}, &mockLockRepo{}, newMockSpaceRepo(), &mockSink{})

	start := fixedNow().Add(time.Hour)
	_, err := coordinator.Create(userCtx("999999999999999999999999"), newReservation(start, start.Add(time.Hour)))
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestCreate_ElevatedMayActForOwner(t *testing.T) {
	repo := &mockReservationRepo{}
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceFree, Category: model.CategoryNormal})
	coordinator := testCoordinator(repo, &mockLockRepo{}, spaceRepo, &mockSink{})

	ctx := auth.WithPrincipal(context.Background(), auth.Principal{ID: "staff-1", Role: auth.RoleStaff})
	start := fixedNow().Add(time.Hour)
	if _, err := coordinator.Create(ctx, newReservation(start, start.Add(time.Hour))); err != nil {
		t.Fatalf("staff should be able to create for an owner: %v", err)
	}
}

func TestCreate_RejectsPastStart(t *testing.T) {
	var lockAcquired bool
	locks := &mockLockRepo{
		acquireFunc: func(ctx context.Context, spaceID string) (string, error) {
			lockAcquired = true
			return "lock", nil
		},
	}
	coordinator := testCoordinator(&mockReservationRepo{}, locks, newMockSpaceRepo(), &mockSink{})

	start := fixedNow().Add(-time.Hour)
	_, err := coordinator.Create(userCtx(testOwnerID), newReservation(start, start.Add(2*time.Hour)))
	assertCode(t, err, apperrors.CodeValidation)
	if lockAcquired {
		t.Error("validation failure must not reach the lock")
	}
}

func TestCreate_RejectsVehicleOwnerMismatch(t *testing.T) {
	var inserted bool
	repo := &mockReservationRepo{
		createFunc: func(ctx context.Context, r *model.Reservation) error {
			inserted = true
			return nil
		},
	}
	coordinator := testCoordinator(repo, &mockLockRepo{}, newMockSpaceRepo(), &mockSink{})
	coordinator.vehicles = &mockVehicleRegistry{
		resolveFunc: func(ctx context.Context, id string) (*model.Vehicle, error) {
			return &model.Vehicle{ID: id, OwnerID: "999999999999999999999999", Plate: "XY999Z"}, nil
		},
	}

	start := fixedNow().Add(time.Hour)
	_, err := coordinator.Create(userCtx(testOwnerID), newReservation(start, start.Add(time.Hour)))
	assertCode(t, err, apperrors.CodeForbidden)
	if inserted {
		t.Error("mismatched vehicle must not produce a reservation")
	}
}

func TestCreate_LockHeldIsRetryableConflict(t *testing.T) {
	locks := &mockLockRepo{
		acquireFunc: func(ctx context.Context, spaceID string) (string, error) {
			return "", reservationserrors.ErrLockHeld
		},
	}
	coordinator := testCoordinator(&mockReservationRepo{}, locks, newMockSpaceRepo(), &mockSink{})

	start := fixedNow().Add(time.Hour)
	_, err := coordinator.Create(userCtx(testOwnerID), newReservation(start, start.Add(time.Hour)))
	assertCode(t, err, apperrors.CodeConflict)
	if !apperrors.AsAppError(err).Retryable() {
		t.Error("lock contention must be retryable")
	}
}

func TestCreate_RejectsMaintenanceSpace(t *testing.T) {
	var inserted bool
	repo := &mockReservationRepo{
		createFunc: func(ctx context.Context, r *model.Reservation) error {
			inserted = true
			return nil
		},
	}
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceMaintenance, Category: model.CategoryNormal})
	coordinator := testCoordinator(repo, &mockLockRepo{}, spaceRepo, &mockSink{})

	start := fixedNow().Add(time.Hour)
	_, err := coordinator.Create(userCtx(testOwnerID), newReservation(start, start.Add(time.Hour)))
	assertCode(t, err, apperrors.CodeConflict)
	if !apperrors.AsAppError(err).Retryable() {
		t.Error("an unavailable space must fail retryable, it may leave maintenance")
	}
	if inserted {
		t.Error("maintenance space must not accept reservations")
	}
}

func TestCreate_OverlapIsConflictWithDetails(t *testing.T) {
	existingStart := fixedNow().Add(time.Hour)
	repo := &mockReservationRepo{
		findOverlappingFunc: func(ctx context.Context, spaceID string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
			return []*model.Reservation{
				{ID: testResID, SpaceID: spaceID, StartTime: existingStart, EndTime: existingStart.Add(time.Hour), Status: model.ReservationActive},
			}, nil
		},
	}
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceOccupied, Category: model.CategoryNormal})
	coordinator := testCoordinator(repo, &mockLockRepo{}, spaceRepo, &mockSink{})

	_, err := coordinator.Create(userCtx(testOwnerID), newReservation(existingStart.Add(30*time.Minute), existingStart.Add(90*time.Minute)))
	assertCode(t, err, apperrors.CodeConflict)

	details := apperrors.AsAppError(err).Details
	if details == nil || details["conflicts"] == nil {
		t.Errorf("expected conflicting windows in error details, got %v", details)
	}
}

func TestCreate_BackToBackWindowsAreCompatible(t *testing.T) {
	// The windows are half-open, so a reservation starting exactly when an
	// existing one ends does not collide with it.
	existingStart := fixedNow().Add(time.Hour)
	existing := &model.Reservation{
		ID:        testResID,
		SpaceID:   testSpaceID,
		StartTime: existingStart,
		EndTime:   existingStart.Add(time.Hour),
		Status:    model.ReservationActive,
	}
	repo := &mockReservationRepo{
		findOverlappingFunc: func(ctx context.Context, spaceID string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
			if existing.SpaceID == spaceID && existing.Overlaps(start, end) {
				return []*model.Reservation{existing}, nil
			}
			return []*model.Reservation{}, nil
		},
	}
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceOccupied, Category: model.CategoryNormal})
	coordinator := testCoordinator(repo, &mockLockRepo{}, spaceRepo, &mockSink{})

	_, err := coordinator.Create(userCtx(testOwnerID), newReservation(existing.EndTime, existing.EndTime.Add(time.Hour)))
	if err != nil {
		t.Fatalf("touching windows must be compatible: %v", err)
	}
}

func TestCreate_FailureAfterInsertAbortsTransaction(t *testing.T) {
	// The space status write fails after the reservation insert. The
	// transaction must surface the error so nothing commits.
	repo := &mockReservationRepo{}
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceFree, Category: model.CategoryNormal})
	spaceRepo.setStatus = func(ctx context.Context, id string, from, to model.SpaceStatus) error {
		return spaceStateMismatchErr
	}
	sink := &mockSink{}
	coordinator := testCoordinator(repo, &mockLockRepo{}, spaceRepo, sink)

	start := fixedNow().Add(time.Hour)
	_, err := coordinator.Create(userCtx(testOwnerID), newReservation(start, start.Add(time.Hour)))
	assertCode(t, err, apperrors.CodeInternal)
	if len(sink.kinds()) != 0 {
		t.Error("no audit event may be recorded for an aborted transaction")
	}
}

// --- Cancel / Finish ---

func activeReservationRepo(status model.ReservationStatus) *mockReservationRepo {
	return &mockReservationRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return &model.Reservation{
				ID:        id,
				SpaceID:   testSpaceID,
				OwnerID:   testOwnerID,
				VehicleID: testVehicleID,
				StartTime: fixedNow().Add(time.Hour),
				EndTime:   fixedNow().Add(2 * time.Hour),
				Status:    status,
			}, nil
		},
	}
}

func TestCancel_Success_FreesSpace(t *testing.T) {
	repo := activeReservationRepo(model.ReservationActive)
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceOccupied, Category: model.CategoryNormal})
	sink := &mockSink{}
	coordinator := testCoordinator(repo, &mockLockRepo{}, spaceRepo, sink)

	reservation, err := coordinator.Cancel(userCtx(testOwnerID), testResID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reservation.Status != model.ReservationCancelled {
		t.Errorf("expected cancelled status, got %s", reservation.Status)
	}

	space, _ := spaceRepo.FindByID(context.Background(), testSpaceID)
	if space.Status != model.SpaceFree {
		t.Errorf("expected space freed after cancel, got %s", space.Status)
	}
	if kinds := sink.kinds(); len(kinds) != 1 || kinds[0] != audit.EventReservationCancelled {
		t.Errorf("expected one cancelled audit event, got %v", kinds)
	}
}

func TestCancel_KeepsSpaceOccupiedWhileOthersActive(t *testing.T) {
	repo := activeReservationRepo(model.ReservationActive)
	repo.countActiveFunc = func(ctx context.Context, spaceID string) (int64, error) {
		return 1, nil
	}
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceOccupied, Category: model.CategoryNormal})
	coordinator := testCoordinator(repo, &mockLockRepo{}, spaceRepo, &mockSink{})

	if _, err := coordinator.Cancel(userCtx(testOwnerID), testResID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	space, _ := spaceRepo.FindByID(context.Background(), testSpaceID)
	if space.Status != model.SpaceOccupied {
		t.Errorf("space with remaining active reservations must stay occupied, got %s", space.Status)
	}
}

func TestCancel_TerminalReservationIsInvalidState(t *testing.T) {
	for _, status := range []model.ReservationStatus{model.ReservationCancelled, model.ReservationFinalized} {
		repo := activeReservationRepo(status)
		coordinator := testCoordinator(repo, &mockLockRepo{}, newMockSpaceRepo(), &mockSink{})

		_, err := coordinator.Cancel(userCtx(testOwnerID), testResID)
		assertCode(t, err, apperrors.CodeInvalidState)
	}
}

func TestCancel_ForbiddenForOtherOwner(t *testing.T) {
	repo := activeReservationRepo(model.ReservationActive)
	coordinator := testCoordinator(repo, &mockLockRepo{}, newMockSpaceRepo(), &mockSink{})

	_, err := coordinator.Cancel(userCtx("999999999999999999999999"), testResID)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestCancel_RaceOnStatusIsInvalidState(t *testing.T) {
	repo := activeReservationRepo(model.ReservationActive)
	repo.updateStatusFunc = func(ctx context.Context, id string, from, to model.ReservationStatus) error {
		return reservationserrors.ErrStateMismatch
	}
	coordinator := testCoordinator(repo, &mockLockRepo{}, newMockSpaceRepo(), &mockSink{})

	_, err := coordinator.Cancel(userCtx(testOwnerID), testResID)
	assertCode(t, err, apperrors.CodeInvalidState)
}

func TestFinish_Success(t *testing.T) {
	repo := activeReservationRepo(model.ReservationActive)
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceOccupied, Category: model.CategoryNormal})
	sink := &mockSink{}
	coordinator := testCoordinator(repo, &mockLockRepo{}, spaceRepo, sink)

	ctx := auth.WithPrincipal(context.Background(), auth.Principal{ID: "staff-1", Role: auth.RoleStaff})
	reservation, err := coordinator.Finish(ctx, testResID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reservation.Status != model.ReservationFinalized {
		t.Errorf("expected finalized status, got %s", reservation.Status)
	}
	if kinds := sink.kinds(); len(kinds) != 1 || kinds[0] != audit.EventReservationFinished {
		t.Errorf("expected one finished audit event, got %v", kinds)
	}
}

func TestFinish_ForbiddenForOwner(t *testing.T) {
	// Finishing is a staff action at the gate. The owner of the reservation
	// does not get to finalize their own stay.
	repo := activeReservationRepo(model.ReservationActive)
	var updated bool
	repo.updateStatusFunc = func(ctx context.Context, id string, from, to model.ReservationStatus) error {
		updated = true
		return nil
	}
	coordinator := testCoordinator(repo, &mockLockRepo{}, newMockSpaceRepo(), &mockSink{})

	_, err := coordinator.Finish(userCtx(testOwnerID), testResID)
	assertCode(t, err, apperrors.CodeForbidden)
	if updated {
		t.Error("a forbidden finish must not touch the reservation")
	}
}

func TestCancel_NotFound(t *testing.T) {
	coordinator := testCoordinator(&mockReservationRepo{}, &mockLockRepo{}, newMockSpaceRepo(), &mockSink{})

	_, err := coordinator.Cancel(userCtx(testOwnerID), testResID)
	assertCode(t, err, apperrors.CodeNotFound)
}

// --- Concurrency ---

func TestCreate_ConcurrentRequestsSingleWinner(t *testing.T) {
	var mu sync.Mutex
	var inserted []*model.Reservation

	repo := &mockReservationRepo{
		createFunc: func(ctx context.Context, r *model.Reservation) error {
			mu.Lock()
			defer mu.Unlock()
			r.ID = testResID
			copied := *r
			inserted = append(inserted, &copied)
			return nil
		},
		findOverlappingFunc: func(ctx context.Context, spaceID string, start, end time.Time, excludeID string) ([]*model.Reservation, error) {
			mu.Lock()
			defer mu.Unlock()
			var overlapping []*model.Reservation
			for _, r := range inserted {
				if r.SpaceID == spaceID && r.Overlaps(start, end) {
					overlapping = append(overlapping, r)
				}
			}
			return overlapping, nil
		},
	}
	spaceRepo := newMockSpaceRepo(&model.Space{ID: testSpaceID, Status: model.SpaceFree, Category: model.CategoryNormal})
	coordinator := testCoordinator(repo, newMemoryLockRepo(), spaceRepo, &mockSink{})

	start := fixedNow().Add(time.Hour)
	end := start.Add(2 * time.Hour)

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coordinator.Create(userCtx(testOwnerID), newReservation(start, end))
		}(i)
	}
	wg.Wait()

	var successes int
	for i, err := range errs {
		if err == nil {
			successes++
			continue
		}
		appErr := apperrors.AsAppError(err)
		if !appErr.Retryable() {
			t.Errorf("worker %d: losing request must fail retryable, got %v", i, err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly one winner, got %d", successes)
	}
	if len(inserted) != 1 {
		t.Errorf("expected exactly one reservation in the ledger, got %d", len(inserted))
	}
}
