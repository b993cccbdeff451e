package service

import (
	"context"
	"errors"
	"parkade/internal/registry"
	reservationserrors "parkade/internal/reservations/errors"
	"parkade/internal/reservations/repository"
	"parkade/internal/reservations/validator"
	spaceserrors "parkade/internal/spaces/errors"
	spacesrepo "parkade/internal/spaces/repository"
	"parkade/pkg/audit"
	"parkade/pkg/auth"
	"parkade/pkg/config"
	apperrors "parkade/pkg/errors"
	"parkade/pkg/model"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// ReservationCoordinator owns every reservation mutation. Each one runs under
// the space's advisory lock and inside a single transaction, so the
// reservation ledger and the space status mirror can never disagree.
type ReservationCoordinator interface {
	Create(ctx context.Context, reservation *model.Reservation) (*model.ReservationDetails, error)
	Cancel(ctx context.Context, id string) (*model.Reservation, error)
	Finish(ctx context.Context, id string) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.ReservationDetails, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error)
	GetActive(ctx context.Context, spaceID string, limit int, offset int64) ([]*model.Reservation, int64, error)
	GetByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, int64, error)
}

type reservationCoordinator struct {
	repo      repository.ReservationRepository
	lockRepo  repository.SpaceLockRepository
	spaceRepo spacesrepo.SpaceRepository
	conflicts *ConflictChecker
	validator *validator.ReservationValidator
	vehicles  registry.VehicleRegistry
	owners    registry.OwnerDirectory
	sink      audit.Sink
	cfg       *config.Config

	// now is swappable for tests that pin the clock.
	now func() time.Time
}

func NewReservationCoordinator(
	repo repository.ReservationRepository,
	lockRepo repository.SpaceLockRepository,
	spaceRepo spacesrepo.SpaceRepository,
	validator *validator.ReservationValidator,
	vehicles registry.VehicleRegistry,
	owners registry.OwnerDirectory,
	sink audit.Sink,
	cfg *config.Config,
) ReservationCoordinator {
	return &reservationCoordinator{
		repo:      repo,
		lockRepo:  lockRepo,
		spaceRepo: spaceRepo,
		conflicts: NewConflictChecker(repo),
		validator: validator,
		vehicles:  vehicles,
		owners:    owners,
		sink:      sink,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *reservationCoordinator) Create(ctx context.Context, reservation *model.Reservation) (*model.ReservationDetails, error) {
	principal, err := s.requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !auth.CanActFor(principal, reservation.OwnerID) {
		return nil, apperrors.Forbidden("Cannot create reservations for another owner")
	}

	reservation.Status = model.ReservationActive
	if err := s.validator.Validate(reservation, s.now().UTC(), s.cfg.ReservationMaxWindow); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	owner, err := s.resolveOwner(ctx, reservation.OwnerID)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.resolveVehicle(ctx, reservation.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.OwnerID != reservation.OwnerID {
		return nil, apperrors.Forbidden("Vehicle is not registered to the reservation owner").WithDetails(map[string]any{
			"vehicle_id": reservation.VehicleID,
			"owner_id":   reservation.OwnerID,
		})
	}

	lockID, err := s.acquireSpaceLock(ctx, reservation.SpaceID)
	if err != nil {
		return nil, err
	}
	defer s.releaseSpaceLock(ctx, lockID)

	var space *model.Space
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		space, err = s.findSpace(sessCtx, reservation.SpaceID)
		if err != nil {
			return err
		}
		if space.Status == model.SpaceMaintenance {
			return apperrors.Conflict("Space is unavailable")
		}

		if err := s.conflicts.Check(sessCtx, reservation.SpaceID, reservation.StartTime, reservation.EndTime, ""); err != nil {
			return err
		}

		if err := s.repo.Create(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}

		if space.Status == model.SpaceFree {
			if err := s.setSpaceStatus(sessCtx, space, model.SpaceOccupied); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation",
			"space_id", reservation.SpaceID,
			"owner_id", reservation.OwnerID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"space_id", reservation.SpaceID,
		"owner_id", reservation.OwnerID,
		"start_time", reservation.StartTime,
		"end_time", reservation.EndTime,
	)
	s.sink.Record(ctx, audit.Event{
		Kind:    audit.EventReservationCreated,
		ActorID: principal.ID,
		SubjectIDs: map[string]string{
			"reservation_id": reservation.ID,
			"space_id":       reservation.SpaceID,
			"owner_id":       reservation.OwnerID,
		},
		Metadata: map[string]any{
			"start_time": reservation.StartTime.Format(time.RFC3339),
			"end_time":   reservation.EndTime.Format(time.RFC3339),
		},
	})

	return &model.ReservationDetails{
		Reservation: reservation,
		Space:       space,
		Owner:       owner,
		Vehicle:     vehicle,
	}, nil
}

func (s *reservationCoordinator) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	return s.conclude(ctx, id, model.ReservationCancelled, audit.EventReservationCancelled)
}

func (s *reservationCoordinator) Finish(ctx context.Context, id string) (*model.Reservation, error) {
	return s.conclude(ctx, id, model.ReservationFinalized, audit.EventReservationFinished)
}

// conclude moves an active reservation to a terminal state and releases the
// space when no other active reservation still claims it.
func (s *reservationCoordinator) conclude(ctx context.Context, id string, to model.ReservationStatus, eventKind string) (*model.Reservation, error) {
	principal, err := s.requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	reservation, err := s.findReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	// Finishing marks the stay as completed at the gate, so it is reserved
	// for facility staff. Owners may only cancel.
	if to == model.ReservationFinalized {
		if !auth.IsElevated(principal) {
			return nil, apperrors.Forbidden("Only staff can finish a reservation")
		}
	} else if !auth.CanActFor(principal, reservation.OwnerID) {
		return nil, apperrors.Forbidden("Cannot modify reservations of another owner")
	}
	if !model.CanTransitionReservation(reservation.Status, to) {
		return nil, apperrors.InvalidState("Reservation is already " + string(reservation.Status))
	}

	lockID, err := s.acquireSpaceLock(ctx, reservation.SpaceID)
	if err != nil {
		return nil, err
	}
	defer s.releaseSpaceLock(ctx, lockID)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		err := s.repo.UpdateStatus(sessCtx, id, model.ReservationActive, to)
		if err != nil {
			if errors.Is(err, reservationserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Reservation", id)
			}
			if errors.Is(err, reservationserrors.ErrStateMismatch) {
				return apperrors.InvalidState("Reservation was concluded by another request")
			}
			return apperrors.Internal("Failed to update reservation status", err)
		}

		remaining, err := s.repo.CountActive(sessCtx, reservation.SpaceID)
		if err != nil {
			return apperrors.Internal("Failed to count active reservations", err)
		}
		if remaining > 0 {
			return nil
		}

		space, err := s.findSpace(sessCtx, reservation.SpaceID)
		if err != nil {
			return err
		}
		if space.Status == model.SpaceOccupied {
			if err := s.setSpaceStatus(sessCtx, space, model.SpaceFree); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to conclude reservation", "id", id, "to", to, "error", err)
		return nil, err
	}

	reservation.Status = to
	s.cfg.Log.Info("Reservation concluded", "id", id, "status", to)
	s.sink.Record(ctx, audit.Event{
		Kind:    eventKind,
		ActorID: principal.ID,
		SubjectIDs: map[string]string{
			"reservation_id": reservation.ID,
			"space_id":       reservation.SpaceID,
			"owner_id":       reservation.OwnerID,
		},
	})

	return reservation, nil
}

func (s *reservationCoordinator) GetByID(ctx context.Context, id string) (*model.ReservationDetails, error) {
	reservation, err := s.findReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	// Hydration is best effort. A missing reference is logged but does not
	// fail the read.
	details := &model.ReservationDetails{Reservation: reservation}

	if space, err := s.spaceRepo.FindByID(ctx, reservation.SpaceID); err == nil {
		details.Space = space
	} else {
		s.cfg.Log.Warn("Failed to hydrate space", "reservation_id", id, "space_id", reservation.SpaceID, "error", err)
	}
	if owner, err := s.owners.Resolve(ctx, reservation.OwnerID); err == nil {
		details.Owner = owner
	} else {
		s.cfg.Log.Warn("Failed to hydrate owner", "reservation_id", id, "owner_id", reservation.OwnerID, "error", err)
	}
	if vehicle, err := s.vehicles.Resolve(ctx, reservation.VehicleID); err == nil {
		details.Vehicle = vehicle
	} else {
		s.cfg.Log.Warn("Failed to hydrate vehicle", "reservation_id", id, "vehicle_id", reservation.VehicleID, "error", err)
	}

	return details, nil
}

func (s *reservationCoordinator) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Reservation, int64, error) {
	return s.list(ctx,
		func() (int64, error) { return s.repo.Count(ctx) },
		func() ([]*model.Reservation, error) { return s.repo.FindAll(ctx, limit, offset) },
	)
}

func (s *reservationCoordinator) GetActive(ctx context.Context, spaceID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	return s.list(ctx,
		func() (int64, error) { return s.repo.CountActive(ctx, spaceID) },
		func() ([]*model.Reservation, error) { return s.repo.FindActive(ctx, spaceID, limit, offset) },
	)
}

func (s *reservationCoordinator) GetByOwner(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if ownerID == "" {
		return nil, 0, apperrors.InvalidInput("Owner ID cannot be empty")
	}
	return s.list(ctx,
		func() (int64, error) { return s.repo.CountByOwner(ctx, ownerID) },
		func() ([]*model.Reservation, error) { return s.repo.FindByOwner(ctx, ownerID, limit, offset) },
	)
}

// --- Helpers ---

func (s *reservationCoordinator) list(
	ctx context.Context,
	count func() (int64, error),
	find func() ([]*model.Reservation, error),
) ([]*model.Reservation, int64, error) {
	var total int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = count()
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = find()
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, total, nil
}

func (s *reservationCoordinator) findReservation(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	return reservation, nil
}

func (s *reservationCoordinator) findSpace(ctx context.Context, spaceID string) (*model.Space, error) {
	space, err := s.spaceRepo.FindByID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, spaceserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Space", spaceID)
		}
		if errors.Is(err, spaceserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid space ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve space", err)
	}
	return space, nil
}

func (s *reservationCoordinator) setSpaceStatus(ctx context.Context, space *model.Space, to model.SpaceStatus) error {
	if err := s.spaceRepo.SetStatus(ctx, space.ID, space.Status, to); err != nil {
		return apperrors.Internal("Failed to update space status", err)
	}
	space.Status = to
	return nil
}

func (s *reservationCoordinator) resolveOwner(ctx context.Context, ownerID string) (*model.Owner, error) {
	owner, err := s.owners.Resolve(ctx, ownerID)
	if err != nil {
		if errors.Is(err, registry.ErrOwnerNotFound) {
			return nil, apperrors.NotFoundWithID("Owner", ownerID)
		}
		if errors.Is(err, registry.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid owner ID format")
		}
		return nil, apperrors.Internal("Failed to resolve owner", err)
	}
	return owner, nil
}

func (s *reservationCoordinator) resolveVehicle(ctx context.Context, vehicleID string) (*model.Vehicle, error) {
	vehicle, err := s.vehicles.Resolve(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, registry.ErrVehicleNotFound) {
			return nil, apperrors.NotFoundWithID("Vehicle", vehicleID)
		}
		if errors.Is(err, registry.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid vehicle ID format")
		}
		return nil, apperrors.Internal("Failed to resolve vehicle", err)
	}
	return vehicle, nil
}

// acquireSpaceLock serializes all mutations for one space. A held lock means
// another request is mid-flight, which the caller may simply retry.
func (s *reservationCoordinator) acquireSpaceLock(ctx context.Context, spaceID string) (string, error) {
	lockID, err := s.lockRepo.Acquire(ctx, spaceID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrLockHeld) {
			return "", apperrors.Conflict("This space is currently being modified by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire space lock", err)
	}
	return lockID, nil
}

func (s *reservationCoordinator) releaseSpaceLock(ctx context.Context, lockID string) {
	if err := s.lockRepo.Release(ctx, lockID); err != nil {
		s.cfg.Log.Warn("Failed to release space lock", "lock_id", lockID, "error", err)
	}
}

func (s *reservationCoordinator) requirePrincipal(ctx context.Context) (auth.Principal, error) {
	principal, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Principal{}, apperrors.Unauthorized("Missing caller identity")
	}
	return principal, nil
}
