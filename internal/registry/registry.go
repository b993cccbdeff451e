// Package registry provides read-only access to collaborator-owned data:
// the vehicle registry and the owner directory. The reservation core only
// ever resolves records here; it never mutates them.
package registry

import (
	"context"
	"errors"
	"parkade/pkg/model"
)

var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrOwnerNotFound   = errors.New("owner not found")
	ErrInvalidID       = errors.New("invalid ID format")
)

type VehicleRegistry interface {
	Resolve(ctx context.Context, vehicleID string) (*model.Vehicle, error)
}

type OwnerDirectory interface {
	Resolve(ctx context.Context, ownerID string) (*model.Owner, error)
}
