package registry

import (
	"context"
	"fmt"
	"net/http"
	"parkade/pkg/client"
	"parkade/pkg/model"
)

type httpVehicleRegistry struct {
	client *client.VehicleClient
}

// NewHTTPVehicleRegistry resolves vehicles against an external registry
// service. The lookup is a plain read and intentionally runs outside the
// reservation transaction.
func NewHTTPVehicleRegistry(baseURL string) VehicleRegistry {
	return &httpVehicleRegistry{
		client: client.NewVehicleClient(baseURL),
	}
}

func (r *httpVehicleRegistry) Resolve(ctx context.Context, vehicleID string) (*model.Vehicle, error) {
	resp, err := r.client.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("vehicle registry request failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrVehicleNotFound
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, vehicleID)
	default:
		return nil, fmt.Errorf("vehicle registry returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data model.Vehicle `json:"data"`
	}
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode vehicle registry response: %w", err)
	}

	return &payload.Data, nil
}
