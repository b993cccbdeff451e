package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"parkade/pkg/model"
	"testing"
)

func TestHTTPVehicleRegistry_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/vehicles/id/333333333333333333333333" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": model.Vehicle{
				ID:      "333333333333333333333333",
				OwnerID: "222222222222222222222222",
				Plate:   "AB123CD",
			},
		})
	}))
	defer server.Close()

	reg := NewHTTPVehicleRegistry(server.URL)

	vehicle, err := reg.Resolve(context.Background(), "333333333333333333333333")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vehicle.OwnerID != "222222222222222222222222" {
		t.Errorf("expected owner ID to round-trip, got %q", vehicle.OwnerID)
	}

	_, err = reg.Resolve(context.Background(), "999999999999999999999999")
	if !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("expected ErrVehicleNotFound for unknown vehicle, got %v", err)
	}
}

func TestHTTPVehicleRegistry_Resolve_HonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reg := NewHTTPVehicleRegistry(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := reg.Resolve(ctx, "333333333333333333333333"); err == nil {
		t.Error("expected a cancelled context to abort the lookup")
	}
}
