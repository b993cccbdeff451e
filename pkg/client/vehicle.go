package client

import (
	"context"
	"net/url"
)

// VehicleClient talks to an external vehicle registry service over HTTP.
type VehicleClient struct {
	httpClient *HttpClient
}

func NewVehicleClient(baseURL string) *VehicleClient {
	return &VehicleClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *VehicleClient) GetByID(ctx context.Context, id string) (*Response, error) {
	path := "/api/v1/vehicles/id/" + url.PathEscape(id)
	return c.httpClient.GET(ctx, path)
}
