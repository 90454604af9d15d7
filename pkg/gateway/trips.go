package gateway

import (
	"context"

	"tripsync/pkg/models"
)

// ListTrips fetches every trip visible to the caller.
func (c *Client) ListTrips(ctx context.Context) ([]models.Trip, error) {
	var out []models.Trip
	if err := c.doJSON(ctx, "gateway.ListTrips", "GET", "/api/v1/trips/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrip fetches one trip by id.
func (c *Client) GetTrip(ctx context.Context, id string) (models.Trip, error) {
	var out models.Trip
	if err := c.doJSON(ctx, "gateway.GetTrip", "GET", "/api/v1/trips/"+id+"/", nil, &out); err != nil {
		return models.Trip{}, err
	}
	return out, nil
}

// CreateTrip creates a trip and returns the server's authoritative row.
func (c *Client) CreateTrip(ctx context.Context, t models.Trip) (models.Trip, error) {
	var out models.Trip
	if err := c.doJSON(ctx, "gateway.CreateTrip", "POST", "/api/v1/trips/", t, &out); err != nil {
		return models.Trip{}, err
	}
	return out, nil
}

// UpdateTrip updates a trip and returns the server's authoritative row.
func (c *Client) UpdateTrip(ctx context.Context, t models.Trip) (models.Trip, error) {
	var out models.Trip
	if err := c.doJSON(ctx, "gateway.UpdateTrip", "PATCH", "/api/v1/trips/"+t.ID+"/", t, &out); err != nil {
		return models.Trip{}, err
	}
	return out, nil
}

// DeleteTrip deletes a trip.
func (c *Client) DeleteTrip(ctx context.Context, id string) error {
	return c.doJSON(ctx, "gateway.DeleteTrip", "DELETE", "/api/v1/trips/"+id+"/", nil, nil)
}
