package gateway

import (
	"context"

	"tripsync/pkg/models"
)

// ListItineraries fetches the itineraries of one trip, items included.
func (c *Client) ListItineraries(ctx context.Context, tripID string) ([]models.Itinerary, error) {
	var out []models.Itinerary
	if err := c.doJSON(ctx, "gateway.ListItineraries", "GET", "/api/v1/itineraries/?trip="+tripID, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetItinerary fetches one itinerary by id.
func (c *Client) GetItinerary(ctx context.Context, id string) (models.Itinerary, error) {
	var out models.Itinerary
	if err := c.doJSON(ctx, "gateway.GetItinerary", "GET", "/api/v1/itineraries/"+id+"/", nil, &out); err != nil {
		return models.Itinerary{}, err
	}
	return out, nil
}

// CreateItinerary creates an itinerary day.
func (c *Client) CreateItinerary(ctx context.Context, it models.Itinerary) (models.Itinerary, error) {
	var out models.Itinerary
	if err := c.doJSON(ctx, "gateway.CreateItinerary", "POST", "/api/v1/itineraries/", it, &out); err != nil {
		return models.Itinerary{}, err
	}
	return out, nil
}

// CreateItem adds an item to an itinerary.
func (c *Client) CreateItem(ctx context.Context, item models.ItineraryItem) (models.ItineraryItem, error) {
	var out models.ItineraryItem
	if err := c.doJSON(ctx, "gateway.CreateItem", "POST", "/api/v1/itineraries/items/", item, &out); err != nil {
		return models.ItineraryItem{}, err
	}
	return out, nil
}

// UpdateItem updates an item.
func (c *Client) UpdateItem(ctx context.Context, item models.ItineraryItem) (models.ItineraryItem, error) {
	var out models.ItineraryItem
	if err := c.doJSON(ctx, "gateway.UpdateItem", "PATCH", "/api/v1/itineraries/items/"+item.ID+"/", item, &out); err != nil {
		return models.ItineraryItem{}, err
	}
	return out, nil
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.doJSON(ctx, "gateway.DeleteItem", "DELETE", "/api/v1/itineraries/items/"+id+"/", nil, nil)
}

type reorderRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type reorderResponse struct {
	Detail string                 `json:"detail"`
	Items  []models.ItineraryItem `json:"items"`
}

// ReorderItems applies the given id order server-side; the first id
// gets order 0. Returns the server's resulting item list.
func (c *Client) ReorderItems(ctx context.Context, itineraryID string, ids []string) ([]models.ItineraryItem, error) {
	var out reorderResponse
	path := "/api/v1/itineraries/" + itineraryID + "/items/reorder/"
	if err := c.doJSON(ctx, "gateway.ReorderItems", "POST", path, reorderRequest{ItemIDs: ids}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
