package gateway

import (
	"context"

	"tripsync/pkg/models"
)

// ListPolls fetches the polls of one trip.
func (c *Client) ListPolls(ctx context.Context, tripID string) ([]models.Poll, error) {
	var out []models.Poll
	if err := c.doJSON(ctx, "gateway.ListPolls", "GET", "/api/v1/polls/?trip="+tripID, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPoll fetches one poll by id, options and the caller's vote included.
func (c *Client) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	var out models.Poll
	if err := c.doJSON(ctx, "gateway.GetPoll", "GET", "/api/v1/polls/"+id+"/", nil, &out); err != nil {
		return models.Poll{}, err
	}
	return out, nil
}

// CreatePoll creates a poll with its options.
func (c *Client) CreatePoll(ctx context.Context, p models.Poll) (models.Poll, error) {
	var out models.Poll
	if err := c.doJSON(ctx, "gateway.CreatePoll", "POST", "/api/v1/polls/", p, &out); err != nil {
		return models.Poll{}, err
	}
	return out, nil
}

// DeletePoll deletes a poll.
func (c *Client) DeletePoll(ctx context.Context, id string) error {
	return c.doJSON(ctx, "gateway.DeletePoll", "DELETE", "/api/v1/polls/"+id+"/", nil, nil)
}

type voteRequest struct {
	OptionID string `json:"option_id"`
}

// Vote casts the caller's vote for an option. The server rejects a
// second vote for the same option; poll state is re-read afterwards by
// the caller for authoritative totals.
func (c *Client) Vote(ctx context.Context, pollID, optionID string) error {
	return c.doJSON(ctx, "gateway.Vote", "POST", "/api/v1/polls/"+pollID+"/vote/", voteRequest{OptionID: optionID}, nil)
}

// Unvote retracts the caller's vote for an option.
func (c *Client) Unvote(ctx context.Context, pollID, optionID string) error {
	return c.doJSON(ctx, "gateway.Unvote", "DELETE", "/api/v1/polls/"+pollID+"/vote/", voteRequest{OptionID: optionID}, nil)
}
