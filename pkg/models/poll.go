package models

import "time"

// Poll is a trip decision with votable options. UserVoteID carries the
// id of the option the calling user voted for, empty when they have
// not voted. Voting is single-shot per poll.
type Poll struct {
	ID          string       `json:"id"`
	TripID      string       `json:"trip_id"`
	Question    string       `json:"question"`
	Description string       `json:"description,omitempty"`
	IsActive    bool         `json:"is_active"`
	ClosesAt    *time.Time   `json:"closes_at,omitempty"`
	Options     []PollOption `json:"options"`
	UserVoteID  string       `json:"user_vote_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type PollOption struct {
	ID        string    `json:"id"`
	PollID    string    `json:"poll_id"`
	Text      string    `json:"text"`
	Order     int       `json:"order"`
	VoteCount int       `json:"vote_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Option returns a pointer to the option with the given id, or nil.
func (p *Poll) Option(id string) *PollOption {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}

// Clone deep-copies the poll so optimistic edits never alias the
// snapshot they may have to roll back to.
func (p Poll) Clone() Poll {
	out := p
	out.Options = make([]PollOption, len(p.Options))
	copy(out.Options, p.Options)
	if p.ClosesAt != nil {
		t := *p.ClosesAt
		out.ClosesAt = &t
	}
	return out
}

// SortPolls orders polls newest-first.
func SortPolls(polls []Poll) {
	sortSlice(polls, func(a, b Poll) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
