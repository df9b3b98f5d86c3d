package backend

import (
	"context"
	"net/http"
	"time"
)

// Event is a scheduled civic event.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Location  string    `json:"location"`
	StartsAt  time.Time `json:"starts_at"`
	Attendees int       `json:"attendees"`
}

// EventInput carries create fields for an event.
type EventInput struct {
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at"`
}

// Petition collects signatures toward a backend-owned threshold.
type Petition struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Status     string    `json:"status"`
	Signatures int       `json:"signatures"`
	Deadline   time.Time `json:"deadline"`
}

// PetitionInput carries create fields for a petition.
type PetitionInput struct {
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Deadline time.Time `json:"deadline"`
}

// Poll is a running or closed poll; tallying is backend-owned.
type Poll struct {
	ID       string       `json:"id"`
	Question string       `json:"question"`
	Options  []PollOption `json:"options"`
	ClosesAt time.Time    `json:"closes_at"`
	Closed   bool         `json:"closed"`
}

// PollOption is one answer with its current tally.
type PollOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

// ListEvents returns upcoming events.
func (c *Client) ListEvents(ctx context.Context, token string, page int) (*Page[Event], error) {
	var out Page[Event]
	if err := c.do(ctx, token, http.MethodGet, "/v1/events", listQuery(page), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEvent fetches one event.
func (c *Client) GetEvent(ctx context.Context, token, id string) (*Event, error) {
	var out Event
	if err := c.do(ctx, token, http.MethodGet, "/v1/events/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateEvent submits a new event.
func (c *Client) CreateEvent(ctx context.Context, token string, in EventInput) (*Event, error) {
	var out Event
	if err := c.do(ctx, token, http.MethodPost, "/v1/events", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AttendEvent registers the caller as an attendee.
func (c *Client) AttendEvent(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodPost, "/v1/events/"+id+"/attend", nil, nil, nil)
}

// ListPetitions returns open petitions.
func (c *Client) ListPetitions(ctx context.Context, token string, page int) (*Page[Petition], error) {
	var out Page[Petition]
	if err := c.do(ctx, token, http.MethodGet, "/v1/petitions", listQuery(page), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPetition fetches one petition with its current signature count.
func (c *Client) GetPetition(ctx context.Context, token, id string) (*Petition, error) {
	var out Petition
	if err := c.do(ctx, token, http.MethodGet, "/v1/petitions/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePetition submits a new petition.
func (c *Client) CreatePetition(ctx context.Context, token string, in PetitionInput) (*Petition, error) {
	var out Petition
	if err := c.do(ctx, token, http.MethodPost, "/v1/petitions", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignPetition adds the caller's signature; double signing surfaces as
// httpx.ErrDuplicate.
func (c *Client) SignPetition(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodPost, "/v1/petitions/"+id+"/sign", nil, nil, nil)
}

// ListPolls returns current polls.
func (c *Client) ListPolls(ctx context.Context, token string, page int) (*Page[Poll], error) {
	var out Page[Poll]
	if err := c.do(ctx, token, http.MethodGet, "/v1/polls", listQuery(page), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPoll fetches one poll with tallies.
func (c *Client) GetPoll(ctx context.Context, token, id string) (*Poll, error) {
	var out Poll
	if err := c.do(ctx, token, http.MethodGet, "/v1/polls/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VotePoll casts a vote for one option.
func (c *Client) VotePoll(ctx context.Context, token, id, optionID string) error {
	body := map[string]string{"option_id": optionID}
	return c.do(ctx, token, http.MethodPost, "/v1/polls/"+id+"/vote", nil, body, nil)
}
