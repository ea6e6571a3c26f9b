// Package client talks to the remote venue/challenge server. The server
// issues exactly one candidate at a time and blocks on the next request, so
// every call here sits on the critical path of the decision loop.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"context"

	"github.com/XiaoConstantine/bouncer-go/pkg/errors"
	"github.com/XiaoConstantine/bouncer-go/pkg/game"
)

// Status is the session state reported by the game server.
type Status int

const (
	StatusRunning Status = iota
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func parseStatus(s string) (Status, error) {
	switch s {
	case "running":
		return StatusRunning, nil
	case "completed":
		return StatusCompleted, nil
	case "failed":
		return StatusFailed, nil
	default:
		return StatusFailed, errors.WithFields(
			errors.New(errors.InvalidGameState, "unknown game status"),
			errors.Fields{"status": s})
	}
}

// AttributeStatistics is the population picture the server shares at game
// start: rough attribute frequencies and pairwise correlations.
type AttributeStatistics struct {
	RelativeFrequencies map[string]float64            `json:"relativeFrequencies"`
	Correlations        map[string]map[string]float64 `json:"correlations"`
}

// NewGameResponse is the session handshake.
type NewGameResponse struct {
	GameID              string                `json:"gameId"`
	Constraints         []game.ConstraintSpec `json:"constraints"`
	AttributeStatistics AttributeStatistics   `json:"attributeStatistics"`
}

// Person is one arrival awaiting a decision.
type Person struct {
	PersonIndex int            `json:"personIndex"`
	Attributes  game.Candidate `json:"attributes"`
}

// StepResponse is the server's answer to a decision (or to the initial
// fetch): either the next arrival or a terminal state.
type StepResponse struct {
	Status        Status
	NextPerson    *Person
	RejectedCount int
	Reason        string
}

type stepWire struct {
	Status        string  `json:"status"`
	NextPerson    *Person `json:"nextPerson"`
	RejectedCount int     `json:"rejectedCount"`
	Reason        string  `json:"reason"`
}

const defaultRequestTimeout = 30 * time.Second

// Client is an HTTP client for the game server.
type Client struct {
	baseURL    string
	playerID   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. Game-server calls are fatal on
// failure, so the timeout bounds how long a dead server can hang a session.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a game server client.
func New(baseURL, playerID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		playerID:   playerID,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGame starts a session for the scenario and returns the quota set and
// population statistics.
func (c *Client) NewGame(ctx context.Context, scenario int) (*NewGameResponse, error) {
	params := url.Values{}
	params.Set("scenario", strconv.Itoa(scenario))
	params.Set("playerId", c.playerID)

	body, err := c.get(ctx, "/new-game", params)
	if err != nil {
		return nil, err
	}

	var resp NewGameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.InvalidGameState, "malformed new-game response")
	}
	if resp.GameID == "" {
		return nil, errors.New(errors.InvalidGameState, "new-game response missing gameId")
	}
	return &resp, nil
}

// DecideAndNext reports a decision for personIndex and fetches the next
// arrival. Pass accept == nil for the initial fetch, which carries no
// decision.
func (c *Client) DecideAndNext(ctx context.Context, gameID string, personIndex int, accept *bool) (*StepResponse, error) {
	params := url.Values{}
	params.Set("gameId", gameID)
	params.Set("personIndex", strconv.Itoa(personIndex))
	if accept != nil {
		params.Set("accept", strconv.FormatBool(*accept))
	}

	body, err := c.get(ctx, "/decide-and-next", params)
	if err != nil {
		return nil, err
	}

	var wire stepWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, errors.Wrap(err, errors.InvalidGameState, "malformed decide-and-next response")
	}

	status, err := parseStatus(wire.Status)
	if err != nil {
		return nil, err
	}
	if status == StatusRunning && wire.NextPerson == nil {
		return nil, errors.New(errors.InvalidGameState, "running response missing nextPerson")
	}

	return &StepResponse{
		Status:        status,
		NextPerson:    wire.NextPerson,
		RejectedCount: wire.RejectedCount,
		Reason:        wire.Reason,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.GameTransport, "failed to build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.GameTransport, "game server request failed"),
			errors.Fields{"path": path})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.GameTransport, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithFields(
			errors.New(errors.GameTransport, "game server returned non-OK status"),
			errors.Fields{"path": path, "status_code": resp.StatusCode})
	}

	return body, nil
}
