package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	retryBackoffStep  = 500 * time.Millisecond
)

// Client issues requests against the gym server with bounded retry.
// It is the single request primitive every higher layer goes through;
// within one environment instance requests are strictly sequential.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

type ClientOption func(c *Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithMaxRetries(retries int) ClientOption {
	return func(c *Client) {
		if retries > 0 {
			c.maxRetries = retries
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(host string, port int, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", host, port),
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// BaseURL returns the server address this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DefaultPort is the port the gym server binds when none is configured.
const DefaultPort = 3333

// ParseServerURL splits "[scheme://]host[:port]" into host and port,
// defaulting to localhost and DefaultPort for missing parts.
func ParseServerURL(serverURL string) (string, int) {
	rest := serverURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	host := "localhost"
	port := DefaultPort
	if rest != "" {
		if i := strings.LastIndex(rest, ":"); i >= 0 {
			host = rest[:i]
			if p, err := strconv.Atoi(rest[i+1:]); err == nil {
				port = p
			}
		} else {
			host = rest
		}
	}
	return host, port
}

// Request issues method+path with an optional JSON body and decodes the
// response into out (skipped when out is nil). Transport failures and
// non-2xx statuses are retried with linearly increasing backoff; the
// terminal error keeps both the last transport error and the last remote
// response body so nothing diagnostic is lost.
func (c *Client) Request(method, path string, body, out any) error {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body for %s: %w", path, err)
		}
	}

	var lastErr error
	var lastBody []byte
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequest(method, url, reader)
		if err != nil {
			return fmt.Errorf("failed to build request for %s: %w", path, err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			lastBody = nil
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
				lastBody = nil
			} else if resp.StatusCode < 200 || resp.StatusCode > 299 {
				lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
				lastBody = respBody
			} else {
				if out == nil {
					return nil
				}
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("failed to decode response from %s: %w", path, err)
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			time.Sleep(retryBackoffStep * time.Duration(attempt))
		}
	}

	if len(lastBody) > 0 {
		return fmt.Errorf("request %s %s failed after %d attempts: %w - server response: %s",
			method, path, c.maxRetries, lastErr, lastBody)
	}
	return fmt.Errorf("request %s %s failed after %d attempts: %w", method, path, c.maxRetries, lastErr)
}

// Healthy reports whether the server answers its liveness probe. The probe
// uses a short dedicated timeout and never retries.
func (c *Client) Healthy() bool {
	probe := &http.Client{Timeout: 2 * time.Second}
	resp, err := probe.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Health fetches the server health document.
func (c *Client) Health() (Health, error) {
	var h Health
	err := c.Request(http.MethodGet, "/health", nil, &h)
	return h, err
}

// CreateGame opens a fresh game session.
func (c *Client) CreateGame(req CreateGameRequest) (GameState, error) {
	var state GameState
	err := c.Request(http.MethodPost, "/game/create", req, &state)
	return state, err
}

// Step submits the learner's action for the given session.
func (c *Client) Step(gameID string, action int) (GameState, error) {
	var state GameState
	err := c.Request(http.MethodPost, "/game/"+gameID+"/step", stepRequest{Action: action}, &state)
	return state, err
}

// Reset returns the session to its initial state, optionally reseeding.
func (c *Client) Reset(gameID string, seed *int64) (GameState, error) {
	var state GameState
	err := c.Request(http.MethodPost, "/game/"+gameID+"/reset", resetRequest{Seed: seed}, &state)
	return state, err
}

// GetState fetches the current state without acting.
func (c *Client) GetState(gameID string) (GameState, error) {
	var state GameState
	err := c.Request(http.MethodGet, "/game/"+gameID+"/state", nil, &state)
	return state, err
}

// GetActions fetches the learner's current legal-action mask.
func (c *Client) GetActions(gameID string) (GameState, error) {
	var state GameState
	err := c.Request(http.MethodGet, "/game/"+gameID+"/actions", nil, &state)
	return state, err
}

// DeleteGame tears down a session. Callers treat deletion as best-effort
// cleanup; see env.BattleEnv.Close.
func (c *Client) DeleteGame(gameID string) error {
	return c.Request(http.MethodDelete, "/game/"+gameID, nil, nil)
}

// GetExpertAction asks what the named engine bot would play at the current
// state. Used for imitation-data collection.
func (c *Client) GetExpertAction(gameID, expert string) (ExpertAction, error) {
	var ea ExpertAction
	err := c.Request(http.MethodGet, "/game/"+gameID+"/expert_action?expert="+expert, nil, &ea)
	return ea, err
}

// GetOpponentActions fetches the legal-action mask for the non-learner seat.
func (c *Client) GetOpponentActions(gameID string) (GameState, error) {
	var state GameState
	err := c.Request(http.MethodGet, "/game/"+gameID+"/opponent_actions", nil, &state)
	return state, err
}

// OpponentStep submits an externally computed action for the non-learner seat.
func (c *Client) OpponentStep(gameID string, action int) (GameState, error) {
	var state GameState
	err := c.Request(http.MethodPost, "/game/"+gameID+"/opponent_step", stepRequest{Action: action}, &state)
	return state, err
}

// BatchCreate opens count sessions in one round trip.
func (c *Client) BatchCreate(count int, opponent, deck, opponentDeck string) (BatchResult, error) {
	var result BatchResult
	err := c.Request(http.MethodPost, "/batch/create", batchCreateRequest{
		Count:        count,
		Opponent:     opponent,
		Deck:         deck,
		OpponentDeck: opponentDeck,
	}, &result)
	return result, err
}

// BatchStep advances several sessions in one round trip.
func (c *Client) BatchStep(steps []BatchStepEntry) (BatchResult, error) {
	var result BatchResult
	err := c.Request(http.MethodPost, "/batch/step", batchStepRequest{Steps: steps}, &result)
	return result, err
}

// BatchReset reseeds several sessions in one round trip.
func (c *Client) BatchReset(gameIDs []string) (BatchResult, error) {
	var result BatchResult
	err := c.Request(http.MethodPost, "/batch/reset", batchResetRequest{GameIDs: gameIDs}, &result)
	return result, err
}
