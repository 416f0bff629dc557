package bridge

// Observation is the feature vector the engine reports for the learner's seat.
type Observation struct {
	Features []float64 `json:"features"`
}

// GameInfo carries the engine-side metadata attached to every exchange.
// PriorityPlayer is the engine's indicator of which seat must act next:
// "player" or "opponent".
type GameInfo struct {
	Turn           int    `json:"turn"`
	Phase          string `json:"phase"`
	PriorityPlayer string `json:"priorityPlayer"`
}

// GameState is the common response shape shared by create, step, reset,
// state and actions endpoints. Fields absent from a given endpoint decode
// to their zero values.
type GameState struct {
	GameID       string      `json:"gameId"`
	Observation  Observation `json:"observation"`
	ActionMask   []bool      `json:"actionMask"`
	LegalActions []string    `json:"legalActions,omitempty"`
	Reward       float64     `json:"reward"`
	Done         bool        `json:"done"`
	Truncated    bool        `json:"truncated"`
	Info         GameInfo    `json:"info"`
}

// CreateGameRequest is the body for POST /game/create.
type CreateGameRequest struct {
	Opponent     string `json:"opponent"`
	Deck         string `json:"deck"`
	OpponentDeck string `json:"opponentDeck"`
	Seed         *int64 `json:"seed,omitempty"`
}

type stepRequest struct {
	Action int `json:"action"`
}

type resetRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

// ExpertAction is the engine's answer to "what would expert X play here",
// consumed by imitation-data collection.
type ExpertAction struct {
	ExpertAction            int    `json:"expertAction"`
	ExpertActionDescription string `json:"expertActionDescription"`
	ExpertType              string `json:"expertType"`
}

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
	Games  int    `json:"games"`
}

// BatchStepEntry addresses one game inside POST /batch/step.
type BatchStepEntry struct {
	GameID string `json:"gameId"`
	Action int    `json:"action"`
}

type batchCreateRequest struct {
	Count        int    `json:"count"`
	Opponent     string `json:"opponent"`
	Deck         string `json:"deck"`
	OpponentDeck string `json:"opponentDeck"`
}

type batchStepRequest struct {
	Steps []BatchStepEntry `json:"steps"`
}

type batchResetRequest struct {
	GameIDs []string `json:"gameIds"`
}

// BatchResult wraps the per-game states of a batch endpoint.
type BatchResult struct {
	Results []GameState `json:"results"`
}
