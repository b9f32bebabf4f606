package gateway

import (
	"encoding/json"
	"time"

	"livescores-service/internal/domain"
)

// Inbound message types.
const (
	TypeSubscribe            = "subscribe"
	TypeUnsubscribe          = "unsubscribe"
	TypeSubscribeFavorites   = "subscribe-favorites"
	TypeUnsubscribeFavorites = "unsubscribe-favorites"
)

// Outbound message types.
const (
	TypeConnectionStatus    = "connection-status"
	TypeSubscriptionConfirm = "subscription-confirmation"
	TypeUserTeamsLoaded     = "user-teams-loaded"
	TypeScoreUpdate         = "user-team-score-update"
	TypeStatusChange        = "user-team-status-change"
	TypeError               = "error"
)

// Envelope is the wire shape of every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// subscribePayload carries the team id for subscribe/unsubscribe requests.
type subscribePayload struct {
	TeamID string `json:"teamId"`
}

// connectionStatusPayload is sent once after a successful handshake.
type connectionStatusPayload struct {
	Status string `json:"status"`
	UserID string `json:"userId"`
	ConnID string `json:"connId"`
}

// subscriptionConfirmPayload acknowledges a subscription change.
type subscriptionConfirmPayload struct {
	TeamID     string   `json:"teamId,omitempty"`
	Subscribed bool     `json:"subscribed"`
	Teams      []string `json:"teams"`
}

// userTeamsLoadedPayload reports the favorites auto-subscription outcome.
type userTeamsLoadedPayload struct {
	Teams          []string `json:"teams"`
	AutoSubscribed bool     `json:"autoSubscribed"`
	Message        string   `json:"message"`
}

// scoreUpdatePayload is delivered to each interested connection per team.
type scoreUpdatePayload struct {
	UserID     string      `json:"userId"`
	TeamID     string      `json:"teamId"`
	TeamName   string      `json:"teamName"`
	Sport      string      `json:"sport"`
	GameData   domain.Game `json:"gameData"`
	Timestamp  time.Time   `json:"timestamp"`
	IsUserTeam bool        `json:"isUserTeam"`
}

// statusChangePayload announces a game status transition for one team.
type statusChangePayload struct {
	UserID    string    `json:"userId"`
	TeamID    string    `json:"teamId"`
	GameID    string    `json:"gameId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Timestamp time.Time `json:"timestamp"`
}

// errorPayload is the structured rejection for malformed inbound messages.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
