// Package gateway tracks authenticated real-time connections, their topic
// subscriptions, and fans change notifications out to the interested subset.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"livescores-service/internal/domain"
	"livescores-service/internal/logging"
	"livescores-service/internal/metrics"
	"livescores-service/internal/store"
)

// Hub owns the connection registry, the broadcast throttler and the health
// counters. It is constructed once at startup and injected into handlers;
// nothing here is process-global, so tests get isolated instances and
// shutdown is clean.
type Hub struct {
	logger   *slog.Logger
	metrics  *metrics.Recorder
	store    store.Storage
	verifier Verifier
	throttle *Throttler
	stats    *Stats
	upgrader websocket.Upgrader
	now      func() time.Time

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// Config wires a Hub.
type Config struct {
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	Store    store.Storage
	Verifier Verifier
	Throttle *Throttler
}

// NewHub constructs a Hub. A nil Verifier falls back to the constrained
// development bypass; a nil Throttle gets defaults.
func NewHub(cfg Config) *Hub {
	if cfg.Verifier == nil {
		cfg.Verifier = DevVerifier{}
	}
	if cfg.Throttle == nil {
		cfg.Throttle = NewThrottler(0, 0)
	}
	return &Hub{
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		store:    cfg.Store,
		verifier: cfg.Verifier,
		throttle: cfg.Throttle,
		stats:    &Stats{},
		now:      time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The gateway is consumed by native and web clients alike;
			// origin policy is enforced upstream.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*Client]struct{}),
	}
}

// ServeWS upgrades the request and runs the connection handshake. The
// credential is verified before any subscription state exists; failures
// close the socket with a policy-violation code.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(h.logger, "websocket upgrade failed", "error", err)
		return
	}

	userID, err := h.verifier.Verify(r.Context(), bearerToken(r))
	if err != nil {
		h.stats.recordAuthFailure()
		logging.Warn(h.logger, "connection rejected, auth failed", "remote", r.RemoteAddr)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	client := newClient(uuid.NewString(), userID, h, conn)
	h.register(client)

	go client.writePump()
	go client.readPump()

	h.sendTo(client, TypeConnectionStatus, connectionStatusPayload{
		Status: "connected",
		UserID: userID,
		ConnID: client.id,
	})

	// Favorites load happens off the handshake path; explicit subscribes
	// arriving meanwhile merge into the same set.
	go h.loadFavorites(client, true)
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.stats.recordConnection()
	logging.Info(h.logger, "connection registered",
		logging.FieldConnID, c.id,
		logging.FieldUserID, c.userID,
	)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if !present {
		return
	}
	c.close()
	h.stats.recordDisconnection()
	logging.Info(h.logger, "connection closed",
		logging.FieldConnID, c.id,
		logging.FieldUserID, c.userID,
	)
}

// dropSlowClient removes a client whose send buffer overflowed.
func (h *Hub) dropSlowClient(c *Client) {
	h.stats.recordError()
	logging.Warn(h.logger, "dropping slow connection", logging.FieldConnID, c.id)
	h.unregister(c)
	c.conn.Close()
}

// handleMessage validates and dispatches one inbound envelope. Malformed
// payloads get a structured rejection; the connection is never dropped for a
// bad message.
func (h *Hub) handleMessage(c *Client, raw []byte) {
	h.stats.recordMessage()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		h.rejectMessage(c, "invalid-envelope", "message must be a {type, payload} object")
		return
	}

	switch env.Type {
	case TypeSubscribe:
		h.handleSubscribe(c, env.Payload, true)
	case TypeUnsubscribe:
		h.handleSubscribe(c, env.Payload, false)
	case TypeSubscribeFavorites:
		go h.loadFavorites(c, false)
	case TypeUnsubscribeFavorites:
		c.unsubscribeFavorites()
		h.sendTo(c, TypeSubscriptionConfirm, subscriptionConfirmPayload{
			Subscribed: false,
			Teams:      c.subscriptionList(),
		})
	default:
		h.rejectMessage(c, "unknown-type", "unsupported message type: "+env.Type)
	}
}

func (h *Hub) handleSubscribe(c *Client, payload json.RawMessage, subscribe bool) {
	var req subscribePayload
	if err := json.Unmarshal(payload, &req); err != nil || !domain.ValidTeamID(req.TeamID) {
		h.rejectMessage(c, "invalid-team", "payload must carry a valid teamId")
		return
	}

	if subscribe {
		c.subscribe(req.TeamID, false)
	} else {
		c.unsubscribe(req.TeamID)
	}

	h.sendTo(c, TypeSubscriptionConfirm, subscriptionConfirmPayload{
		TeamID:     req.TeamID,
		Subscribed: subscribe,
		Teams:      c.subscriptionList(),
	})
}

// loadFavorites pulls the user's persisted favorite teams and merges them
// into the subscription set.
func (h *Hub) loadFavorites(c *Client, initial bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profile, err := h.store.GetUserProfile(ctx, c.userID)
	if err != nil {
		h.stats.recordError()
		logging.Error(h.logger, "favorites load failed", err, logging.FieldUserID, c.userID)
		h.sendTo(c, TypeUserTeamsLoaded, userTeamsLoadedPayload{
			Teams:          []string{},
			AutoSubscribed: false,
			Message:        "favorite teams unavailable",
		})
		return
	}

	var teams []string
	if profile != nil {
		teams = profile.FavoriteTeamIDs
	}
	for _, teamID := range teams {
		if domain.ValidTeamID(teamID) {
			c.subscribe(teamID, true)
		}
	}

	message := "favorite teams loaded"
	if initial {
		message = "favorite teams auto-subscribed"
	}
	if teams == nil {
		teams = []string{}
	}
	h.sendTo(c, TypeUserTeamsLoaded, userTeamsLoadedPayload{
		Teams:          teams,
		AutoSubscribed: len(teams) > 0,
		Message:        message,
	})
}

// BroadcastScoreUpdate delivers a score change to every connection
// subscribed to either side of the game, subject to the per-game throttle.
func (h *Hub) BroadcastScoreUpdate(ctx context.Context, game domain.Game) {
	if !h.throttle.ShouldSendUpdate(game.ID) {
		return
	}

	names := h.teamNames(ctx, game.TeamIDs())
	timestamp := h.now().UTC()
	recipients := 0

	for _, c := range h.clientList() {
		for _, teamID := range game.TeamIDs() {
			if !c.subscribed(teamID) {
				continue
			}
			delivered := h.sendTo(c, TypeScoreUpdate, scoreUpdatePayload{
				UserID:     c.userID,
				TeamID:     teamID,
				TeamName:   names[teamID],
				Sport:      game.Sport,
				GameData:   game,
				Timestamp:  timestamp,
				IsUserTeam: c.isFavorite(teamID),
			})
			if delivered {
				recipients++
			}
		}
	}

	if h.metrics != nil {
		h.metrics.RecordBroadcast("score", recipients)
	}
}

// BroadcastStatusChange delivers a status transition for one team to its
// subscribers. Status changes are rare and semantically significant; they
// bypass the throttle entirely.
func (h *Hub) BroadcastStatusChange(ctx context.Context, teamID string, game domain.Game, oldStatus string) {
	_ = ctx

	timestamp := h.now().UTC()
	recipients := 0

	for _, c := range h.clientList() {
		if !c.subscribed(teamID) {
			continue
		}
		delivered := h.sendTo(c, TypeStatusChange, statusChangePayload{
			UserID:    c.userID,
			TeamID:    teamID,
			GameID:    game.ID,
			OldStatus: oldStatus,
			NewStatus: game.Status,
			Timestamp: timestamp,
		})
		if delivered {
			recipients++
		}
	}

	if h.metrics != nil {
		h.metrics.RecordBroadcast("status", recipients)
	}
}

// SendToUser delivers a message to every connection authenticated as userID.
func (h *Hub) SendToUser(userID, msgType string, payload any) int {
	sent := 0
	for _, c := range h.clientList() {
		if c.userID != userID {
			continue
		}
		if h.sendTo(c, msgType, payload) {
			sent++
		}
	}
	return sent
}

// sendTo marshals and enqueues one message. Failures are logged and isolated
// to the target connection.
func (h *Hub) sendTo(c *Client, msgType string, payload any) bool {
	msg, err := marshalEnvelope(msgType, payload)
	if err != nil {
		h.stats.recordError()
		logging.Error(h.logger, "message marshal failed", err, "type", msgType)
		return false
	}
	if !c.enqueue(msg) {
		return false
	}
	return true
}

func (h *Hub) rejectMessage(c *Client, code, message string) {
	h.stats.recordError()
	h.sendTo(c, TypeError, errorPayload{Code: code, Message: message})
}

func (h *Hub) clientList() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	return list
}

// teamNames resolves display names for the given ids, falling back to the id
// itself when the roster lookup fails.
func (h *Hub) teamNames(ctx context.Context, teamIDs []string) map[string]string {
	names := make(map[string]string, len(teamIDs))
	for _, teamID := range teamIDs {
		names[teamID] = teamID
		if h.store == nil {
			continue
		}
		team, err := h.store.GetTeam(ctx, teamID)
		if err == nil && team != nil {
			names[teamID] = team.Name
		}
	}
	return names
}

// ConnectionCount reports the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the aggregate counters and derived health state.
func (h *Hub) Stats() StatsSnapshot {
	return h.stats.Snapshot()
}

// Shutdown closes every connection and stops the throttler sweeper.
func (h *Hub) Shutdown(ctx context.Context) error {
	_ = ctx

	for _, c := range h.clientList() {
		h.unregister(c)
		c.conn.Close()
	}
	h.throttle.Stop()
	return nil
}
