package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"livescores-service/internal/domain"
	"livescores-service/internal/teststubs"
)

func newTestHub(storage *teststubs.StubStorage) *Hub {
	if storage == nil {
		storage = teststubs.NewStubStorage()
	}
	return NewHub(Config{
		Store:    storage,
		Verifier: DevVerifier{},
		Throttle: NewThrottler(time.Millisecond, time.Hour),
	})
}

func dialHub(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func waitForType(t *testing.T, conn *websocket.Conn, msgType string) Envelope {
	t.Helper()
	for i := 0; i < 10; i++ {
		env := readEnvelope(t, conn)
		if env.Type == msgType {
			return env
		}
	}
	t.Fatalf("never received %q", msgType)
	return Envelope{}
}

func serveHub(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = hub.Shutdown(context.Background())
		server.Close()
	})
	return server
}

func TestServeWSRejectsMissingCredential(t *testing.T) {
	hub := newTestHub(nil)
	server := serveHub(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	if !ok || closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("read err = %v, want policy-violation close", err)
	}

	if hub.ConnectionCount() != 0 {
		t.Errorf("rejected connection was registered")
	}
	if snap := hub.Stats(); snap.AuthFailures != 1 || snap.Connections != 0 {
		t.Errorf("stats after rejection: %+v", snap)
	}
}

func TestHandshakeDeliversConnectionStatus(t *testing.T) {
	hub := newTestHub(nil)
	server := serveHub(t, hub)

	conn := dialHub(t, server, "user-1")
	defer conn.Close()

	env := readEnvelope(t, conn)
	if env.Type != TypeConnectionStatus {
		t.Fatalf("first message type = %q, want %q", env.Type, TypeConnectionStatus)
	}
	var payload connectionStatusPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Status != "connected" || payload.UserID != "user-1" || payload.ConnID == "" {
		t.Fatalf("unexpected handshake payload %+v", payload)
	}

	// With no stored profile the favorites load still reports its outcome.
	env = waitForType(t, conn, TypeUserTeamsLoaded)
	var loaded userTeamsLoadedPayload
	if err := json.Unmarshal(env.Payload, &loaded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if loaded.AutoSubscribed || len(loaded.Teams) != 0 {
		t.Fatalf("empty profile auto-subscribed: %+v", loaded)
	}
}

func TestSubscribeConfirmAndStatusBroadcast(t *testing.T) {
	hub := newTestHub(nil)
	server := serveHub(t, hub)

	conn := dialHub(t, server, "user-1")
	defer conn.Close()
	waitForType(t, conn, TypeUserTeamsLoaded)

	msg, _ := json.Marshal(Envelope{
		Type:    TypeSubscribe,
		Payload: json.RawMessage(`{"teamId":"celtics"}`),
	})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := waitForType(t, conn, TypeSubscriptionConfirm)
	var confirm subscriptionConfirmPayload
	if err := json.Unmarshal(env.Payload, &confirm); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !confirm.Subscribed || confirm.TeamID != "celtics" {
		t.Fatalf("unexpected confirmation %+v", confirm)
	}

	game := domain.Game{
		ID:         "lakers-celtics-2026-03-01",
		HomeTeamID: "celtics",
		AwayTeamID: "lakers",
		Status:     domain.StatusFinal,
	}
	hub.BroadcastStatusChange(context.Background(), "celtics", game, domain.StatusLive)

	env = waitForType(t, conn, TypeStatusChange)
	var status statusChangePayload
	if err := json.Unmarshal(env.Payload, &status); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if status.TeamID != "celtics" || status.OldStatus != domain.StatusLive || status.NewStatus != domain.StatusFinal {
		t.Fatalf("unexpected status payload %+v", status)
	}
}

func TestScoreBroadcastReachesSubscribersOnly(t *testing.T) {
	storage := teststubs.NewStubStorage()
	storage.Teams["celtics"] = domain.Team{ID: "celtics", Name: "Boston Celtics", Sport: "basketball"}
	hub := newTestHub(storage)
	server := serveHub(t, hub)

	subscriber := dialHub(t, server, "user-1")
	defer subscriber.Close()
	waitForType(t, subscriber, TypeUserTeamsLoaded)

	bystander := dialHub(t, server, "user-2")
	defer bystander.Close()
	waitForType(t, bystander, TypeUserTeamsLoaded)

	msg, _ := json.Marshal(Envelope{
		Type:    TypeSubscribe,
		Payload: json.RawMessage(`{"teamId":"celtics"}`),
	})
	if err := subscriber.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitForType(t, subscriber, TypeSubscriptionConfirm)

	game := domain.Game{
		ID:         "lakers-celtics-2026-03-01",
		Sport:      "basketball",
		HomeTeamID: "celtics",
		AwayTeamID: "lakers",
		HomePts:    14,
		AwayPts:    10,
		Status:     domain.StatusLive,
	}
	hub.BroadcastScoreUpdate(context.Background(), game)

	env := waitForType(t, subscriber, TypeScoreUpdate)
	var update scoreUpdatePayload
	if err := json.Unmarshal(env.Payload, &update); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if update.TeamID != "celtics" || update.TeamName != "Boston Celtics" {
		t.Fatalf("unexpected update payload %+v", update)
	}
	if update.GameData.HomePts != 14 || update.GameData.AwayPts != 10 {
		t.Fatalf("score not carried: %+v", update.GameData)
	}
	if update.IsUserTeam {
		t.Errorf("explicit subscription flagged as favorite")
	}

	// The bystander must see nothing.
	_ = bystander.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := bystander.ReadMessage(); err == nil {
		t.Errorf("unsubscribed connection received a broadcast")
	}
}

func TestFavoritesAutoSubscribe(t *testing.T) {
	storage := teststubs.NewStubStorage()
	storage.Profiles["user-9"] = domain.UserProfile{
		ID:              "user-9",
		FavoriteTeamIDs: []string{"lakers"},
	}
	hub := newTestHub(storage)
	server := serveHub(t, hub)

	conn := dialHub(t, server, "user-9")
	defer conn.Close()

	env := waitForType(t, conn, TypeUserTeamsLoaded)
	var loaded userTeamsLoadedPayload
	if err := json.Unmarshal(env.Payload, &loaded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !loaded.AutoSubscribed || len(loaded.Teams) != 1 || loaded.Teams[0] != "lakers" {
		t.Fatalf("unexpected favorites payload %+v", loaded)
	}

	game := domain.Game{
		ID:         "lakers-celtics-2026-03-01",
		HomeTeamID: "celtics",
		AwayTeamID: "lakers",
		Status:     domain.StatusLive,
	}
	hub.BroadcastScoreUpdate(context.Background(), game)

	env = waitForType(t, conn, TypeScoreUpdate)
	var update scoreUpdatePayload
	if err := json.Unmarshal(env.Payload, &update); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if update.TeamID != "lakers" || !update.IsUserTeam {
		t.Fatalf("favorite delivery payload %+v", update)
	}
}

func TestMalformedMessageKeepsConnection(t *testing.T) {
	hub := newTestHub(nil)
	server := serveHub(t, hub)

	conn := dialHub(t, server, "user-1")
	defer conn.Close()
	waitForType(t, conn, TypeUserTeamsLoaded)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json at all")); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := waitForType(t, conn, TypeError)
	var rejection errorPayload
	if err := json.Unmarshal(env.Payload, &rejection); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if rejection.Code != "invalid-envelope" {
		t.Fatalf("rejection code = %q", rejection.Code)
	}

	// The connection survives and still serves requests.
	msg, _ := json.Marshal(Envelope{
		Type:    TypeSubscribe,
		Payload: json.RawMessage(`{"teamId":"celtics"}`),
	})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write after rejection: %v", err)
	}
	waitForType(t, conn, TypeSubscriptionConfirm)
}

func TestSubscribeRejectsInvalidTeamID(t *testing.T) {
	hub := newTestHub(nil)
	server := serveHub(t, hub)

	conn := dialHub(t, server, "user-1")
	defer conn.Close()
	waitForType(t, conn, TypeUserTeamsLoaded)

	msg, _ := json.Marshal(Envelope{
		Type:    TypeSubscribe,
		Payload: json.RawMessage(`{"teamId":"no spaces allowed"}`),
	})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := waitForType(t, conn, TypeError)
	var rejection errorPayload
	_ = json.Unmarshal(env.Payload, &rejection)
	if rejection.Code != "invalid-team" {
		t.Fatalf("rejection code = %q, want invalid-team", rejection.Code)
	}
}

// socketPairDialer returns a factory producing connected server/client
// websocket pairs, for tests that drive clients without running ServeWS.
func socketPairDialer(t *testing.T) func() (server, client *websocket.Conn) {
	t.Helper()

	var upgrader websocket.Upgrader
	captured := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err == nil {
			captured <- conn
		}
	}))

	var mu sync.Mutex
	var conns []*websocket.Conn
	t.Cleanup(func() {
		mu.Lock()
		for _, conn := range conns {
			conn.Close()
		}
		mu.Unlock()
		srv.Close()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return func() (*websocket.Conn, *websocket.Conn) {
		client, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		server := <-captured
		mu.Lock()
		conns = append(conns, server, client)
		mu.Unlock()
		return server, client
	}
}

func TestSendAfterDisconnectIsDropped(t *testing.T) {
	hub := newTestHub(nil)
	pair := socketPairDialer(t)
	sconn, _ := pair()

	c := newClient("conn-1", "user-1", hub, sconn)
	hub.register(c)
	hub.unregister(c)

	if hub.sendTo(c, TypeConnectionStatus, connectionStatusPayload{Status: "connected", UserID: "user-1"}) {
		t.Fatalf("delivery reported on a closed connection")
	}
}

func TestBroadcastSurvivesConcurrentDisconnect(t *testing.T) {
	hub := newTestHub(nil)
	pair := socketPairDialer(t)

	game := domain.Game{
		ID:         "lakers-celtics-2026-03-01",
		HomeTeamID: "celtics",
		AwayTeamID: "lakers",
		Status:     domain.StatusFinal,
	}

	for i := 0; i < 25; i++ {
		sconn, _ := pair()
		c := newClient(fmt.Sprintf("conn-%d", i), "user-1", hub, sconn)
		c.subscribe("celtics", false)
		hub.register(c)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.BroadcastStatusChange(context.Background(), "celtics", game, domain.StatusLive)
		}()
		go func() {
			defer wg.Done()
			hub.unregister(c)
		}()
		wg.Wait()
	}

	if hub.ConnectionCount() != 0 {
		t.Fatalf("connections left registered: %d", hub.ConnectionCount())
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := newTestHub(nil)
	pair := socketPairDialer(t)
	sconn, _ := pair()

	c := newClient("conn-slow", "user-1", hub, sconn)
	hub.register(c)

	// No write pump is draining, so the buffer eventually overflows and the
	// connection is dropped rather than stalling the broadcaster.
	delivered := 0
	for i := 0; i < sendBuffer+1; i++ {
		if hub.sendTo(c, TypeConnectionStatus, connectionStatusPayload{Status: "connected"}) {
			delivered++
		}
	}
	if delivered != sendBuffer {
		t.Fatalf("delivered = %d, want the buffer capacity %d", delivered, sendBuffer)
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("overflowing connection still registered")
	}

	// Later sends are dropped cleanly.
	if hub.sendTo(c, TypeConnectionStatus, connectionStatusPayload{Status: "connected"}) {
		t.Fatalf("delivery reported after the connection was dropped")
	}
	if snap := hub.Stats(); snap.Errors == 0 {
		t.Errorf("slow-client drop not counted as an error")
	}
}
