package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/absurdly/internal/auth"
	"github.com/jason-s-yu/absurdly/internal/game"
	"github.com/jason-s-yu/absurdly/internal/hub"
	"github.com/jason-s-yu/absurdly/internal/models"
)

type fixedCatalog struct{}

func (fixedCatalog) ListPromptCards(ctx context.Context) ([]models.Card, error) {
	return seqCards("b", 5), nil
}

func (fixedCatalog) ListResponseCards(ctx context.Context) ([]models.Card, error) {
	return seqCards("w", 40), nil
}

func seqCards(prefix string, n int) []models.Card {
	cards := make([]models.Card, n)
	for i := range cards {
		cards[i] = models.Card{ID: fmt.Sprintf("%s%d", prefix, i), Content: fmt.Sprintf("%s card %d", prefix, i)}
	}
	return cards
}

func newTestGameServer(t *testing.T) (*GameServer, *game.SessionStore) {
	t.Helper()
	logger := testLogger()
	store := game.NewSessionStore(game.SessionConfig{
		Catalog: fixedCatalog{},
		Logger:  logger,
	})
	h := hub.New(logger)
	store.OnCreate = h.Watch
	t.Cleanup(store.CloseAll)

	issuer, err := auth.NewIssuer(time.Hour)
	require.NoError(t, err)
	return NewGameServer(logger, store, h, issuer), store
}

func newRequestWithOrigin(method, path, origin string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Origin", origin)
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// wireMsg decodes any outbound message; only the fields of its type are set.
type wireMsg struct {
	Type       string          `json:"type"`
	Route      string          `json:"route"`
	Message    string          `json:"message"`
	GameID     string          `json:"gameId"`
	IsHost     bool            `json:"isHost"`
	GamePhase  game.Phase      `json:"gamePhase"`
	Players    []models.Player `json:"players"`
	WhiteCards []models.Card   `json:"whiteCards"`
}

func startServer(t *testing.T) (*httptest.Server, *GameServer) {
	t.Helper()
	gs, _ := newTestGameServer(t)
	srv := httptest.NewServer(NewRouter(testLogger(), gs, nil, nil))
	t.Cleanup(srv.Close)
	return srv, gs
}

func dial(t *testing.T, srv *httptest.Server, path string) (*websocket.Conn, *http.Response) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	c, resp, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c, resp
}

func send(t *testing.T, c *websocket.Conn, msg ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

// readUntil reads messages until match accepts one, failing after a timeout.
func readUntil(t *testing.T, c *websocket.Conn, match func(wireMsg) bool) wireMsg {
	t.Helper()
	msg, _ := collectUntil(t, c, match)
	return msg
}

// collectUntil is readUntil that also returns the messages skipped on the way.
func collectUntil(t *testing.T, c *websocket.Conn, match func(wireMsg) bool) (wireMsg, []wireMsg) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var skipped []wireMsg
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var msg wireMsg
		require.NoError(t, json.Unmarshal(data, &msg))
		if match(msg) {
			return msg, skipped
		}
		skipped = append(skipped, msg)
	}
}

func isType(typ string) func(wireMsg) bool {
	return func(m wireMsg) bool { return m.Type == typ }
}

func TestGameFlowOverWebSocket(t *testing.T) {
	srv, gs := startServer(t)

	alice, _ := dial(t, srv, "/ws/nogame/p1")
	send(t, alice, ClientMessage{Action: "create_game", Nickname: "Alice"})

	update := readUntil(t, alice, isType(hub.TypeGameUpdate))
	require.NotEmpty(t, update.GameID)
	assert.True(t, update.IsHost)
	assert.Equal(t, game.PhaseLobby, update.GamePhase)
	gameID := update.GameID

	nav := readUntil(t, alice, isType(hub.TypeNavigate))
	assert.Equal(t, "/lobby/"+gameID, nav.Route)

	bob, _ := dial(t, srv, "/ws/nogame/p2")
	send(t, bob, ClientMessage{Action: "join_game", GameID: gameID, Nickname: "Bob"})
	nav = readUntil(t, bob, isType(hub.TypeNavigate))
	assert.Equal(t, "/lobby/"+gameID, nav.Route)

	// Alice sees Bob arrive.
	readUntil(t, alice, func(m wireMsg) bool {
		return m.Type == hub.TypeGameUpdate && len(m.Players) == 2
	})

	send(t, bob, ClientMessage{Action: "start_game"})
	errMsg := readUntil(t, bob, isType(hub.TypeError))
	assert.Equal(t, game.ErrNotHost.Error(), errMsg.Message)

	send(t, alice, ClientMessage{Action: "dance"})
	errMsg = readUntil(t, alice, isType(hub.TypeError))
	assert.Equal(t, "unknown action: dance", errMsg.Message)

	send(t, alice, ClientMessage{Action: "start_game"})
	nav = readUntil(t, bob, isType(hub.TypeNavigate))
	assert.Equal(t, "/game/"+gameID, nav.Route)

	g, ok := gs.Store.Get(gameID)
	require.True(t, ok)
	assert.Equal(t, game.PhaseSelection, g.Phase())

	update = readUntil(t, alice, func(m wireMsg) bool {
		return m.Type == hub.TypeGameUpdate && m.GamePhase == game.PhaseSelection
	})
	assert.Len(t, update.WhiteCards, models.DefaultGameSettings().CardsPerPlayer)
}

func TestActionsWithoutGame(t *testing.T) {
	srv, _ := startServer(t)
	c, _ := dial(t, srv, "/ws/nogame/p1")

	send(t, c, ClientMessage{Action: "vote", VotedPlayerID: "p2"})
	assert.Equal(t, errNoGame.Error(), readUntil(t, c, isType(hub.TypeError)).Message)

	send(t, c, ClientMessage{Action: "join_game"})
	assert.Equal(t, errMissingGameID.Error(), readUntil(t, c, isType(hub.TypeError)).Message)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))
	assert.Equal(t, "invalid JSON format", readUntil(t, c, isType(hub.TypeError)).Message)
}

func TestLeaveReturnsToNoGame(t *testing.T) {
	srv, gs := startServer(t)
	c, _ := dial(t, srv, "/ws/nogame/p1")

	send(t, c, ClientMessage{Action: "create_game", Nickname: "Alice"})
	gameID := readUntil(t, c, isType(hub.TypeGameUpdate)).GameID
	readUntil(t, c, isType(hub.TypeNavigate))

	send(t, c, ClientMessage{Action: "leave_game"})
	require.Eventually(t, func() bool {
		_, ok := gs.Store.Get(gameID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	send(t, c, ClientMessage{Action: "start_game"})
	assert.Equal(t, errNoGame.Error(), readUntil(t, c, isType(hub.TypeError)).Message)
}

func TestKickNavigatesHome(t *testing.T) {
	srv, gs := startServer(t)
	alice, _ := dial(t, srv, "/ws/nogame/p1")
	send(t, alice, ClientMessage{Action: "create_game", Nickname: "Alice"})
	gameID := readUntil(t, alice, isType(hub.TypeGameUpdate)).GameID

	bob, _ := dial(t, srv, "/ws/nogame/p2")
	send(t, bob, ClientMessage{Action: "join_game", GameID: gameID, Nickname: "Bob"})
	readUntil(t, bob, isType(hub.TypeNavigate))

	carol, _ := dial(t, srv, "/ws/nogame/p3")
	send(t, carol, ClientMessage{Action: "join_game", GameID: gameID, Nickname: "Carol"})
	readUntil(t, carol, isType(hub.TypeNavigate))

	send(t, alice, ClientMessage{Action: "kick_player", PlayerID: "p2"})
	nav := readUntil(t, bob, func(m wireMsg) bool {
		return m.Type == hub.TypeNavigate && m.Route == "/"
	})
	assert.Equal(t, "/", nav.Route)

	send(t, alice, ClientMessage{Action: "start_game"})
	nav = readUntil(t, carol, isType(hub.TypeNavigate))
	assert.Equal(t, "/game/"+gameID, nav.Route)

	// Bob is off the roster and out of the room: his next action is rejected and
	// nothing from the running game reaches him.
	send(t, bob, ClientMessage{Action: "select_card", CardID: "w1"})
	errMsg, seen := collectUntil(t, bob, isType(hub.TypeError))
	assert.Equal(t, game.ErrUnknownPlayer.Error(), errMsg.Message)
	for _, m := range seen {
		assert.NotEqual(t, hub.TypeNavigate, m.Type, "kicked player was sent %q", m.Route)
		assert.NotEqual(t, game.PhaseSelection, m.GamePhase, "kicked player saw the running game")
	}

	send(t, bob, ClientMessage{Action: "start_game"})
	assert.Equal(t, errNoGame.Error(), readUntil(t, bob, isType(hub.TypeError)).Message)

	ids := []string{}
	for _, c := range gs.Hub.Connections(gameID) {
		ids = append(ids, c.PlayerID)
	}
	assert.Equal(t, []string{"p1", "p3"}, ids)
}

func TestJoinRejectsMalformedGameID(t *testing.T) {
	srv, gs := startServer(t)
	c, _ := dial(t, srv, "/ws/nogame/p1")

	send(t, c, ClientMessage{Action: "join_game", GameID: "no spaces/or slashes", Nickname: "Alice"})
	assert.Equal(t, errInvalidGameID.Error(), readUntil(t, c, isType(hub.TypeError)).Message)

	send(t, c, ClientMessage{Action: "join_game", GameID: strings.Repeat("a", 65), Nickname: "Alice"})
	assert.Equal(t, errInvalidGameID.Error(), readUntil(t, c, isType(hub.TypeError)).Message)

	assert.Zero(t, gs.Store.Len())
}

func TestSwitchingRoomsLeavesPreviousGame(t *testing.T) {
	srv, gs := startServer(t)
	alice, _ := dial(t, srv, "/ws/nogame/p1")
	send(t, alice, ClientMessage{Action: "create_game", Nickname: "Alice"})
	first := readUntil(t, alice, isType(hub.TypeGameUpdate)).GameID

	bob, _ := dial(t, srv, "/ws/nogame/p2")
	send(t, bob, ClientMessage{Action: "join_game", GameID: first, Nickname: "Bob"})
	readUntil(t, bob, isType(hub.TypeNavigate))

	send(t, bob, ClientMessage{Action: "create_game", Nickname: "Bob"})
	second := readUntil(t, bob, func(m wireMsg) bool {
		return m.Type == hub.TypeNavigate && m.Route != "/lobby/"+first
	})
	assert.NotEqual(t, "/lobby/"+first, second.Route)

	g, ok := gs.Store.Get(first)
	require.True(t, ok)
	assert.False(t, g.Seated("p2"))
	assert.Equal(t, 1, g.PlayerCount())

	readUntil(t, alice, func(m wireMsg) bool {
		return m.Type == hub.TypeGameUpdate && len(m.Players) == 1
	})
	assert.Len(t, gs.Hub.Connections(first), 1)
}

func TestConnectWithoutPlayerIDSetsCookie(t *testing.T) {
	srv, _ := startServer(t)
	_, resp := dial(t, srv, "/ws/nogame")

	var found bool
	for _, cookie := range resp.Cookies() {
		if cookie.Name == auth.CookieName {
			found = true
			assert.NotEmpty(t, cookie.Value)
		}
	}
	assert.True(t, found, "expected %s cookie on the upgrade response", auth.CookieName)
}

func TestInvalidGameIDClosesConnection(t *testing.T) {
	srv, _ := startServer(t)
	c, _ := dial(t, srv, "/ws/bad.id/p1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(InvalidGameIDError), websocket.CloseStatus(err))
}
