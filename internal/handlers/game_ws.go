// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/absurdly/internal/game"
	"github.com/jason-s-yu/absurdly/internal/hub"
	"github.com/jason-s-yu/absurdly/internal/middleware"
	"github.com/jason-s-yu/absurdly/internal/models"
)

// ClientMessage is an inbound websocket action. Only the fields the action uses are set.
type ClientMessage struct {
	Action        string                `json:"action"`
	GameID        string                `json:"gameId,omitempty"`
	Nickname      string                `json:"nickname,omitempty"`
	Settings      *models.SettingsPatch `json:"settings,omitempty"`
	CardID        string                `json:"cardId,omitempty"`
	VotedPlayerID string                `json:"votedPlayerId,omitempty"`
	PlayerID      string                `json:"playerId,omitempty"`
}

var (
	errNoGame          = errors.New("you are not in a game")
	errMissingGameID   = errors.New("gameId is required")
	errInvalidGameID   = errors.New("invalid gameId")
	errMissingSettings = errors.New("settings are required")
)

// GameWSHandler serves /ws/{gameId}/{playerId}. gameId is "nogame" until the client
// creates or joins a game. Without a playerId segment the player id comes from the
// signed player cookie.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := pathSegments(r.URL.Path, "/ws/")
		if len(parts) < 1 || len(parts) > 2 {
			http.Error(w, "expected /ws/{gameId}/{playerId}", http.StatusBadRequest)
			return
		}
		gameID := parts[0]

		var playerID string
		if len(parts) == 2 {
			playerID = parts[1]
		} else {
			var err error
			playerID, err = gs.Issuer.EnsurePlayerID(w, r)
			if err != nil {
				logger.WithError(err).Warn("failed to establish player id")
				http.Error(w, "could not establish player id", http.StatusInternalServerError)
				return
			}
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: gs.OriginPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if !validID(gameID) {
			c.Close(InvalidGameIDError, "invalid game id")
			return
		}
		if !validID(playerID) {
			c.Close(InvalidPlayerIDError, "invalid player id")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := hub.NewConnection(playerID, cancel, logger.WithField("game_id", gameID))
		client := &wsClient{
			gs:       gs,
			conn:     conn,
			playerID: playerID,
			roomID:   gameID,
			log:      logger.WithField("player_id", playerID),
		}
		if gameID != hub.NoGame {
			client.session, _ = gs.Store.GetOrCreate(gameID)
		}
		gs.Hub.Register(gameID, conn)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, gameID, playerID)

		// Give a reconnecting player their current view straight away.
		if client.session != nil {
			client.session.Notify()
		}

		go writePump(ctx, c, conn, logger)
		err = client.readPump(ctx, c)

		gs.Hub.Remove(conn)
		if client.session != nil {
			gs.Store.ReleaseIfEmpty(client.session.ID)
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, client.roomID, playerID, err)
	}
}

// wsClient is the per-connection state of one websocket. Only its readPump
// goroutine touches it.
type wsClient struct {
	gs       *GameServer
	conn     *hub.Connection
	playerID string
	roomID   string
	session  *game.GameSession
	log      *logrus.Entry
}

// readPump reads actions until the connection fails or ctx ends. It returns the
// read error unless the socket closed normally.
func (cl *wsClient) readPump(ctx context.Context, c *websocket.Conn) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			cl.log.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			cl.log.WithError(err).Warn("invalid json from client")
			cl.conn.WriteError("invalid JSON format")
			continue
		}

		if err := cl.handle(ctx, msg); err != nil {
			cl.log.WithError(err).WithField("action", msg.Action).Debug("action rejected")
			cl.conn.WriteError(err.Error())
			cl.dropIfUnseated()
		}
		if cl.session != nil {
			cl.session.Notify()
		}
	}
}

// handle applies one action. A returned error is reported to this connection only.
func (cl *wsClient) handle(ctx context.Context, msg ClientMessage) error {
	switch msg.Action {
	case "create_game":
		return cl.enter(cl.gs.Store.Create(), msg.Nickname)

	case "join_game":
		if msg.GameID == "" || msg.GameID == hub.NoGame {
			return errMissingGameID
		}
		if !validID(msg.GameID) {
			return errInvalidGameID
		}
		g, _ := cl.gs.Store.GetOrCreate(msg.GameID)
		err := cl.enter(g, msg.Nickname)
		if errors.Is(err, game.ErrSessionClosed) {
			// The room emptied and closed between lookup and join; open a fresh one.
			g, _ = cl.gs.Store.GetOrCreate(msg.GameID)
			err = cl.enter(g, msg.Nickname)
		}
		return err

	case "leave_game":
		if cl.session == nil {
			return errNoGame
		}
		g := cl.session
		if err := g.Leave(cl.playerID); err != nil {
			return err
		}
		cl.moveTo(hub.NoGame)
		cl.session = nil
		g.Notify()
		return nil
	}

	if cl.session == nil {
		if !knownAction(msg.Action) {
			return fmt.Errorf("unknown action: %s", msg.Action)
		}
		return errNoGame
	}
	g := cl.session

	switch msg.Action {
	case "update_settings":
		if msg.Settings == nil {
			return errMissingSettings
		}
		return g.UpdateSettings(cl.playerID, *msg.Settings)
	case "start_game":
		return g.Start(ctx, cl.playerID)
	case "restart_game":
		return g.Restart(cl.playerID)
	case "select_card":
		return g.SubmitAnswer(cl.playerID, msg.CardID)
	case "vote":
		return g.SubmitVote(cl.playerID, msg.VotedPlayerID)
	case "kick_player":
		if err := g.Kick(cl.playerID, msg.PlayerID); err != nil {
			return err
		}
		cl.gs.Hub.Evict(g.ID, msg.PlayerID)
		return nil
	default:
		return fmt.Errorf("unknown action: %s", msg.Action)
	}
}

// enter seats the player in g and points this connection at g's room.
func (cl *wsClient) enter(g *game.GameSession, nickname string) error {
	if _, err := g.Join(cl.playerID, nickname); err != nil {
		return err
	}
	if old := cl.session; old != nil && old != g {
		if err := old.Leave(cl.playerID); err != nil && !errors.Is(err, game.ErrUnknownPlayer) && !errors.Is(err, game.ErrSessionClosed) {
			cl.log.WithError(err).Warn("failed to leave previous game")
		}
		cl.gs.Store.ReleaseIfEmpty(old.ID)
	}
	cl.session = g
	cl.moveTo(g.ID)

	cl.conn.Write(hub.NewGameUpdate(g.Snapshot(cl.playerID)))
	cl.conn.Write(hub.NewNavigate(g.Phase().Route(g.ID)))
	return nil
}

// dropIfUnseated detaches the client from a session that no longer seats it,
// as happens after a kick.
func (cl *wsClient) dropIfUnseated() {
	if cl.session == nil || cl.session.Seated(cl.playerID) {
		return
	}
	cl.session = nil
	cl.moveTo(hub.NoGame)
}

func (cl *wsClient) moveTo(roomID string) {
	cl.gs.Hub.Move(cl.roomID, roomID, cl.conn)
	cl.roomID = roomID
	cl.log = cl.log.WithField("game_id", roomID)
}

// validID accepts ids that are safe to use as room and player keys.
func validID(id string) bool {
	return id != "" && len(id) <= 64 && idPattern.MatchString(id)
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func knownAction(action string) bool {
	switch action {
	case "update_settings", "start_game", "restart_game", "select_card", "vote", "kick_player":
		return true
	}
	return false
}

// writePump drains the connection's queue onto the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *hub.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing msg for player %s: %v", conn.PlayerID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("failed to write to websocket for player %s: %v", conn.PlayerID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("failed to send ping to player %s: %v", conn.PlayerID, err)
				return
			}
		}
	}
}
