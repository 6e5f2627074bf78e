// internal/handlers/game_server.go
package handlers

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/absurdly/internal/auth"
	"github.com/jason-s-yu/absurdly/internal/game"
	"github.com/jason-s-yu/absurdly/internal/hub"
)

// GameServer bundles what the websocket handler needs: the live sessions, the
// connection hub that fans their state out, and the player identity issuer.
type GameServer struct {
	Store  *game.SessionStore
	Hub    *hub.Hub
	Issuer *auth.Issuer

	// OriginPatterns is passed to websocket.Accept; empty means same-origin only.
	OriginPatterns []string

	logger *logrus.Logger
}

func NewGameServer(logger *logrus.Logger, store *game.SessionStore, h *hub.Hub, issuer *auth.Issuer) *GameServer {
	return &GameServer{
		Store:  store,
		Hub:    h,
		Issuer: issuer,
		logger: logger,
	}
}

// OriginPatterns turns configured CORS origins into websocket host patterns by
// dropping the scheme: "http://localhost:3000" becomes "localhost:3000".
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		if o = strings.TrimSuffix(o, "/"); o != "" {
			patterns = append(patterns, o)
		}
	}
	return patterns
}
