// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/absurdly/internal/database"
	"github.com/jason-s-yu/absurdly/internal/middleware"
)

// NewRouter wires every HTTP and websocket endpoint. cards may be nil when no
// database is configured; the catalog endpoints are then not mounted.
func NewRouter(logger *logrus.Logger, gs *GameServer, cards CardRepository, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.Handle("/", logged(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Absurdly Correct API"})
	})))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": gs.Store.Len(),
			"rooms":    gs.Hub.Rooms(),
		})
	})

	if cards != nil {
		for prefix, kind := range map[string]database.CardKind{
			"/black_cards": database.PromptCards,
			"/white_cards": database.ResponseCards,
		} {
			h := logged(CardsHandler(logger, cards, kind, prefix))
			mux.Handle(prefix, h)
			mux.Handle(prefix+"/", h)
		}
	}

	mux.Handle("/ws/", GameWSHandler(logger, gs))

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins:   allowedOrigins,
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(mux)
}
