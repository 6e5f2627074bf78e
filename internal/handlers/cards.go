// internal/handlers/cards.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/absurdly/internal/database"
	"github.com/jason-s-yu/absurdly/internal/models"
)

// CardRepository is the catalog storage the card endpoints work against.
type CardRepository interface {
	List(ctx context.Context, kind database.CardKind) ([]models.Card, error)
	Get(ctx context.Context, kind database.CardKind, id string) (*models.Card, error)
	Create(ctx context.Context, kind database.CardKind, card *models.Card) error
	Update(ctx context.Context, kind database.CardKind, card models.Card) error
	Delete(ctx context.Context, kind database.CardKind, id string) error
}

// CardsHandler serves CRUD for one card collection mounted at prefix:
//
//	GET    {prefix}        list every card
//	POST   {prefix}        create a card; the id is generated when omitted
//	GET    {prefix}/{id}   fetch one card
//	PUT    {prefix}/{id}   replace a card's content
//	DELETE {prefix}/{id}   delete a card
func CardsHandler(logger *logrus.Logger, repo CardRepository, kind database.CardKind, prefix string) http.HandlerFunc {
	prefix = strings.TrimSuffix(prefix, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		parts := pathSegments(r.URL.Path, prefix)
		if len(parts) > 1 {
			http.NotFound(w, r)
			return
		}

		if len(parts) == 0 {
			switch r.Method {
			case http.MethodGet:
				listCards(w, r, logger, repo, kind)
			case http.MethodPost:
				createCard(w, r, logger, repo, kind)
			default:
				w.Header().Set("Allow", "GET, POST")
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			getCard(w, r, logger, repo, kind, id)
		case http.MethodPut:
			updateCard(w, r, logger, repo, kind, id)
		case http.MethodDelete:
			deleteCard(w, r, logger, repo, kind, id)
		default:
			w.Header().Set("Allow", "GET, PUT, DELETE")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func listCards(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, repo CardRepository, kind database.CardKind) {
	cards, err := repo.List(r.Context(), kind)
	if err != nil {
		logger.WithError(err).WithField("kind", kind).Error("failed to list cards")
		writeDetail(w, http.StatusInternalServerError, "failed to list cards")
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

func createCard(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, repo CardRepository, kind database.CardKind) {
	card, ok := decodeCard(w, r)
	if !ok {
		return
	}
	if err := repo.Create(r.Context(), kind, &card); err != nil {
		logger.WithError(err).WithField("kind", kind).Error("failed to create card")
		writeDetail(w, http.StatusInternalServerError, "failed to create card")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func getCard(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, repo CardRepository, kind database.CardKind, id string) {
	card, err := repo.Get(r.Context(), kind, id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeDetail(w, http.StatusNotFound, "Card not found")
	case err != nil:
		logger.WithError(err).WithFields(logrus.Fields{"kind": kind, "card_id": id}).Error("failed to get card")
		writeDetail(w, http.StatusInternalServerError, "failed to get card")
	default:
		writeJSON(w, http.StatusOK, card)
	}
}

func updateCard(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, repo CardRepository, kind database.CardKind, id string) {
	card, ok := decodeCard(w, r)
	if !ok {
		return
	}
	card.ID = id
	err := repo.Update(r.Context(), kind, card)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeDetail(w, http.StatusNotFound, "Card not found")
	case err != nil:
		logger.WithError(err).WithFields(logrus.Fields{"kind": kind, "card_id": id}).Error("failed to update card")
		writeDetail(w, http.StatusInternalServerError, "failed to update card")
	default:
		writeJSON(w, http.StatusOK, card)
	}
}

func deleteCard(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, repo CardRepository, kind database.CardKind, id string) {
	err := repo.Delete(r.Context(), kind, id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeDetail(w, http.StatusNotFound, "Card not found")
	case err != nil:
		logger.WithError(err).WithFields(logrus.Fields{"kind": kind, "card_id": id}).Error("failed to delete card")
		writeDetail(w, http.StatusInternalServerError, "failed to delete card")
	default:
		writeDetail(w, http.StatusOK, "Card deleted")
	}
}

func decodeCard(w http.ResponseWriter, r *http.Request) (models.Card, bool) {
	var card models.Card
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return card, false
	}
	if strings.TrimSpace(card.Content) == "" {
		writeDetail(w, http.StatusBadRequest, "content is required")
		return card, false
	}
	return card, true
}
