// internal/database/cards.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-s-yu/absurdly/internal/models"
)

// CardKind selects one of the two card collections.
type CardKind string

const (
	PromptCards   CardKind = "black_cards"
	ResponseCards CardKind = "white_cards"
)

// ErrUnknownCardKind is returned for a kind that names no collection.
var ErrUnknownCardKind = errors.New("unknown card kind")

func (k CardKind) table() (string, error) {
	switch k {
	case PromptCards, ResponseCards:
		return string(k), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCardKind, string(k))
}

// CardStore is the Postgres-backed card catalog.
type CardStore struct {
	pool *pgxpool.Pool
}

func NewCardStore(pool *pgxpool.Pool) *CardStore {
	return &CardStore{pool: pool}
}

// ListPromptCards returns every black card.
func (s *CardStore) ListPromptCards(ctx context.Context) ([]models.Card, error) {
	return s.List(ctx, PromptCards)
}

// ListResponseCards returns every white card.
func (s *CardStore) ListResponseCards(ctx context.Context) ([]models.Card, error) {
	return s.List(ctx, ResponseCards)
}

func (s *CardStore) List(ctx context.Context, kind CardKind) ([]models.Card, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT id, content FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	cards, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.Card])
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	return cards, nil
}

// Get returns one card, or pgx.ErrNoRows if it does not exist.
func (s *CardStore) Get(ctx context.Context, kind CardKind, id string) (*models.Card, error) {
	table, err := kind.table()
	if err != nil {
		return nil, err
	}
	var c models.Card
	err = s.pool.QueryRow(ctx, `SELECT id, content FROM `+table+` WHERE id=$1`, id).Scan(&c.ID, &c.Content)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts card, generating an id when it has none.
func (s *CardStore) Create(ctx context.Context, kind CardKind, card *models.Card) error {
	table, err := kind.table()
	if err != nil {
		return err
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	q := `INSERT INTO ` + table + ` (id, content) VALUES ($1, $2)`
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, card.ID, card.Content)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert card into %s: %w", table, err)
	}
	return nil
}

// Update replaces the content of an existing card. It returns pgx.ErrNoRows if
// the card does not exist.
func (s *CardStore) Update(ctx context.Context, kind CardKind, card models.Card) error {
	table, err := kind.table()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE `+table+` SET content=$2 WHERE id=$1`, card.ID, card.Content)
	if err != nil {
		return fmt.Errorf("failed to update card in %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a card. It returns pgx.ErrNoRows if the card does not exist.
func (s *CardStore) Delete(ctx context.Context, kind CardKind, id string) error {
	table, err := kind.table()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
