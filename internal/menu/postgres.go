package menu

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"log/slog"

	"github.com/caldarelli/barbot/internal/logger"
)

// PostgresStore keeps the menu document as a single JSONB row.
type PostgresStore struct {
	db  *sqlx.DB
	key string
}

// NewPostgresStore returns a store bound to the default document key.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, key: DocumentKey}
}

// Get loads the menu document. ErrNotFound means it was never written.
func (s *PostgresStore) Get(ctx context.Context) (*Document, error) {
	start := time.Now()
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT doc FROM menu_documents WHERE id = $1`, s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Store.Error("document load failed",
			slog.String("event", "document.get"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("load menu document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode menu document: %w", err)
	}
	logger.Store.Debug("document loaded",
		slog.String("event", "document.get"),
		slog.Int("admins", len(doc.Admins)),
		slog.Int("categories", len(doc.Categories)),
		slog.Duration("duration", logger.Took(start)),
	)
	return &doc, nil
}

// Set overwrites the whole menu document, creating the row on first write.
func (s *PostgresStore) Set(ctx context.Context, doc *Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode menu document: %w", err)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO menu_documents (id, doc, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		s.key, raw)
	if err != nil {
		logger.Store.Error("document save failed",
			slog.String("event", "document.set"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("save menu document: %w", err)
	}
	logger.Store.Debug("document saved",
		slog.String("event", "document.set"),
		slog.Int("admins", len(doc.Admins)),
		slog.Int("categories", len(doc.Categories)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
