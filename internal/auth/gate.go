// Package auth decides which users may edit the menu.
//
// Admins live in the menu document itself. The gate fails closed: when the
// store is unreachable nobody is an admin. The very first user to ask while
// the admin set is empty is promoted to sole admin (bootstrap rule). Two
// concurrent first-time callers can race the empty check and both end up
// admins; accepted limitation of the whole-document write model.
package auth

import (
	"context"
	"errors"

	"log/slog"

	"github.com/caldarelli/barbot/internal/logger"
	"github.com/caldarelli/barbot/internal/menu"
)

var (
	// ErrUnauthorized reports a caller outside the admin set.
	ErrUnauthorized = errors.New("auth: not an admin")
	// ErrAlreadyAdmin reports an add of a user already in the admin set.
	ErrAlreadyAdmin = errors.New("auth: already an admin")
	// ErrSelfPromotion reports an admin trying to add themselves.
	ErrSelfPromotion = errors.New("auth: cannot add yourself")
	// ErrStoreUnavailable wraps store failures so callers can show a
	// generic database error.
	ErrStoreUnavailable = errors.New("auth: store unavailable")
)

// Gate answers admin membership questions against the menu store.
type Gate struct {
	store menu.Store
}

// NewGate returns a gate backed by the given store.
func NewGate(store menu.Store) *Gate {
	return &Gate{store: store}
}

// IsAdmin reports whether the user is currently an admin. It returns false
// when the store fails or the document does not exist. When the document
// exists with an empty admin set, the caller is promoted to sole admin
// (bootstrap rule) and the check succeeds.
func (g *Gate) IsAdmin(ctx context.Context, userID int64) bool {
	doc, err := g.store.Get(ctx)
	if err != nil {
		return false
	}
	if len(doc.Admins) == 0 {
		doc.AddAdmin(userID)
		if err := g.store.Set(ctx, doc); err != nil {
			return false
		}
		logger.Auth.Info("bootstrap admin",
			slog.String("event", "admin.bootstrap"),
			slog.Int64("user_id", userID),
		)
		return true
	}
	return doc.HasAdmin(userID)
}

// Bootstrap promotes the caller to sole admin when the admin set is empty,
// creating the document lazily when it does not exist yet. It reports
// whether the caller was promoted; when the set is already populated nothing
// changes.
func (g *Gate) Bootstrap(ctx context.Context, userID int64) (bool, error) {
	doc, err := g.store.Get(ctx)
	switch {
	case errors.Is(err, menu.ErrNotFound):
		doc = menu.NewDocument()
	case err != nil:
		return false, errors.Join(ErrStoreUnavailable, err)
	}

	if len(doc.Admins) > 0 {
		return false, nil
	}

	doc.AddAdmin(userID)
	if err := g.store.Set(ctx, doc); err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	logger.Auth.Info("bootstrap admin",
		slog.String("event", "admin.bootstrap"),
		slog.Int64("user_id", userID),
	)
	return true, nil
}

// AddAdmin appends newAdminID to the admin set on behalf of requesterID.
// The requester must be an admin; self-promotion and duplicates are
// rejected without mutation.
func (g *Gate) AddAdmin(ctx context.Context, requesterID, newAdminID int64) error {
	if requesterID == newAdminID {
		return ErrSelfPromotion
	}

	doc, err := g.store.Get(ctx)
	if errors.Is(err, menu.ErrNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if !doc.HasAdmin(requesterID) {
		return ErrUnauthorized
	}
	if !doc.AddAdmin(newAdminID) {
		return ErrAlreadyAdmin
	}
	if err := g.store.Set(ctx, doc); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	logger.Auth.Info("admin added",
		slog.String("event", "admin.add"),
		slog.Int64("user_id", requesterID),
		slog.Int64("new_admin_id", newAdminID),
	)
	return nil
}
