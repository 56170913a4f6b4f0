package menu

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get when the menu document has never been
// written.
var ErrNotFound = errors.New("menu: document not found")

// Store persists the single menu document. There is no partial update: every
// mutation goes through Get, edit, Set.
type Store interface {
	Get(ctx context.Context) (*Document, error)
	Set(ctx context.Context, doc *Document) error
}
