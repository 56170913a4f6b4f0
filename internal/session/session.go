// Package session tracks the in-progress multi-step admin operation of each
// user.
//
// A session exists only while a flow is incomplete: it is created when a
// flow starts, replaced as the flow advances, and removed on commit, cancel,
// or error. Abandoned sessions expire from the cache on their own.
package session

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Action enumerates the pending multi-step operations.
type Action int

const (
	// ActionNone means no flow is in progress.
	ActionNone Action = iota
	// ActionAddCategory awaits the new category name.
	ActionAddCategory
	// ActionAddProductName awaits the product name for Pending.Category.
	ActionAddProductName
	// ActionAddProductPrice awaits the price for Pending.Category and
	// Pending.ProductName.
	ActionAddProductPrice
	// ActionAddAdmin awaits the new admin's identifier.
	ActionAddAdmin
)

// String returns a short name for logging.
func (a Action) String() string {
	switch a {
	case ActionAddCategory:
		return "add_category"
	case ActionAddProductName:
		return "add_product_name"
	case ActionAddProductPrice:
		return "add_product_price"
	case ActionAddAdmin:
		return "add_admin"
	default:
		return "none"
	}
}

// Pending is the typed state of one user's flow.
type Pending struct {
	Action      Action
	Category    string
	ProductName string
}

const (
	defaultTTL   = 30 * time.Minute
	cleanupEvery = 10 * time.Minute
)

// Store keeps pending flow state per user with TTL-based expiry.
type Store struct {
	cache *gocache.Cache
}

// NewStore returns a session store with the default 30 minute TTL.
func NewStore() *Store {
	return NewStoreTTL(defaultTTL)
}

// NewStoreTTL returns a session store whose entries expire after ttl.
func NewStoreTTL(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{cache: gocache.New(ttl, cleanupEvery)}
}

// Get returns the pending state for a user. Users without a session get the
// zero Pending (ActionNone).
func (s *Store) Get(userID int64) Pending {
	if v, ok := s.cache.Get(key(userID)); ok {
		if p, ok := v.(Pending); ok {
			return p
		}
	}
	return Pending{}
}

// Set stores the pending state for a user, resetting its TTL.
func (s *Store) Set(userID int64, p Pending) {
	if p.Action == ActionNone {
		s.Clear(userID)
		return
	}
	s.cache.SetDefault(key(userID), p)
}

// Clear removes the user's session.
func (s *Store) Clear(userID int64) {
	s.cache.Delete(key(userID))
}

// InProgress reports whether the user has an active flow.
func (s *Store) InProgress(userID int64) bool {
	return s.Get(userID).Action != ActionNone
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
