// Package flow implements the conversational state machine behind the bot.
//
// The transport layer translates incoming updates into calls on Machine and
// renders the returned replies; nothing in here touches Telegram directly,
// so the whole conversation logic is testable against in-memory fakes.
package flow

import (
	"context"

	"github.com/caldarelli/barbot/internal/auth"
	"github.com/caldarelli/barbot/internal/config"
	"github.com/caldarelli/barbot/internal/menu"
	"github.com/caldarelli/barbot/internal/session"
)

// Callback action keys. Payload-carrying callbacks encode their arguments as
// "value" or "value|value2" after the key.
const (
	CbMenu      = "menu"
	CbList      = "list"
	CbReserve   = "reserve"
	CbInfo      = "info"
	CbShare     = "share"
	CbBack      = "back"
	CbAdminMenu = "admin_menu"
	CbAddCat    = "add_cat"
	CbAddProd   = "add_prod"
	CbRemProd   = "rem_prod"
	CbAddAdmin  = "add_admin"
	CbListAdmin = "list_admin"
	CbCancel    = "cancel"
	CbCat       = "cat"
	CbSelCat    = "selcat"
	CbRemCat    = "remcat"
	CbDelProd   = "delprod"
)

// Button is a transport-agnostic inline button.
type Button struct {
	Text    string
	Key     string
	Payload string
}

// Reply is one outgoing message produced by the state machine.
type Reply struct {
	Text    string
	Buttons [][]Button
	// Edit asks the transport to edit the originating message in place
	// instead of sending a new one.
	Edit bool
	// Alert is a short callback acknowledgement shown as a toast.
	Alert bool
}

// Notifier delivers best-effort messages outside the current conversation.
// Implementations must never block or propagate failures.
type Notifier interface {
	AdminAdded(ctx context.Context, newAdminID int64)
}

// Machine drives every customer and admin conversation.
type Machine struct {
	store    menu.Store
	gate     *auth.Gate
	sessions *session.Store
	bar      config.BarConfig
	notifier Notifier
}

// NewMachine wires the state machine. notifier may be nil.
func NewMachine(store menu.Store, gate *auth.Gate, sessions *session.Store, bar config.BarConfig, notifier Notifier) *Machine {
	return &Machine{
		store:    store,
		gate:     gate,
		sessions: sessions,
		bar:      bar,
		notifier: notifier,
	}
}

// SetNotifier installs the notifier after construction. The transport is
// built around the machine, so the out-of-band sender only exists later.
func (m *Machine) SetNotifier(n Notifier) {
	m.notifier = n
}

// InProgress reports whether the user has an active multi-step flow, so the
// transport can route free-text replies here.
func (m *Machine) InProgress(userID int64) bool {
	return m.sessions.InProgress(userID)
}

func text(s string) []Reply {
	return []Reply{{Text: s}}
}

func edit(s string, buttons ...[]Button) []Reply {
	return []Reply{{Text: s, Buttons: buttons, Edit: true}}
}

func alert(s string) []Reply {
	return []Reply{{Text: s, Alert: true}}
}
