package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/caldarelli/barbot/internal/menu"
)

const (
	msgStoreUnavailable = "⚠️ Database non disponibile"
	msgBackButton       = "🔙 Indietro"
)

func (m *Machine) welcomeButtons(isAdmin bool) [][]Button {
	rows := [][]Button{
		{{Text: "📋 Visualizza Menu", Key: CbMenu}},
		{{Text: "📜 Menu Completo", Key: CbList}},
		{{Text: "📞 Prenota Tavolo", Key: CbReserve}},
		{{Text: "ℹ️ Info", Key: CbInfo}, {Text: "📲 Condividi", Key: CbShare}},
	}
	if isAdmin {
		rows = append(rows, []Button{{Text: "🔐 Pannello Admin", Key: CbAdminMenu}})
	}
	return rows
}

func (m *Machine) welcomeText() string {
	return fmt.Sprintf("🍹 *Benvenuto al %s!*\n\nCosa posso fare per te?", m.bar.Name)
}

// Start renders the welcome message. Admins get an extra panel button.
func (m *Machine) Start(ctx context.Context, userID int64) []Reply {
	return []Reply{{
		Text:    m.welcomeText(),
		Buttons: m.welcomeButtons(m.gate.IsAdmin(ctx, userID)),
	}}
}

// Back re-renders the welcome message in place of the current one.
func (m *Machine) Back(ctx context.Context, userID int64) []Reply {
	return edit(m.welcomeText(), m.welcomeButtons(m.gate.IsAdmin(ctx, userID))...)
}

// Menu shows the category picker.
func (m *Machine) Menu(ctx context.Context) []Reply {
	doc, err := m.store.Get(ctx)
	if err != nil && !errors.Is(err, menu.ErrNotFound) {
		return alert(msgStoreUnavailable)
	}

	var rows [][]Button
	if doc != nil {
		for _, name := range doc.CategoryNames() {
			rows = append(rows, []Button{{Text: "📂 " + name, Key: CbCat, Payload: name}})
		}
	}
	rows = append(rows, []Button{{Text: msgBackButton, Key: CbBack}})
	return edit("📋 *Menu*\n\nScegli una categoria:", rows...)
}

// Category shows the products of one category with their prices.
func (m *Machine) Category(ctx context.Context, name string) []Reply {
	doc, err := m.store.Get(ctx)
	if err != nil && !errors.Is(err, menu.ErrNotFound) {
		return alert(msgStoreUnavailable)
	}

	block := menu.RenderCategory(menu.Category{Name: name})
	if doc != nil {
		if c := doc.Category(name); c != nil {
			block = menu.RenderCategory(*c)
		}
	}
	return edit(block, []Button{{Text: msgBackButton, Key: CbMenu}})
}

// FullMenu renders the complete menu, split into multiple messages when the
// rendered text would exceed the transport limit.
func (m *Machine) FullMenu(ctx context.Context) []Reply {
	doc, err := m.store.Get(ctx)
	if err != nil && !errors.Is(err, menu.ErrNotFound) {
		return alert(msgStoreUnavailable)
	}

	var replies []Reply
	for _, msg := range menu.RenderMenu(doc) {
		replies = append(replies, Reply{Text: msg})
	}
	return replies
}

// Reserve shows the static reservation contact.
func (m *Machine) Reserve() []Reply {
	return text(fmt.Sprintf(
		"📞 *Prenota un Tavolo*\n\nChiama il numero: %s\nOppure invia una richiesta qui.",
		m.bar.Phone,
	))
}

// Info shows the bar's identity card.
func (m *Machine) Info() []Reply {
	body := fmt.Sprintf(
		"ℹ️ *%s*\n\n📍 Indirizzo: %s\n📞 Telefono: %s\n🕐 Orari: %s\n\nBenvenuti!",
		m.bar.Name, m.bar.Address, m.bar.Phone, m.bar.Hours,
	)
	return edit(body, []Button{{Text: msgBackButton, Key: CbBack}})
}
