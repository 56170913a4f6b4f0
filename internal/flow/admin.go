package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/caldarelli/barbot/internal/auth"
	"github.com/caldarelli/barbot/internal/logger"
	"github.com/caldarelli/barbot/internal/menu"
	"github.com/caldarelli/barbot/internal/session"
)

const (
	msgUnauthorized = "❌ Non sei autorizzato!"
	msgCancelled    = "❌ Operazione annullata"
	msgCancelHint   = "(Scrivi /cancel per annullare)"
)

func adminPanelButtons() [][]Button {
	return [][]Button{
		{{Text: "➕ Categoria", Key: CbAddCat}, {Text: "➕ Prodotto", Key: CbAddProd}},
		{{Text: "🗑️ Rimuovi Prodotto", Key: CbRemProd}, {Text: "📊 Lista Admin", Key: CbListAdmin}},
		{{Text: "➕ Aggiungi Admin", Key: CbAddAdmin}},
		{{Text: msgBackButton, Key: CbBack}},
	}
}

const adminPanelText = "🔐 *Pannello Admin*\n\nSeleziona un'azione:"

// AdminPanel handles the /admin command: the first caller on an empty admin
// set is bootstrapped as sole admin, everyone else must already be one.
func (m *Machine) AdminPanel(ctx context.Context, userID int64) []Reply {
	promoted, err := m.gate.Bootstrap(ctx, userID)
	if err != nil {
		return text(msgStoreUnavailable)
	}

	if !m.gate.IsAdmin(ctx, userID) {
		return text(msgUnauthorized)
	}

	var replies []Reply
	if promoted {
		replies = append(replies, Reply{Text: "🔐 *Sei stato registrato come Admin principale!*"})
	}
	return append(replies, Reply{Text: adminPanelText, Buttons: adminPanelButtons()})
}

// AdminPanelBack re-renders the admin panel in place (back button target).
func (m *Machine) AdminPanelBack(ctx context.Context, userID int64) []Reply {
	if !m.gate.IsAdmin(ctx, userID) {
		return alert(msgUnauthorized)
	}
	return edit(adminPanelText, adminPanelButtons()...)
}

// StartAddCategory begins the add-category flow.
func (m *Machine) StartAddCategory(ctx context.Context, userID int64) []Reply {
	if !m.gate.IsAdmin(ctx, userID) {
		return alert(msgUnauthorized)
	}
	m.setPending(userID, session.Pending{Action: session.ActionAddCategory})
	return text("Inserisci il nome della nuova categoria:\n\n" + msgCancelHint)
}

// StartAddProduct begins the add-product flow with a category picker. It
// requires at least one existing category.
func (m *Machine) StartAddProduct(ctx context.Context, userID int64) []Reply {
	if !m.gate.IsAdmin(ctx, userID) {
		return alert(msgUnauthorized)
	}

	doc, err := m.store.Get(ctx)
	if err != nil && !errors.Is(err, menu.ErrNotFound) {
		return alert(msgStoreUnavailable)
	}
	if doc == nil || len(doc.Categories) == 0 {
		return text("⚠️ Nessuna categoria disponibile. Crea prima una categoria.")
	}

	var rows [][]Button
	for _, name := range doc.CategoryNames() {
		rows = append(rows, []Button{{Text: name, Key: CbSelCat, Payload: name}})
	}
	rows = append(rows, []Button{{Text: "❌ Annulla", Key: CbCancel}})
	return edit("Seleziona la categoria per il nuovo prodotto:", rows...)
}

// SelectCategory records the chosen category and asks for the product name.
func (m *Machine) SelectCategory(ctx context.Context, userID int64, category string) []Reply {
	if !m.gate.IsAdmin(ctx, userID) {
		m.sessions.Clear(userID)
		return alert(msgUnauthorized)
	}
	m.setPending(userID, session.Pending{Action: session.ActionAddProductName, Category: category})
	return text(fmt.Sprintf("Inserisci il nome del prodotto per *%s*:\n\n%s", category, msgCancelHint))
}

// StartRemoveProduct begins the remove-product flow with a category picker.
func (m *Machine) StartRemoveProduct(ctx context.Context, userID int64) []Reply {
	if !m.gate.IsAdmin(ctx, userID) {
		return alert(msgUnauthorized)
	}

	doc, err := m.store.Get(ctx)
	if err != nil && !errors.Is(err, menu.ErrNotFound) {
		return alert(msgStoreUnavailable)
	}
	if doc == nil || len(doc.Categories) == 0 {
		return text("⚠️ Nessuna categoria disponibile.")
	}

	var rows [][]Button
	for _, name := range doc.CategoryNames() {
		rows = append(rows, []Button{{Text: name, Key: CbRemCat, Payload: name}})
	}
	rows = append(rows, []Button{{Text: msgBackButton, Key: CbAdminMenu}})
	return edit("Seleziona la categoria del prodotto da rimuovere:", rows...)
}

// SelectRemoveCategory lists the products of the chosen category as delete
// buttons.
func (m *Machine) SelectRemoveCategory(ctx context.Context, userID int64, category string) []Reply {
	if !m.gate.IsAdmin(ctx, userID) {
		return alert(msgUnauthorized)
	}

	doc, err := m.store.Get(ctx)
	if err != nil && !errors.Is(err, menu.ErrNotFound) {
		return alert(msgStoreUnavailable)
	}

	var rows [][]Button
	if doc != nil {
		if c := doc.Category(category); c != nil {
			for _, p := range c.Products {
				rows = append(rows, []Button{{
					Text:    "🗑️ " + p.Name,
					Key:     CbDelProd,
					Payload: category + "|" + p.Name,
				}})
			}
		}
	}
	if len(rows) == 0 {
		return edit("⚠️ Nessun prodotto in questa categoria.",
			[]Button{{Text: msgBackButton, Key: CbRemProd}})
	}
	rows = append(rows, []Button{{Text: msgBackButton, Key: CbRemProd}})
	return edit("Seleziona il prodotto da rimuovere:", rows...)
}

// RemoveProduct deletes every product with the given name from the category
// and persists the document. Missing entries are a no-op.
func (m *Machine) RemoveProduct(ctx context.Context, userID int64, category, name string) []Reply {
	if !m.gate.IsAdmin(ctx, userID) {
		return alert(msgUnauthorized)
	}

	doc, err := m.store.Get(ctx)
	if errors.Is(err, menu.ErrNotFound) {
		return alert("⚠️ Prodotto non trovato")
	}
	if err != nil {
		return alert(msgStoreUnavailable)
	}

	removed := doc.RemoveProduct(category, name)
	if removed == 0 {
		return alert("⚠️ Prodotto non trovato")
	}
	if err := m.store.Set(ctx, doc); err != nil {
		return alert(msgStoreUnavailable)
	}

	logger.Flow.Info("product removed",
		slog.String("event", "product.remove"),
		slog.Int64("user_id", userID),
		slog.String("category", category),
		slog.String("product", name),
		slog.Int("count", removed),
	)
	replies := alert("✅ Prodotto rimosso!")
	return append(replies, m.SelectRemoveCategory(ctx, userID, category)...)
}

// StartAddAdmin begins the add-admin flow.
func (m *Machine) StartAddAdmin(ctx context.Context, userID int64) []Reply {
	if !m.gate.IsAdmin(ctx, userID) {
		return alert(msgUnauthorized)
	}
	m.setPending(userID, session.Pending{Action: session.ActionAddAdmin})
	return text("Inserisci l'ID Telegram del nuovo admin oppure inoltra un suo messaggio:\n\n" +
		"(Puoi ottenere l'ID da @userinfobot)\n" + msgCancelHint)
}

// ListAdmins renders the admin list.
func (m *Machine) ListAdmins(ctx context.Context, userID int64) []Reply {
	if !m.gate.IsAdmin(ctx, userID) {
		return alert(msgUnauthorized)
	}
	doc, err := m.store.Get(ctx)
	if err != nil && !errors.Is(err, menu.ErrNotFound) {
		return alert(msgStoreUnavailable)
	}
	return edit(menu.RenderAdmins(doc), []Button{{Text: msgBackButton, Key: CbAdminMenu}})
}

// Cancel clears any pending session unconditionally and acknowledges.
func (m *Machine) Cancel(userID int64) []Reply {
	m.sessions.Clear(userID)
	return text(msgCancelled)
}

// HandleText advances the active flow with a free-text reply. forwardFrom
// carries the original author's ID when the message was forwarded, used by
// the add-admin flow.
func (m *Machine) HandleText(ctx context.Context, userID int64, input string, forwardFrom int64) []Reply {
	pending := m.sessions.Get(userID)
	if pending.Action == session.ActionNone {
		return nil
	}

	// Admin status is re-checked on every step: a user demoted mid-flow
	// must not commit.
	if !m.gate.IsAdmin(ctx, userID) {
		m.sessions.Clear(userID)
		return text(msgUnauthorized)
	}

	switch pending.Action {
	case session.ActionAddCategory:
		return m.commitCategory(ctx, userID, input)
	case session.ActionAddProductName:
		return m.captureProductName(userID, pending, input)
	case session.ActionAddProductPrice:
		return m.commitProduct(ctx, userID, pending, input)
	case session.ActionAddAdmin:
		return m.commitAdmin(ctx, userID, input, forwardFrom)
	default:
		m.sessions.Clear(userID)
		return nil
	}
}

func (m *Machine) commitCategory(ctx context.Context, userID int64, input string) []Reply {
	name := strings.TrimSpace(input)
	if name == "" {
		// Validation errors keep the session so the user can retry.
		return text("❌ Nome non valido, riprova:")
	}

	doc, err := m.store.Get(ctx)
	if errors.Is(err, menu.ErrNotFound) {
		doc = menu.NewDocument()
	} else if err != nil {
		m.sessions.Clear(userID)
		return text(msgStoreUnavailable)
	}

	// Re-adding an existing category resets it to an empty product list.
	doc.SetCategory(name)
	if err := m.store.Set(ctx, doc); err != nil {
		m.sessions.Clear(userID)
		return text(msgStoreUnavailable)
	}

	m.sessions.Clear(userID)
	logger.Flow.Info("category added",
		slog.String("event", "category.add"),
		slog.Int64("user_id", userID),
		slog.String("category", name),
	)
	return text(fmt.Sprintf("✅ Categoria *%s* aggiunta!", name))
}

func (m *Machine) captureProductName(userID int64, pending session.Pending, input string) []Reply {
	name := strings.TrimSpace(input)
	if name == "" {
		return text("❌ Nome non valido, riprova:")
	}
	m.setPending(userID, session.Pending{
		Action:      session.ActionAddProductPrice,
		Category:    pending.Category,
		ProductName: name,
	})
	return text(fmt.Sprintf(
		"Inserisci il prezzo di *%s*:\n\nEsempio: 5.00 oppure 5,00\n\n%s",
		name, msgCancelHint,
	))
}

func (m *Machine) commitProduct(ctx context.Context, userID int64, pending session.Pending, input string) []Reply {
	price, err := menu.ParsePrice(input)
	if err != nil {
		// The session stays at the price step: category and product name
		// survive for the retry.
		return text("❌ Prezzo non valido! Usa un numero, es. 5.00 oppure 5,00. Riprova:")
	}

	doc, err := m.store.Get(ctx)
	if errors.Is(err, menu.ErrNotFound) {
		doc = menu.NewDocument()
	} else if err != nil {
		m.sessions.Clear(userID)
		return text(msgStoreUnavailable)
	}

	doc.AddProduct(pending.Category, menu.Product{Name: pending.ProductName, Price: price})
	if err := m.store.Set(ctx, doc); err != nil {
		m.sessions.Clear(userID)
		return text(msgStoreUnavailable)
	}

	m.sessions.Clear(userID)
	logger.Flow.Info("product added",
		slog.String("event", "product.add"),
		slog.Int64("user_id", userID),
		slog.String("category", pending.Category),
		slog.String("product", pending.ProductName),
	)
	return text(fmt.Sprintf(
		"✅ Prodotto *%s* (%s) aggiunto a *%s*!",
		pending.ProductName, menu.FormatPrice(price), pending.Category,
	))
}

func (m *Machine) commitAdmin(ctx context.Context, userID int64, input string, forwardFrom int64) []Reply {
	// Malformed input resets the flow; only price validation is resumable.
	newAdminID := forwardFrom
	if newAdminID == 0 {
		parsed, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
		if err != nil || parsed <= 0 {
			m.sessions.Clear(userID)
			return text("❌ ID non valido! Inoltra un messaggio dell'utente o scrivi il suo ID numerico.")
		}
		newAdminID = parsed
	}

	m.sessions.Clear(userID)

	switch err := m.gate.AddAdmin(ctx, userID, newAdminID); {
	case errors.Is(err, auth.ErrSelfPromotion):
		return text("❌ Non puoi aggiungere te stesso")
	case errors.Is(err, auth.ErrAlreadyAdmin):
		return text("⚠️ Questo utente è già admin")
	case errors.Is(err, auth.ErrUnauthorized):
		return text(msgUnauthorized)
	case err != nil:
		return text(msgStoreUnavailable)
	}

	if m.notifier != nil {
		m.notifier.AdminAdded(ctx, newAdminID)
	}
	return text(fmt.Sprintf("✅ Admin *%d* aggiunto!", newAdminID))
}

func (m *Machine) setPending(userID int64, p session.Pending) {
	m.sessions.Set(userID, p)
	logger.Flow.Debug("session advanced",
		slog.String("event", "session.set"),
		slog.Int64("user_id", userID),
		slog.String("action", p.Action.String()),
		slog.String("category", p.Category),
		slog.String("product", p.ProductName),
	)
}
