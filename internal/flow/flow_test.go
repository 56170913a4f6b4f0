package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/caldarelli/barbot/internal/auth"
	"github.com/caldarelli/barbot/internal/config"
	"github.com/caldarelli/barbot/internal/menu"
	"github.com/caldarelli/barbot/internal/session"
)

type recordingNotifier struct {
	added []int64
}

func (n *recordingNotifier) AdminAdded(_ context.Context, newAdminID int64) {
	n.added = append(n.added, newAdminID)
}

func newTestMachine() (*Machine, *menu.MemoryStore, *recordingNotifier) {
	store := menu.NewMemoryStore()
	notifier := &recordingNotifier{}
	m := NewMachine(store, auth.NewGate(store), session.NewStore(), config.BarConfig{
		Name:    "Bar Caldarelli",
		Address: "Via Roma 123",
		Phone:   "+39 123 456 7890",
		Hours:   "08:00 - 02:00",
	}, notifier)
	return m, store, notifier
}

func joinReplies(rs []Reply) string {
	var b strings.Builder
	for _, r := range rs {
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func TestAdminEndToEnd(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestMachine()

	const alice, bob = int64(100), int64(200)

	// First /admin on an empty document bootstraps the caller.
	out := m.AdminPanel(ctx, alice)
	if got := joinReplies(out); !strings.Contains(got, "Admin principale") {
		t.Fatalf("bootstrap reply = %q", got)
	}

	// A second caller is not promoted and not let in.
	out = m.AdminPanel(ctx, bob)
	if got := joinReplies(out); !strings.Contains(got, "Non sei autorizzato") {
		t.Fatalf("non-admin reply = %q", got)
	}

	// Add a category.
	m.StartAddCategory(ctx, alice)
	out = m.HandleText(ctx, alice, "Cocktails", 0)
	if got := joinReplies(out); !strings.Contains(got, "Cocktails") || !strings.Contains(got, "aggiunta") {
		t.Fatalf("add category reply = %q", got)
	}
	if m.InProgress(alice) {
		t.Fatal("session should be cleared after category commit")
	}

	// Add a product through the three-step flow.
	m.SelectCategory(ctx, alice, "Cocktails")
	m.HandleText(ctx, alice, "Spritz", 0)
	out = m.HandleText(ctx, alice, "5,00", 0)
	if got := joinReplies(out); !strings.Contains(got, "Spritz") || !strings.Contains(got, "€5.00") {
		t.Fatalf("add product reply = %q", got)
	}

	doc, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	c := doc.Category("Cocktails")
	if c == nil || len(c.Products) != 1 || c.Products[0].Name != "Spritz" || c.Products[0].Price != 5 {
		t.Fatalf("stored document = %+v", doc)
	}

	// Bob still cannot start a flow.
	out = m.StartAddCategory(ctx, bob)
	if got := joinReplies(out); !strings.Contains(got, "Non sei autorizzato") {
		t.Fatalf("non-admin flow start = %q", got)
	}
	if m.InProgress(bob) {
		t.Fatal("rejected user must not get a session")
	}
}

func TestPriceRetryKeepsSession(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMachine()

	m.AdminPanel(ctx, 1)
	m.HandleText(ctx, 1, "", 0) // no session yet, no-op
	m.StartAddCategory(ctx, 1)
	m.HandleText(ctx, 1, "Birre", 0)

	m.SelectCategory(ctx, 1, "Birre")
	m.HandleText(ctx, 1, "Moretti", 0)

	out := m.HandleText(ctx, 1, "four fifty", 0)
	if got := joinReplies(out); !strings.Contains(got, "Prezzo non valido") {
		t.Fatalf("bad price reply = %q", got)
	}
	if !m.InProgress(1) {
		t.Fatal("price validation error must keep the session")
	}

	// The retry still remembers category and product name.
	out = m.HandleText(ctx, 1, "4.50", 0)
	got := joinReplies(out)
	if !strings.Contains(got, "Moretti") || !strings.Contains(got, "Birre") || !strings.Contains(got, "€4.50") {
		t.Fatalf("retry commit reply = %q", got)
	}
}

func TestAddAdminViaForwardAndID(t *testing.T) {
	ctx := context.Background()
	m, store, notifier := newTestMachine()

	m.AdminPanel(ctx, 1)

	// Forwarded message: the original author's ID wins over the text.
	m.StartAddAdmin(ctx, 1)
	out := m.HandleText(ctx, 1, "whatever", 42)
	if got := joinReplies(out); !strings.Contains(got, "42") || !strings.Contains(got, "aggiunto") {
		t.Fatalf("forward add reply = %q", got)
	}

	// Plain numeric ID.
	m.StartAddAdmin(ctx, 1)
	out = m.HandleText(ctx, 1, " 77 ", 0)
	if got := joinReplies(out); !strings.Contains(got, "77") {
		t.Fatalf("numeric add reply = %q", got)
	}

	doc, _ := store.Get(ctx)
	for _, want := range []int64{1, 42, 77} {
		if !doc.HasAdmin(want) {
			t.Fatalf("admin %d missing from %v", want, doc.Admins)
		}
	}
	if len(notifier.added) != 2 || notifier.added[0] != 42 || notifier.added[1] != 77 {
		t.Fatalf("notified = %v", notifier.added)
	}
}

func TestAddAdminBadIDResetsSession(t *testing.T) {
	ctx := context.Background()
	m, _, notifier := newTestMachine()

	m.AdminPanel(ctx, 1)
	m.StartAddAdmin(ctx, 1)
	out := m.HandleText(ctx, 1, "not a number", 0)
	if got := joinReplies(out); !strings.Contains(got, "ID non valido") {
		t.Fatalf("bad id reply = %q", got)
	}
	if m.InProgress(1) {
		t.Fatal("malformed admin id must reset the session")
	}
	if len(notifier.added) != 0 {
		t.Fatalf("no notification expected, got %v", notifier.added)
	}
}

func TestAddAdminRejections(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMachine()

	m.AdminPanel(ctx, 1)

	m.StartAddAdmin(ctx, 1)
	out := m.HandleText(ctx, 1, "1", 0)
	if got := joinReplies(out); !strings.Contains(got, "te stesso") {
		t.Fatalf("self promotion reply = %q", got)
	}

	m.StartAddAdmin(ctx, 1)
	m.HandleText(ctx, 1, "42", 0)
	m.StartAddAdmin(ctx, 1)
	out = m.HandleText(ctx, 1, "42", 0)
	if got := joinReplies(out); !strings.Contains(got, "già admin") {
		t.Fatalf("duplicate admin reply = %q", got)
	}
}

func TestDemotionMidFlow(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestMachine()

	m.AdminPanel(ctx, 1)
	m.StartAddCategory(ctx, 1)

	// Simulate an out-of-band demotion between prompt and reply.
	doc, _ := store.Get(ctx)
	doc.Admins = []int64{999}
	if err := store.Set(ctx, doc); err != nil {
		t.Fatal(err)
	}

	out := m.HandleText(ctx, 1, "Cocktails", 0)
	if got := joinReplies(out); !strings.Contains(got, "Non sei autorizzato") {
		t.Fatalf("demoted reply = %q", got)
	}
	if m.InProgress(1) {
		t.Fatal("demoted user's session must be cleared")
	}

	after, _ := store.Get(ctx)
	if after.Category("Cocktails") != nil {
		t.Fatal("demoted user must not write the document")
	}
}

func TestCancelClearsSession(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMachine()

	m.AdminPanel(ctx, 1)
	m.SelectCategory(ctx, 1, "Birre")
	m.HandleText(ctx, 1, "Moretti", 0)

	out := m.Cancel(1)
	if got := joinReplies(out); !strings.Contains(got, "annullata") {
		t.Fatalf("cancel reply = %q", got)
	}
	if m.InProgress(1) {
		t.Fatal("cancel must clear the session")
	}
	if out := m.HandleText(ctx, 1, "5.00", 0); out != nil {
		t.Fatalf("text after cancel should be ignored, got %v", out)
	}
}

func TestStoreFailureClearsSession(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestMachine()

	m.AdminPanel(ctx, 1)
	m.StartAddCategory(ctx, 1)

	store.FailSet = errors.New("connection refused")
	out := m.HandleText(ctx, 1, "Cocktails", 0)
	if got := joinReplies(out); !strings.Contains(got, "Database non disponibile") {
		t.Fatalf("store failure reply = %q", got)
	}
	if m.InProgress(1) {
		t.Fatal("store failure must clear the session")
	}
}

func TestRemoveProduct(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestMachine()

	m.AdminPanel(ctx, 1)
	doc, _ := store.Get(ctx)
	doc.AddProduct("Birre", menu.Product{Name: "Moretti", Price: 4.5})
	doc.AddProduct("Birre", menu.Product{Name: "Ichnusa", Price: 5})
	if err := store.Set(ctx, doc); err != nil {
		t.Fatal(err)
	}

	out := m.RemoveProduct(ctx, 1, "Birre", "Moretti")
	if got := joinReplies(out); !strings.Contains(got, "rimosso") {
		t.Fatalf("remove reply = %q", got)
	}

	after, _ := store.Get(ctx)
	c := after.Category("Birre")
	if len(c.Products) != 1 || c.Products[0].Name != "Ichnusa" {
		t.Fatalf("remaining products = %+v", c.Products)
	}

	out = m.RemoveProduct(ctx, 1, "Birre", "Moretti")
	if got := joinReplies(out); !strings.Contains(got, "non trovato") {
		t.Fatalf("missing product reply = %q", got)
	}
}

func TestAddProductRequiresCategory(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMachine()

	m.AdminPanel(ctx, 1)
	out := m.StartAddProduct(ctx, 1)
	if got := joinReplies(out); !strings.Contains(got, "Nessuna categoria") {
		t.Fatalf("empty menu reply = %q", got)
	}
	if m.InProgress(1) {
		t.Fatal("flow must not start without categories")
	}
}

func TestCustomerSurface(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestMachine()

	doc := menu.NewDocument()
	doc.AddAdmin(999)
	doc.AddProduct("Cocktails", menu.Product{Name: "Spritz", Price: 5})
	if err := store.Set(ctx, doc); err != nil {
		t.Fatal(err)
	}

	out := m.Start(ctx, 7)
	if got := joinReplies(out); !strings.Contains(got, "Bar Caldarelli") {
		t.Fatalf("welcome = %q", got)
	}
	for _, row := range out[0].Buttons {
		for _, b := range row {
			if b.Key == CbAdminMenu {
				t.Fatal("non-admin welcome must not show the admin panel button")
			}
		}
	}

	out = m.Menu(ctx)
	if len(out) != 1 || !out[0].Edit {
		t.Fatalf("menu should edit in place, got %+v", out)
	}
	if got := joinReplies(out); !strings.Contains(got, "Scegli una categoria") {
		t.Fatalf("menu = %q", got)
	}

	out = m.Category(ctx, "Cocktails")
	if got := joinReplies(out); !strings.Contains(got, "Spritz") || !strings.Contains(got, "€5.00") {
		t.Fatalf("category = %q", got)
	}

	out = m.FullMenu(ctx)
	if got := joinReplies(out); !strings.Contains(got, "Cocktails") {
		t.Fatalf("full menu = %q", got)
	}

	out = m.Info()
	got := joinReplies(out)
	if !strings.Contains(got, "Via Roma 123") || !strings.Contains(got, "+39 123 456 7890") {
		t.Fatalf("info = %q", got)
	}
}
