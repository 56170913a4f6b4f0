package menu

import (
	"fmt"
	"strings"
	"testing"
)

func TestRenderCategoryFormatsPrices(t *testing.T) {
	c := Category{
		Name:     "Cocktails",
		Products: []Product{{Name: "Spritz", Price: 4.5}},
	}
	block := RenderCategory(c)
	if !strings.Contains(block, "*Cocktails*") {
		t.Errorf("missing header: %q", block)
	}
	if !strings.Contains(block, "• *Spritz* - €4.50") {
		t.Errorf("missing product line: %q", block)
	}
}

func TestRenderCategoryEmpty(t *testing.T) {
	block := RenderCategory(Category{Name: "Vini"})
	if !strings.Contains(block, "Nessun prodotto") {
		t.Errorf("missing placeholder: %q", block)
	}
}

func TestRenderMenuEmptyDocument(t *testing.T) {
	msgs := RenderMenu(NewDocument())
	if len(msgs) != 1 || !strings.Contains(msgs[0], "vuoto") {
		t.Fatalf("unexpected empty-menu rendering: %v", msgs)
	}
}

func TestRenderMenuSingleMessage(t *testing.T) {
	d := NewDocument()
	d.AddProduct("Cocktails", Product{Name: "Spritz", Price: 5})
	d.AddProduct("Birre", Product{Name: "Lager", Price: 4})

	msgs := RenderMenu(d)
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0], "Cocktails") || !strings.Contains(msgs[0], "Birre") {
		t.Fatalf("categories missing: %q", msgs[0])
	}
}

func TestPaginationNeverSplitsCategories(t *testing.T) {
	d := NewDocument()
	blockSizes := make(map[string]int)
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("Categoria %02d", i)
		for j := 0; j < 20; j++ {
			d.AddProduct(name, Product{
				Name:  fmt.Sprintf("Prodotto con un nome piuttosto lungo %02d", j),
				Price: float64(j) + 0.5,
			})
		}
		blockSizes[name] = len(RenderCategory(*d.Category(name)))
	}

	msgs := RenderMenu(d)
	if len(msgs) < 2 {
		t.Fatalf("expected pagination, got %d message(s)", len(msgs))
	}

	maxBlock := 0
	for _, n := range blockSizes {
		if n > maxBlock {
			maxBlock = n
		}
	}
	seen := 0
	for _, m := range msgs {
		if len(m) > MessageLimit+maxBlock {
			t.Errorf("message of %d chars exceeds limit plus one block", len(m))
		}
		// A category header must appear exactly once across all messages.
		for name := range blockSizes {
			if strings.Contains(m, "*"+name+"*") {
				seen++
			}
		}
	}
	if seen != len(blockSizes) {
		t.Fatalf("category headers seen %d times, want %d", seen, len(blockSizes))
	}
}

func TestRenderAdmins(t *testing.T) {
	d := NewDocument()
	if got := RenderAdmins(d); !strings.Contains(got, "Nessun admin") {
		t.Errorf("empty list rendering: %q", got)
	}
	d.AddAdmin(7)
	d.AddAdmin(42)
	got := RenderAdmins(d)
	if !strings.Contains(got, "`7`") || !strings.Contains(got, "`42`") {
		t.Errorf("admin ids missing: %q", got)
	}
}
