// Package menu holds the persisted menu document and its store.
//
// The whole menu lives in one document: the admin list plus an ordered list
// of categories, each with an ordered product list. Every mutation reads the
// full document, edits it in memory, and writes it back; concurrent writers
// race and the last one wins.
package menu

// DocumentKey identifies the single menu document in the store.
const DocumentKey = "default"

// Product is a single menu entry. Names are unique within a category by
// convention only.
type Product struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Category groups products under a case-sensitive unique name.
type Category struct {
	Name     string    `json:"name"`
	Products []Product `json:"products"`
}

// Document is the full persisted menu state.
type Document struct {
	Admins     []int64    `json:"admins"`
	Categories []Category `json:"categories"`
}

// NewDocument returns an empty menu document.
func NewDocument() *Document {
	return &Document{}
}

// HasAdmin reports whether the user is in the admin set.
func (d *Document) HasAdmin(userID int64) bool {
	for _, id := range d.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// AddAdmin appends the user to the admin set. It returns false when the user
// is already present.
func (d *Document) AddAdmin(userID int64) bool {
	if d.HasAdmin(userID) {
		return false
	}
	d.Admins = append(d.Admins, userID)
	return true
}

// Category returns the named category, or nil when absent.
func (d *Document) Category(name string) *Category {
	for i := range d.Categories {
		if d.Categories[i].Name == name {
			return &d.Categories[i]
		}
	}
	return nil
}

// CategoryNames returns category names in listing order.
func (d *Document) CategoryNames() []string {
	names := make([]string, 0, len(d.Categories))
	for _, c := range d.Categories {
		names = append(names, c.Name)
	}
	return names
}

// SetCategory creates the named category with an empty product list,
// replacing any existing category of the same name.
func (d *Document) SetCategory(name string) {
	if c := d.Category(name); c != nil {
		c.Products = nil
		return
	}
	d.Categories = append(d.Categories, Category{Name: name})
}

// AddProduct appends a product to the named category, creating the category
// when missing.
func (d *Document) AddProduct(category string, p Product) {
	c := d.Category(category)
	if c == nil {
		d.Categories = append(d.Categories, Category{Name: category})
		c = &d.Categories[len(d.Categories)-1]
	}
	c.Products = append(c.Products, p)
}

// RemoveProduct deletes every product with exactly the given name from the
// category and reports how many entries were removed. Missing categories are
// a no-op.
func (d *Document) RemoveProduct(category, name string) int {
	c := d.Category(category)
	if c == nil {
		return 0
	}
	kept := c.Products[:0]
	removed := 0
	for _, p := range c.Products {
		if p.Name == name {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	c.Products = kept
	return removed
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Admins:     append([]int64(nil), d.Admins...),
		Categories: make([]Category, len(d.Categories)),
	}
	for i, c := range d.Categories {
		out.Categories[i] = Category{
			Name:     c.Name,
			Products: append([]Product(nil), c.Products...),
		}
	}
	return out
}
