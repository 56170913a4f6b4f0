package menu

import (
	"fmt"
	"strconv"
	"strings"
)

// MessageLimit is the largest rendered text we put into one outgoing
// message. Telegram caps messages at 4096 characters; 3500 leaves headroom
// for formatting entities.
const MessageLimit = 3500

// RenderCategory renders one category block: a header followed by one line
// per product. Empty categories get a placeholder line.
func RenderCategory(c Category) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🍽️ *%s*\n\n", c.Name)
	if len(c.Products) == 0 {
		b.WriteString("_Nessun prodotto disponibile_\n")
		return b.String()
	}
	for _, p := range c.Products {
		fmt.Fprintf(&b, "• *%s* - %s\n", p.Name, FormatPrice(p.Price))
	}
	return b.String()
}

// RenderMenu renders the whole menu as a sequence of outgoing messages.
// Category blocks are never split: when appending the next block would push
// the buffer past MessageLimit, the buffer is flushed and the block starts a
// new message. The final non-empty buffer is always flushed.
func RenderMenu(d *Document) []string {
	return paginate(d, MessageLimit)
}

func paginate(d *Document, limit int) []string {
	if d == nil || len(d.Categories) == 0 {
		return []string{"📋 *Menu*\n\n_Il menu è ancora vuoto_"}
	}

	var (
		messages []string
		buf      strings.Builder
	)
	for _, c := range d.Categories {
		block := RenderCategory(c)
		if buf.Len() > 0 && buf.Len()+len("\n")+len(block) > limit {
			messages = append(messages, strings.TrimRight(buf.String(), "\n"))
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(block)
	}
	if buf.Len() > 0 {
		messages = append(messages, strings.TrimRight(buf.String(), "\n"))
	}
	return messages
}

// RenderAdmins renders the admin list for the admin panel.
func RenderAdmins(d *Document) string {
	var b strings.Builder
	b.WriteString("👥 *Lista Admin:*\n\n")
	if d == nil || len(d.Admins) == 0 {
		b.WriteString("_Nessun admin registrato_")
		return b.String()
	}
	for _, id := range d.Admins {
		b.WriteString("• ID: `" + strconv.FormatInt(id, 10) + "`\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
