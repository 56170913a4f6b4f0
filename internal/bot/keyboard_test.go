package bot

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"github.com/caldarelli/barbot/internal/flow"
)

func TestMarkupEncodesPayloads(t *testing.T) {
	mk := markup([][]flow.Button{
		{{Text: "📂 Birre", Key: flow.CbCat, Payload: "Birre"}},
		{{Text: "🔙 Indietro", Key: flow.CbBack}, {Text: "❌", Key: flow.CbCancel}},
	})
	if mk == nil {
		t.Fatal("nil markup")
	}
	if len(mk.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d", len(mk.InlineKeyboard))
	}
	if got := mk.InlineKeyboard[0][0].Data; got != "cat|Birre" {
		t.Fatalf("payload button data = %q", got)
	}
	if got := mk.InlineKeyboard[1][0].Data; got != "back" {
		t.Fatalf("plain button data = %q", got)
	}
	if len(mk.InlineKeyboard[1]) != 2 {
		t.Fatalf("second row buttons = %d", len(mk.InlineKeyboard[1]))
	}
}

func TestMarkupEmpty(t *testing.T) {
	if markup(nil) != nil {
		t.Fatal("empty rows should produce no markup")
	}
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		data        string
		unique      string
		key, rawArg string
	}{
		{data: "menu", key: "menu"},
		{data: "cat|Cocktails", key: "cat", rawArg: "Cocktails"},
		{data: "delprod|Birre|Moretti", key: "delprod", rawArg: "Birre|Moretti"},
		{data: "\fback", key: "back"},
		{unique: "info", data: "x", key: "info", rawArg: "x"},
	}
	for _, c := range cases {
		key, payload := parseCallback(&tele.Callback{Unique: c.unique, Data: c.data})
		if key != c.key || payload != c.rawArg {
			t.Errorf("parseCallback(%q,%q) = (%q,%q), want (%q,%q)",
				c.unique, c.data, key, payload, c.key, c.rawArg)
		}
	}
	if key, payload := parseCallback(nil); key != "" || payload != "" {
		t.Errorf("nil callback = (%q,%q)", key, payload)
	}
}
