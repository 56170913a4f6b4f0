package bot

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/caldarelli/barbot/internal/flow"
)

// markup converts transport-agnostic button rows into an inline keyboard.
// Callback data is encoded as "key" or "key|payload".
func markup(rows [][]flow.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			data := b.Key
			if b.Payload != "" {
				data += "|" + b.Payload
			}
			r = append(r, tele.InlineButton{Text: b.Text, Data: data})
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// parseCallback splits raw callback data into its key and payload.
func parseCallback(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	parts := strings.SplitN(raw, "|", 2)
	key := strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		return key, parts[1]
	}
	return key, ""
}
