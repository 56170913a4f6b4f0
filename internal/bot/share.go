package bot

import (
	"bytes"
	"context"
	"fmt"

	"log/slog"

	qrcode "github.com/skip2/go-qrcode"
	tele "gopkg.in/telebot.v4"

	"github.com/caldarelli/barbot/internal/flow"
	"github.com/caldarelli/barbot/internal/logger"
)

// share sends a QR code pointing at the bot so customers can pass it around.
func (b *Bot) share(ctx context.Context, c tele.Context) []flow.Reply {
	var username string
	if b.tb.Me != nil {
		username = b.tb.Me.Username
	}
	link := "https://t.me/" + username

	png, err := qrcode.Encode(link, qrcode.Medium, 512)
	if err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelError, "qr encode failed",
			slog.String("event", "share.qr"),
			slog.String("err", err.Error()),
		)
		return []flow.Reply{{Text: fmt.Sprintf("📲 Condividi il bot: %s", link)}}
	}

	photo := &tele.Photo{
		File: tele.FromReader(bytes.NewReader(png)),
		Caption: fmt.Sprintf(
			"📲 *%s*\n\nScansiona il codice o condividi il link:\n%s",
			b.cfg.Bar.Name, link,
		),
	}
	if err := c.Send(photo, tele.ModeMarkdown); err != nil {
		logger.TG.LogAttrs(ctx, slog.LevelError, "qr send failed",
			slog.String("event", "share.send"),
			slog.String("err", err.Error()),
		)
		return []flow.Reply{{Text: fmt.Sprintf("📲 Condividi il bot: %s", link)}}
	}
	return nil
}
