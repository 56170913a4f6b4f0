// Package bot wires the conversation machine to Telegram via telebot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/caldarelli/barbot/internal/config"
	"github.com/caldarelli/barbot/internal/flow"
	"github.com/caldarelli/barbot/internal/logger"
)

// callbackHandler runs one callback action and returns the replies to render.
type callbackHandler func(ctx context.Context, c tele.Context, payload string) []flow.Reply

// Bot owns the telebot instance and its routing tables.
type Bot struct {
	tb        *tele.Bot
	cfg       *config.Config
	machine   *flow.Machine
	callbacks map[string]callbackHandler
}

// New builds the bot, registers every route and middleware, and leaves it
// ready to Run.
func New(cfg *config.Config, machine *flow.Machine) (*Bot, error) {
	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: BuildPoller(cfg.Telegram, cfg.Webhook),
		Client: BuildHTTPClient(),
		OnError: func(err error, c tele.Context) {
			attrs := []slog.Attr{
				slog.String("event", "tg.handler.error"),
				slog.String("err", err.Error()),
			}
			if c != nil {
				attrs = append(attrs, slog.String("rid", logger.RIDFrom(requestContext(c))))
			}
			logger.TG.LogAttrs(context.Background(), slog.LevelError, "handler failed", attrs...)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bot initialization failed: %w", err)
	}

	b := &Bot{tb: tb, cfg: cfg, machine: machine}
	b.callbacks = b.buildCallbacks()
	b.register()
	return b, nil
}

// Telebot exposes the underlying bot for outbound senders.
func (b *Bot) Telebot() *tele.Bot {
	return b.tb
}

func (b *Bot) register() {
	b.tb.Use(RecoverMiddleware, LoggerMiddleware)

	b.tb.Handle("/start", func(c tele.Context) error {
		return render(c, b.machine.Start(requestContext(c), c.Sender().ID))
	})
	b.tb.Handle("/admin", func(c tele.Context) error {
		return render(c, b.machine.AdminPanel(requestContext(c), c.Sender().ID))
	})
	b.tb.Handle("/cancel", func(c tele.Context) error {
		return render(c, b.machine.Cancel(c.Sender().ID))
	})
	b.tb.Handle(tele.OnText, b.onText)
	b.tb.Handle(tele.OnCallback, b.onCallback)

	if err := b.tb.SetCommands([]tele.Command{
		{Text: "/start", Description: "Mostra il menu principale"},
		{Text: "/cancel", Description: "Annulla l'operazione in corso"},
	}); err != nil {
		logger.TG.Warn("set commands failed",
			slog.String("event", "tg.commands"),
			slog.String("err", err.Error()),
		)
	}
}

func (b *Bot) buildCallbacks() map[string]callbackHandler {
	m := b.machine
	return map[string]callbackHandler{
		flow.CbMenu: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.Menu(ctx)
		},
		flow.CbCat: func(ctx context.Context, c tele.Context, payload string) []flow.Reply {
			return m.Category(ctx, payload)
		},
		flow.CbList: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.FullMenu(ctx)
		},
		flow.CbReserve: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.Reserve()
		},
		flow.CbInfo: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.Info()
		},
		flow.CbShare: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return b.share(ctx, c)
		},
		flow.CbBack: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.Back(ctx, c.Sender().ID)
		},
		flow.CbAdminMenu: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.AdminPanelBack(ctx, c.Sender().ID)
		},
		flow.CbAddCat: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.StartAddCategory(ctx, c.Sender().ID)
		},
		flow.CbAddProd: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.StartAddProduct(ctx, c.Sender().ID)
		},
		flow.CbSelCat: func(ctx context.Context, c tele.Context, payload string) []flow.Reply {
			return m.SelectCategory(ctx, c.Sender().ID, payload)
		},
		flow.CbRemProd: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.StartRemoveProduct(ctx, c.Sender().ID)
		},
		flow.CbRemCat: func(ctx context.Context, c tele.Context, payload string) []flow.Reply {
			return m.SelectRemoveCategory(ctx, c.Sender().ID, payload)
		},
		flow.CbDelProd: func(ctx context.Context, c tele.Context, payload string) []flow.Reply {
			parts := strings.SplitN(payload, "|", 2)
			if len(parts) != 2 {
				return nil
			}
			return m.RemoveProduct(ctx, c.Sender().ID, parts[0], parts[1])
		},
		flow.CbAddAdmin: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.StartAddAdmin(ctx, c.Sender().ID)
		},
		flow.CbListAdmin: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.ListAdmins(ctx, c.Sender().ID)
		},
		flow.CbCancel: func(ctx context.Context, c tele.Context, _ string) []flow.Reply {
			return m.Cancel(c.Sender().ID)
		},
	}
}

func (b *Bot) onText(c tele.Context) error {
	userID := c.Sender().ID
	if !b.machine.InProgress(userID) {
		return nil
	}
	ctx := requestContext(c)
	return render(c, b.machine.HandleText(ctx, userID, c.Text(), forwardOrigin(c.Message())))
}

func (b *Bot) onCallback(c tele.Context) error {
	key, payload := parseCallback(c.Callback())
	handler, ok := b.callbacks[key]
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "Azione non supportata"})
	}

	ctx := logger.WithHandler(requestContext(c), "cb."+key)
	replies := handler(ctx, c, payload)

	responded := false
	for _, r := range replies {
		if r.Alert {
			responded = true
		}
	}
	if err := render(c, replies); err != nil {
		return err
	}
	if !responded {
		return c.Respond()
	}
	return nil
}

// forwardOrigin extracts the original author's ID from a forwarded message.
func forwardOrigin(msg *tele.Message) int64 {
	if msg == nil || msg.Origin == nil || msg.Origin.Sender == nil {
		return 0
	}
	return msg.Origin.Sender.ID
}

// render applies the machine's replies to the originating Telegram context.
func render(c tele.Context, replies []flow.Reply) error {
	for _, r := range replies {
		if r.Alert && c.Callback() != nil {
			if err := c.Respond(&tele.CallbackResponse{Text: r.Text}); err != nil {
				return err
			}
			continue
		}

		opts := []interface{}{tele.ModeMarkdown}
		if mk := markup(r.Buttons); mk != nil {
			opts = append(opts, mk)
		}

		if r.Edit && c.Callback() != nil {
			if err := c.Edit(r.Text, opts...); err == nil {
				continue
			}
			// Edits fail on messages without text, such as the QR photo;
			// fall back to a fresh message.
		}
		if err := c.Send(r.Text, opts...); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the bot and blocks until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if strings.EqualFold(b.cfg.Telegram.RunMode, config.RunModeLongpoll) {
		if err := deleteWebhook(b.cfg.Telegram.Token, false); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("err", err.Error()),
			)
		}
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
		)
	} else {
		logger.TG.Info("webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("public_url", b.cfg.Webhook.URL),
		)
	}

	done := make(chan struct{})
	go func() {
		b.tb.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		b.tb.Stop()
		<-done
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-done:
		return nil
	}
}

// deleteWebhook removes a stale webhook registration before long polling,
// otherwise Telegram refuses getUpdates.
func deleteWebhook(token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := fmt.Sprintf("drop_pending_updates=%t", dropPending)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
