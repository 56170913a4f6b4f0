// Package notify delivers best-effort messages outside the request path,
// such as telling a user they were promoted to admin. Deliveries run on a
// small worker pool with retries on transient network errors; failures are
// logged and dropped, never surfaced to the conversation.
package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/caldarelli/barbot/internal/logger"
)

// Sender is the outbound half of the bot API. *tele.Bot satisfies it.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Options controls queue depth and retry behaviour.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
}

type job struct {
	ctx    context.Context
	action string
	run    func() error
}

// Notifier executes outbound deliveries asynchronously.
type Notifier struct {
	sender Sender
	opts   Options
	jobs   chan job
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	errs   atomic.Uint64
}

// New starts a notifier with sane defaults for zeroed options.
func New(sender Sender, opts Options) *Notifier {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}

	n := &Notifier{
		sender: sender,
		opts:   opts,
		jobs:   make(chan job, opts.QueueSize),
		stop:   make(chan struct{}),
	}

	n.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go n.worker()
	}
	return n
}

// AdminAdded tells the newly promoted user about their new role.
func (n *Notifier) AdminAdded(ctx context.Context, newAdminID int64) {
	n.enqueue(ctx, "admin.welcome", func() error {
		_, err := n.sender.Send(
			tele.ChatID(newAdminID),
			"🔐 *Sei stato aggiunto come admin!*\n\nUsa /admin per aprire il pannello.",
			tele.ModeMarkdown,
		)
		return err
	})
}

// ErrorCount returns the number of deliveries that exhausted their retries.
func (n *Notifier) ErrorCount() uint64 {
	return n.errs.Load()
}

// Close stops accepting work and waits for queued deliveries to drain.
func (n *Notifier) Close() {
	n.once.Do(func() {
		close(n.stop)
		close(n.jobs)
		n.wg.Wait()
	})
}

func (n *Notifier) enqueue(ctx context.Context, action string, run func() error) {
	select {
	case <-n.stop:
		return
	default:
	}

	select {
	case n.jobs <- job{ctx: ctx, action: action, run: run}:
	default:
		n.errs.Add(1)
		logger.Notify.Warn("delivery dropped",
			slog.String("event", "notify.queue.full"),
			slog.String("action", action),
		)
	}
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for j := range n.jobs {
		n.deliver(j)
	}
}

func (n *Notifier) deliver(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	attempts := n.opts.MaxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := j.run()
		if err == nil {
			logger.Notify.Debug("delivered",
				slog.String("event", "notify.send"),
				slog.String("action", j.action),
				slog.String("rid", logger.RIDFrom(ctx)),
				slog.Int("attempt", attempt),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)
			return
		}
		lastErr = err
		if !shouldRetry(err) || attempt == attempts {
			break
		}
		time.Sleep(n.opts.RetryBackoff * time.Duration(attempt))
	}

	n.errs.Add(1)
	logger.Notify.Error("delivery failed",
		slog.String("event", "notify.fail"),
		slog.String("action", j.action),
		slog.String("rid", logger.RIDFrom(ctx)),
		slog.String("err", fmt.Sprint(lastErr)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
}
