package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skitflow/internal/config"
	"skitflow/internal/dialogue"
	"skitflow/internal/logging"
	"skitflow/internal/notifications"
	"skitflow/internal/services"
	"skitflow/internal/stage"
	"skitflow/internal/telegram"
)

// Poller is the chat surface the intake stage reads from and replies to.
// *telegram.Client satisfies it.
type Poller interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSeconds int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, text string) error
}

// Store is the slice of the dialogue store intake writes to.
type Store interface {
	InsertBatch(ctx context.Context, inputs []dialogue.LineInput) (int, error)
}

// Handler polls the operator chat for a dialogue payload and seeds the
// store. It runs only when classification reports an empty store.
type Handler struct {
	cfg      *config.Config
	store    Store
	poller   Poller
	notifier notifications.Service
	cursor   *Cursor
	logger   *slog.Logger

	// sleep is swapped in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHandler wires the intake stage.
func NewHandler(cfg *config.Config, store Store, poller Poller, notifier notifications.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		cfg:      cfg,
		store:    store,
		poller:   poller,
		notifier: notifier,
		cursor:   NewCursor(cfg.CursorPath()),
		logger:   logging.NewComponentLogger(logger, "intake"),
		sleep:    sleepContext,
	}
}

func (h *Handler) Name() string { return "intake" }

// Prepare confirms the chat transport is configured before polling starts.
func (h *Handler) Prepare(_ context.Context) error {
	if h.poller == nil {
		return services.Wrap(services.ErrConfiguration, "intake", "prepare", "no chat transport configured", nil)
	}
	return h.cfg.RequireTelegram()
}

// Execute polls for up to the configured window, queueing the first valid
// payload it sees. Non-payload chatter is acknowledged and skipped; an
// invalid payload is rejected with feedback and polling continues.
func (h *Handler) Execute(ctx context.Context) error {
	offset, err := h.cursor.Load()
	if err != nil {
		return services.Wrap(services.ErrStorage, "intake", "cursor", "load update cursor", err)
	}

	deadline := time.Now().Add(time.Duration(h.cfg.Telegram.PollWindowMinutes) * time.Minute)
	interval := time.Duration(h.cfg.Telegram.PollInterval) * time.Second

	h.logger.Info("polling for dialogue payload",
		logging.Int64("cursor", offset),
		logging.Int("window_minutes", h.cfg.Telegram.PollWindowMinutes))

	for time.Now().Before(deadline) {
		updates, err := h.poller.GetUpdates(ctx, offset, 0)
		if err != nil {
			h.logger.Warn("update poll failed", logging.Error(err))
			if err := h.sleep(ctx, interval); err != nil {
				return err
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			queued, err := h.handleUpdate(ctx, update)
			if err != nil {
				return err
			}
			if queued {
				if err := h.cursor.Store(offset); err != nil {
					return services.Wrap(services.ErrStorage, "intake", "cursor", "persist update cursor", err)
				}
				return nil
			}
		}
		if len(updates) > 0 {
			if err := h.cursor.Store(offset); err != nil {
				return services.Wrap(services.ErrStorage, "intake", "cursor", "persist update cursor", err)
			}
		}

		if err := h.sleep(ctx, interval); err != nil {
			return err
		}
	}

	h.logger.Info("poll window expired without payload")
	return nil
}

// HealthCheck reports transport configuration status.
func (h *Handler) HealthCheck(_ context.Context) stage.Health {
	if err := h.cfg.RequireTelegram(); err != nil {
		return stage.Unhealthy("intake", err.Error())
	}
	return stage.Healthy("intake")
}

// handleUpdate processes one chat update. It returns true once a valid
// payload has been queued.
func (h *Handler) handleUpdate(ctx context.Context, update telegram.Update) (bool, error) {
	inputs, err := ExtractPayload(update.Text())
	if err != nil {
		h.logger.Warn("rejected payload", logging.Int64("update_id", update.UpdateID), logging.Error(err))
		h.reply(ctx, fmt.Sprintf("Could not read that payload: %v", err))
		return false, nil
	}
	if inputs == nil {
		return false, nil
	}

	count, err := h.store.InsertBatch(ctx, inputs)
	if err != nil {
		if errors.Is(err, services.ErrStorage) {
			return false, err
		}
		return false, services.Wrap(services.ErrStorage, "intake", "insert", "queue dialogue lines", err)
	}

	h.logger.Info("queued dialogue lines", logging.Int("count", count))
	h.reply(ctx, fmt.Sprintf("Queued %d line(s). Synthesis starts on the next run.", count))
	if h.notifier != nil {
		_ = h.notifier.NotifyIntakeReceived(ctx, count)
	}
	return true, nil
}

// reply is best effort; intake progress never blocks on chat delivery.
func (h *Handler) reply(ctx context.Context, text string) {
	if err := h.poller.SendMessage(ctx, text); err != nil {
		h.logger.Warn("feedback delivery failed", logging.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
