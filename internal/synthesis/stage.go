package synthesis

import (
	"context"
	"log/slog"
	"os"

	"skitflow/internal/config"
	"skitflow/internal/dialogue"
	"skitflow/internal/logging"
	"skitflow/internal/services"
	"skitflow/internal/stage"
)

// Store is the slice of the dialogue store the synthesis stage needs.
type Store interface {
	Classify(ctx context.Context) (dialogue.Snapshot, error)
	MarkAttempt(ctx context.Context, id int64, succeeded bool) error
}

// Outcome summarizes one synthesis pass.
type Outcome struct {
	Attempted int
	Processed int
	Failed    int
}

// Handler synthesizes audio for the eligible batch. Lines are processed
// sequentially and independently: one failure burns that line's retry and
// the pass continues.
type Handler struct {
	cfg     *config.Config
	store   Store
	session Session
	logger  *slog.Logger

	outcome Outcome
}

// NewHandler wires the synthesis stage.
func NewHandler(cfg *config.Config, store Store, session Session, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		cfg:     cfg,
		store:   store,
		session: session,
		logger:  logging.NewComponentLogger(logger, "synthesis"),
	}
}

func (h *Handler) Name() string { return "synthesis" }

// Outcome reports the counts from the most recent Execute.
func (h *Handler) Outcome() Outcome { return h.outcome }

// Prepare confirms a synthesizer is wired and the artifact directory exists.
func (h *Handler) Prepare(_ context.Context) error {
	if h.session == nil {
		return services.Wrap(services.ErrConfiguration, "synthesis", "prepare", "no synthesizer configured", nil)
	}
	if err := os.MkdirAll(h.cfg.Paths.AudioDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "synthesis", "prepare", "create audio directory", err)
	}
	return nil
}

// Execute synthesizes every line in the current eligible batch. Every line
// touched gets exactly one MarkAttempt, success or failure, so the retry
// budget advances deterministically.
func (h *Handler) Execute(ctx context.Context) error {
	h.outcome = Outcome{}

	snapshot, err := h.store.Classify(ctx)
	if err != nil {
		return err
	}
	if snapshot.Stage != dialogue.StagePending {
		h.logger.Info("no eligible lines", logging.String("stage", snapshot.Stage.String()))
		return nil
	}

	for _, line := range snapshot.Eligible {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.outcome.Attempted++
		succeeded := h.processLine(ctx, line)
		if succeeded {
			h.outcome.Processed++
		} else {
			h.outcome.Failed++
		}
		if err := h.store.MarkAttempt(ctx, line.ID, succeeded); err != nil {
			return err
		}
	}

	h.logger.Info("synthesis pass complete",
		logging.Int("attempted", h.outcome.Attempted),
		logging.Int("processed", h.outcome.Processed),
		logging.Int("failed", h.outcome.Failed))
	return nil
}

// HealthCheck reports synthesizer wiring status.
func (h *Handler) HealthCheck(_ context.Context) stage.Health {
	if h.session == nil {
		return stage.Unhealthy("synthesis", "no synthesizer configured")
	}
	return stage.Healthy("synthesis")
}

func (h *Handler) processLine(ctx context.Context, line dialogue.Line) bool {
	ctx = services.WithLineID(ctx, line.ID)
	logger := logging.WithContext(ctx, h.logger)

	speaker, utterance, err := ParseLine(line.Sentence)
	if err != nil {
		logger.Warn("malformed line", logging.Error(err))
		return false
	}

	artifact, err := h.session.Generate(ctx, Request{
		LineID:    line.ID,
		Speaker:   speaker,
		Utterance: utterance,
	})
	if err != nil {
		logger.Warn("synthesis failed",
			logging.String("speaker", speaker),
			logging.Error(err))
		return false
	}

	logger.Info("synthesized line",
		logging.String("speaker", speaker),
		logging.String("artifact", artifact.Path))
	return true
}
