package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"skitflow/internal/archive"
	"skitflow/internal/config"
	"skitflow/internal/dialogue"
	"skitflow/internal/logging"
	"skitflow/internal/notifications"
	"skitflow/internal/services"
	"skitflow/internal/stage"
	"skitflow/internal/synthesis"
)

// Store is the slice of the dialogue store the manager drives directly.
type Store interface {
	Classify(ctx context.Context) (dialogue.Snapshot, error)
	FetchProcessed(ctx context.Context) ([]dialogue.Line, error)
	Reset(ctx context.Context) error
}

// SynthesisStage is the synthesis handler contract: a stage that also
// reports its pass outcome.
type SynthesisStage interface {
	stage.Handler
	Outcome() synthesis.Outcome
}

// RenderStage is the render handler contract: a stage that also exposes
// its produced artifact.
type RenderStage interface {
	stage.Handler
	OutputPath() string
}

// Manager classifies the store and runs exactly one pipeline stage per
// invocation. Re-invocation by an external scheduler is what advances a
// dialogue batch from intake through render over successive runs.
type Manager struct {
	cfg      *config.Config
	store    Store
	logger   *slog.Logger
	notifier notifications.Service

	intake    stage.Handler
	synthesis SynthesisStage
	render    RenderStage
	archiver  *archive.Archiver

	lock *flock.Flock
}

// NewManager wires the pipeline.
func NewManager(cfg *config.Config, store Store, intakeStage stage.Handler, synthesisStage SynthesisStage, renderStage RenderStage, notifier notifications.Service, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg, logger)
	}
	return &Manager{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		notifier:  notifier,
		intake:    intakeStage,
		synthesis: synthesisStage,
		render:    renderStage,
		archiver:  archive.New(cfg, logger),
		lock:      flock.New(cfg.LockPath()),
	}
}

// Run executes one pipeline invocation: acquire the run lock, classify
// the store, and dispatch the single stage that classification selects.
func (m *Manager) Run(ctx context.Context) error {
	locked, err := m.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "lock", "acquire run lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrConfiguration, "workflow", "lock", "another run holds the lock", nil)
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("release run lock", logging.Error(err))
		}
	}()

	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, m.logger)

	snapshot, err := m.store.Classify(ctx)
	if err != nil {
		logger.Error("classification failed", logging.Error(err))
		m.notifyError(ctx, "classify", err)
		return err
	}
	logger.Info("classified store", logging.String("stage", snapshot.Stage.String()))

	switch snapshot.Stage {
	case dialogue.StageEmpty:
		return m.runStage(ctx, m.intake, nil)
	case dialogue.StagePending:
		if err := m.notifier.NotifySynthesisStarted(ctx, len(snapshot.Eligible)); err != nil {
			logger.Warn("synthesis notification failed", logging.Error(err))
		}
		return m.runStage(ctx, m.synthesis, m.afterSynthesis)
	case dialogue.StageReady:
		if lines, err := m.store.FetchProcessed(ctx); err == nil {
			if err := m.notifier.NotifyRenderStarted(ctx, len(lines)); err != nil {
				logger.Warn("render notification failed", logging.Error(err))
			}
		}
		return m.runStage(ctx, m.render, m.afterRender)
	default:
		return services.Wrap(services.ErrStorage, "workflow", "classify",
			fmt.Sprintf("unexpected stage %v", snapshot.Stage), nil)
	}
}

// runStage prepares and executes one handler with lifecycle logging. The
// follow-up runs only on success; a render failure leaves the store intact
// so the same materials can be retried.
func (m *Manager) runStage(ctx context.Context, handler stage.Handler, followUp func(context.Context) error) error {
	ctx = services.WithStage(ctx, handler.Name())
	logger := logging.WithContext(ctx, m.logger)

	if err := handler.Prepare(ctx); err != nil {
		logger.Error("stage preparation failed", logging.Error(err))
		m.notifyError(ctx, handler.Name(), err)
		return err
	}

	start := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := handler.Execute(ctx); err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(err))
		m.notifyError(ctx, handler.Name(), err)
		return err
	}

	logger.Info("stage complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(start)))

	if followUp != nil {
		return followUp(ctx)
	}
	return nil
}

// afterSynthesis reports pass counts to the operator.
func (m *Manager) afterSynthesis(ctx context.Context) error {
	outcome := m.synthesis.Outcome()
	if outcome.Attempted == 0 {
		return nil
	}
	if err := m.notifier.NotifySynthesisCompleted(ctx, outcome.Processed, outcome.Failed); err != nil {
		m.logger.Warn("synthesis notification failed", logging.Error(err))
	}
	return nil
}

// afterRender archives the cycle's audio, resets the store for the next
// cycle, and delivers the finished video.
func (m *Manager) afterRender(ctx context.Context) error {
	outputPath := m.render.OutputPath()

	if _, err := m.archiver.SweepAudio(); err != nil {
		return err
	}
	if err := m.store.Reset(ctx); err != nil {
		return err
	}
	m.logger.Info("cycle complete", logging.String("output", outputPath))

	if err := m.notifier.NotifyRenderCompleted(ctx, outputPath); err != nil {
		m.logger.Warn("render notification failed", logging.Error(err))
	}
	return nil
}

// HealthChecks collects per-stage health plus store reachability.
func (m *Manager) HealthChecks(ctx context.Context) []stage.Health {
	checks := []stage.Health{
		m.intake.HealthCheck(ctx),
		m.synthesis.HealthCheck(ctx),
		m.render.HealthCheck(ctx),
	}
	if _, err := m.store.Classify(ctx); err != nil {
		checks = append(checks, stage.Unhealthy("store", err.Error()))
	} else {
		checks = append(checks, stage.Healthy("store"))
	}
	return checks
}

func (m *Manager) notifyError(ctx context.Context, stageName string, err error) {
	if nerr := m.notifier.NotifyError(ctx, stageName, err); nerr != nil {
		m.logger.Warn("error notification failed", logging.Error(nerr))
	}
}
