package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"skitflow/internal/config"
	"skitflow/internal/logging"
	"skitflow/internal/telegram"
)

// Service publishes pipeline lifecycle events to the operator.
type Service interface {
	NotifyIntakeReceived(ctx context.Context, count int) error
	NotifySynthesisStarted(ctx context.Context, pending int) error
	NotifySynthesisCompleted(ctx context.Context, processed, failed int) error
	NotifyRenderStarted(ctx context.Context, lines int) error
	NotifyRenderCompleted(ctx context.Context, outputPath string) error
	NotifyError(ctx context.Context, stage string, err error) error
	TestNotification(ctx context.Context) error
}

// sender is the chat surface the service writes to.
type sender interface {
	SendMessage(ctx context.Context, text string) error
	SendDocument(ctx context.Context, path, caption string) error
}

type service struct {
	sender sender
	logger *slog.Logger
}

// NewService builds a telegram-backed notifier, or a no-op service when the
// bot credentials are absent so pipeline runs never block on chat delivery.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.RequireTelegram(); err != nil {
		logger.Debug("notifications disabled", logging.Error(err))
		return noopService{}
	}
	client := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, time.Duration(cfg.Telegram.RequestTimeout)*time.Second)
	return &service{sender: client, logger: logger}
}

// NewWithSender wires an explicit sender, used by tests.
func NewWithSender(s sender, logger *slog.Logger) Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &service{sender: s, logger: logger}
}

func (s *service) NotifyIntakeReceived(ctx context.Context, count int) error {
	return s.send(ctx, fmt.Sprintf("Queued %d dialogue line(s) for synthesis.", count))
}

func (s *service) NotifySynthesisStarted(ctx context.Context, pending int) error {
	return s.send(ctx, fmt.Sprintf("Synthesizing audio for %d line(s).", pending))
}

func (s *service) NotifySynthesisCompleted(ctx context.Context, processed, failed int) error {
	if failed > 0 {
		return s.send(ctx, fmt.Sprintf("Synthesis pass finished: %d succeeded, %d failed.", processed, failed))
	}
	return s.send(ctx, fmt.Sprintf("Synthesis pass finished: %d line(s) ready.", processed))
}

func (s *service) NotifyRenderStarted(ctx context.Context, lines int) error {
	return s.send(ctx, fmt.Sprintf("Rendering video from %d line(s).", lines))
}

func (s *service) NotifyRenderCompleted(ctx context.Context, outputPath string) error {
	caption := fmt.Sprintf("Render complete: %s", filepath.Base(outputPath))
	if err := s.sender.SendDocument(ctx, outputPath, caption); err != nil {
		s.logger.Warn("video delivery failed, falling back to text", logging.Error(err))
		return s.send(ctx, fmt.Sprintf("Render complete: %s (delivery failed: %v)", outputPath, err))
	}
	return nil
}

func (s *service) NotifyError(ctx context.Context, stage string, err error) error {
	return s.send(ctx, fmt.Sprintf("Stage %s failed: %v", stage, err))
}

func (s *service) TestNotification(ctx context.Context) error {
	return s.send(ctx, "Test notification: skitflow can reach this chat.")
}

func (s *service) send(ctx context.Context, text string) error {
	if err := s.sender.SendMessage(ctx, text); err != nil {
		s.logger.Warn("notification delivery failed", logging.Error(err))
		return err
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyIntakeReceived(context.Context, int) error        { return nil }
func (noopService) NotifySynthesisStarted(context.Context, int) error      { return nil }
func (noopService) NotifySynthesisCompleted(context.Context, int, int) error {
	return nil
}
func (noopService) NotifyRenderStarted(context.Context, int) error      { return nil }
func (noopService) NotifyRenderCompleted(context.Context, string) error { return nil }
func (noopService) NotifyError(context.Context, string, error) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
