package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Sink accepts append-only audit records. Implementations are fire-and-
// forget: a failed write is logged and swallowed, never surfaced to the
// calling workflow.
type Sink interface {
	Record(ctx context.Context, action, executor, target string, status Status, details string)
}

// PostgresSink writes audit records next to the mirror.
type PostgresSink struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresSink(pool *pgxpool.Pool, logger *zap.Logger) *PostgresSink {
	return &PostgresSink{pool: pool, logger: logger}
}

func (s *PostgresSink) Record(ctx context.Context, action, executor, target string, status Status, details string) {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.pool.Exec(writeCtx, `
		INSERT INTO audit_log (action, executor, target, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, action, executor, target, string(status), details)
	if err != nil {
		s.logger.Error("failed to write audit record",
			zap.String("action", action),
			zap.String("target", target),
			zap.Error(err))
	}
}

// LogSink is the fallback sink used when no audit storage is wired: records
// go to the structured log only.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(_ context.Context, action, executor, target string, status Status, details string) {
	s.logger.Info("audit",
		zap.String("action", action),
		zap.String("executor", executor),
		zap.String("target", target),
		zap.String("status", string(status)),
		zap.String("details", details))
}
