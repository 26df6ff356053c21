package eventlog

import (
	"context"
	"fmt"

	"github.com/georgemunganga/tillcore/internal/clock"
	"go.uber.org/zap"
)

const defaultLimit = 100

// Service records and reads the event log.
type Service interface {
	Log(ctx context.Context, e Entry) error
	Recent(ctx context.Context, f Filter) ([]Entry, error)
}

type service struct {
	repo  Repository
	clock clock.Clock
	log   *zap.Logger
}

func NewService(repo Repository, clk clock.Clock, log *zap.Logger) Service {
	return &service{repo: repo, clock: clk, log: log}
}

// Log appends e, stamping it with the current time. The insert notifies
// the log channel.
func (s *service) Log(ctx context.Context, e Entry) error {
	if e.Description == "" {
		return fmt.Errorf("log entry needs a description")
	}
	e.Time = s.clock.Now()
	if err := s.repo.Insert(ctx, &e); err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}
	s.log.Debug("event logged", zap.Int64("id", e.ID), zap.String("description", e.Description))
	return nil
}

func (s *service) Recent(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = defaultLimit
	}
	return s.repo.List(ctx, f)
}
