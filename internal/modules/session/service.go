package session

import (
	"context"
	"fmt"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/modules/eventlog"
	"github.com/georgemunganga/tillcore/internal/modules/settings"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"go.uber.org/zap"
)

const defaultDayStartHour = 4

// Service manages trading sessions.
type Service interface {
	// Open starts a session. A nil date means the trading date of now.
	Open(ctx context.Context, date *time.Time, userID int64) (*Session, error)
	// Current returns the open session, or a state error when none is open.
	Current(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id int64) (*Session, error)
	List(ctx context.Context, limit int) ([]Session, error)
	Close(ctx context.Context, userID int64) (*Session, error)
	Totals(ctx context.Context, id int64) (*Totals, error)
	RecordTotals(ctx context.Context, id int64, totals []RecordedTotal, userID int64) (*Totals, error)
}

type Settings interface {
	Int(ctx context.Context, key string, def int) int
}

type EventLog interface {
	Log(ctx context.Context, e eventlog.Entry) error
}

type service struct {
	repo   Repository
	cfg    Settings
	events EventLog
	clock  clock.Clock
	log    *zap.Logger
}

func NewService(repo Repository, cfg Settings, events EventLog, clk clock.Clock, log *zap.Logger) Service {
	return &service{repo: repo, cfg: cfg, events: events, clock: clk, log: log}
}

// TradingDate is the calendar date of now, except that times before
// dayStartHour belong to the previous day.
func TradingDate(now time.Time, dayStartHour int) time.Time {
	if now.Hour() < dayStartHour {
		now = now.AddDate(0, 0, -1)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *service) Open(ctx context.Context, date *time.Time, userID int64) (*Session, error) {
	cur, err := s.repo.Current(ctx)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		return nil, tillerr.State("session %d is already open", cur.ID)
	}
	now := s.clock.Now()
	sess := &Session{StartTime: now}
	if date != nil {
		sess.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		sess.Date = TradingDate(now, s.cfg.Int(ctx, settings.KeyDayStartHour, defaultDayStartHour))
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("open session: %w", database.Classify(err))
	}
	s.log.Info("session opened", zap.Int64("session", sess.ID), zap.String("date", sess.Date.Format("2006-01-02")))
	s.record(ctx, userID, sess.ID, "Started session %d for %s", sess.ID, sess.Date.Format("2006-01-02"))
	return sess, nil
}

func (s *service) Current(ctx context.Context) (*Session, error) {
	cur, err := s.repo.Current(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, tillerr.State("there is no open session")
	}
	return cur, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, database.Classify(err)
	}
	return sess, nil
}

func (s *service) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.List(ctx, limit)
}

// Close ends the open session. The database refuses as well if a
// transaction is still open or a payment pending.
func (s *service) Close(ctx context.Context, userID int64) (*Session, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.Blockers(ctx, cur.ID)
	if err != nil {
		return nil, err
	}
	if b.PendingPayments > 0 {
		return nil, tillerr.State("session %d has %d payment(s) still in progress", cur.ID, b.PendingPayments)
	}
	if b.OpenTransactions > 0 {
		return nil, tillerr.State("session %d has %d open transaction(s); close or defer them first", cur.ID, b.OpenTransactions)
	}
	now := s.clock.Now()
	cur.EndTime = &now
	if err := s.repo.Close(ctx, cur); err != nil {
		return nil, fmt.Errorf("close session: %w", database.Classify(err))
	}
	s.log.Info("session closed", zap.Int64("session", cur.ID))
	s.record(ctx, userID, cur.ID, "Ended session %d", cur.ID)
	return cur, nil
}

func (s *service) Totals(ctx context.Context, id int64) (*Totals, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t := &Totals{Session: *sess, Complete: !sess.IsOpen()}
	if t.Depts, err = s.repo.DeptTotals(ctx, id); err != nil {
		return nil, err
	}
	if t.Users, err = s.repo.UserTotals(ctx, id); err != nil {
		return nil, err
	}
	if t.PayTypes, err = s.repo.PayTypeTotals(ctx, id); err != nil {
		return nil, err
	}
	for _, dt := range t.Depts {
		t.Till = t.Till.Add(dt.Total)
	}
	for _, pt := range t.PayTypes {
		t.Paid = t.Paid.Add(pt.Till)
		if pt.Recorded.Valid {
			t.Recorded = t.Recorded.Add(pt.Recorded.Decimal)
		} else {
			t.Complete = false
		}
	}
	// Against sales, not payments: unpaid sales count as missing money.
	t.Error = t.Recorded.Sub(t.Till)
	return t, nil
}

func (s *service) RecordTotals(ctx context.Context, id int64, totals []RecordedTotal, userID int64) (*Totals, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.IsOpen() {
		return nil, tillerr.State("session %d is still open", id)
	}
	seen := map[string]bool{}
	for i, t := range totals {
		if t.PayType == "" {
			return nil, tillerr.User("a recorded total needs a payment type")
		}
		if seen[t.PayType] {
			return nil, tillerr.User("payment type %s was given twice", t.PayType)
		}
		seen[t.PayType] = true
		if t.Fees.IsNegative() {
			return nil, tillerr.User("fees for %s cannot be negative", t.PayType)
		}
		totals[i].Amount = t.Amount.Round(2)
		totals[i].Fees = t.Fees.Round(2)
	}
	if err := s.repo.RecordTotals(ctx, id, totals); err != nil {
		return nil, fmt.Errorf("record session totals: %w", database.Classify(err))
	}
	out, err := s.Totals(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, id, "Recorded totals for session %d: %s, error %s",
		id, out.Recorded.StringFixed(2), out.Error.StringFixed(2))
	return out, nil
}

func (s *service) record(ctx context.Context, userID, sessionID int64, format string, args ...interface{}) {
	e := eventlog.Entry{Description: fmt.Sprintf(format, args...), SessionID: &sessionID}
	if userID != 0 {
		e.UserID = &userID
	}
	if err := s.events.Log(ctx, e); err != nil {
		s.log.Warn("event log", zap.String("description", e.Description), zap.Error(err))
	}
}
