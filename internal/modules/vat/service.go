package vat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
)

// Service defines VAT business logic.
type Service interface {
	CreateBand(ctx context.Context, band, description string) (*Band, error)
	ListBands(ctx context.Context) ([]Band, error)
	SetRate(ctx context.Context, band string, active time.Time, rate decimal.Decimal, business int64) (*Rate, error)
	RateAt(ctx context.Context, band string, date time.Time) (*Rate, error)
}

type service struct{ repo Repository }

func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateBand(ctx context.Context, band, description string) (*Band, error) {
	band = strings.ToUpper(strings.TrimSpace(band))
	if len(band) != 1 {
		return nil, tillerr.User("VAT band must be a single letter")
	}
	b := &Band{Band: band, Description: description}
	if err := s.repo.CreateBand(ctx, b); err != nil {
		return nil, database.Classify(err)
	}
	return b, nil
}

func (s *service) ListBands(ctx context.Context) ([]Band, error) {
	return s.repo.ListBands(ctx)
}

func (s *service) SetRate(ctx context.Context, band string, active time.Time, rate decimal.Decimal, business int64) (*Rate, error) {
	if rate.IsNegative() {
		return nil, tillerr.User("VAT rate cannot be negative")
	}
	r := &Rate{
		Band:     strings.ToUpper(band),
		Active:   truncateDay(active),
		Rate:     rate,
		Business: business,
	}
	if err := s.repo.AddRate(ctx, r); err != nil {
		return nil, database.Classify(err)
	}
	return r, nil
}

func (s *service) RateAt(ctx context.Context, band string, date time.Time) (*Rate, error) {
	r, err := s.repo.RateAt(ctx, strings.ToUpper(band), truncateDay(date))
	if err != nil {
		return nil, fmt.Errorf("no VAT rate for band %s on %s: %w", band, date.Format("2006-01-02"), database.Classify(err))
	}
	return r, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
