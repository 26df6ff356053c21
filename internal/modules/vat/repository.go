package vat

import (
	"context"
	"time"
)

// Repository defines the interface for VAT band storage.
type Repository interface {
	CreateBand(ctx context.Context, b *Band) error
	ListBands(ctx context.Context) ([]Band, error)
	AddRate(ctx context.Context, r *Rate) error
	// RateAt returns the rate of band in force on date.
	RateAt(ctx context.Context, band string, date time.Time) (*Rate, error)
}
