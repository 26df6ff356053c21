// Package notify carries cross-terminal change notifications over
// PostgreSQL LISTEN/NOTIFY. Payloads are only keys; subscribers re-read
// the row they name.
package notify

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Channels raised by the schema triggers, plus "update" which is sent
// by operators to ask registers to restart.
const (
	ChannelLog          = "log"
	ChannelUserRegister = "user_register"
	ChannelStockLine    = "stockline_change"
	ChannelStockType    = "stocktype_change"
	ChannelStockItem    = "stockitem_change"
	ChannelKeycaps      = "keycaps"
	ChannelConfig       = "config"
	ChannelUpdate       = "update"
)

// AllChannels lists every channel the till uses.
var AllChannels = []string{
	ChannelLog, ChannelUserRegister, ChannelStockLine, ChannelStockType,
	ChannelStockItem, ChannelKeycaps, ChannelConfig, ChannelUpdate,
}

// Notification is one message received from the bus.
type Notification struct {
	Channel string
	Payload string
}

// Publisher sends notifications. Most are raised by triggers; the
// application only publishes where no row change is involved.
type Publisher interface {
	Notify(ctx context.Context, channel, payload string) error
}

type pgPublisher struct{ db *sqlx.DB }

// NewPublisher returns a Publisher that uses pg_notify.
func NewPublisher(db *sqlx.DB) Publisher { return &pgPublisher{db: db} }

func (p *pgPublisher) Notify(ctx context.Context, channel, payload string) error {
	if _, err := p.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, channel, payload); err != nil {
		return fmt.Errorf("notify %s: %w", channel, err)
	}
	return nil
}
