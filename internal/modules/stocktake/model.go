package stocktake

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is derived from a stocktake's timestamps.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCommitted  State = "committed"
)

// validTransitions lists where each state may go. Abandoning deletes the
// stocktake rather than moving it to another state.
var validTransitions = map[State][]State{
	StatePending:    {StateInProgress},
	StateInProgress: {StateCommitted},
	StateCommitted:  {},
}

// CanTransition reports whether current may move to next.
func CanTransition(current, next State) bool {
	for _, s := range validTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

type StockTake struct {
	ID          int64      `db:"id" json:"id"`
	Description string     `db:"description" json:"description"`
	CreateTime  time.Time  `db:"create_time" json:"create_time"`
	CreateUser  *int64     `db:"create_user" json:"create_user,omitempty"`
	StartTime   *time.Time `db:"start_time" json:"start_time,omitempty"`
	CommitTime  *time.Time `db:"commit_time" json:"commit_time,omitempty"`
	CommitUser  *int64     `db:"commit_user" json:"commit_user,omitempty"`
}

func (st *StockTake) State() State {
	switch {
	case st.CommitTime != nil:
		return StateCommitted
	case st.StartTime != nil:
		return StateInProgress
	default:
		return StatePending
	}
}

// Snapshot is the baseline quantity of one item when the stocktake
// started, and what will happen to it on commit.
type Snapshot struct {
	StocktakeID int64           `db:"stocktake" json:"stocktake_id"`
	StockID     int64           `db:"stockid" json:"stock_id"`
	Qty         decimal.Decimal `db:"qty" json:"qty"`
	BestBefore  *time.Time      `db:"bestbefore" json:"bestbefore,omitempty"`
	FinishCode  *string         `db:"finishcode" json:"finishcode,omitempty"`
}

// Adjustment is a quantity removed from one snapshot item for one reason.
type Adjustment struct {
	StocktakeID int64           `db:"stocktake" json:"stocktake_id"`
	StockID     int64           `db:"stockid" json:"stock_id"`
	RemoveCode  string          `db:"removecode" json:"removecode"`
	Qty         decimal.Decimal `db:"qty" json:"qty"`
}

// ItemCount is a snapshot with its adjustments and the resulting
// counted quantity.
type ItemCount struct {
	Snapshot
	Adjustments []Adjustment    `json:"adjustments"`
	Counted     decimal.Decimal `json:"counted"`
}

type Detail struct {
	StockTake
	Status State       `json:"state"`
	Scope  []int64     `json:"scope"`
	Items  []ItemCount `json:"items"`
}

type CreateRequest struct {
	Description string `json:"description"`
	UserID      *int64 `json:"user_id,omitempty"`
}

type AdjustRequest struct {
	StockID    int64           `json:"stock_id"`
	RemoveCode string          `json:"removecode"`
	Qty        decimal.Decimal `json:"qty"`
}

// AddItemRequest records stock found during a stocktake that is not
// already known.
type AddItemRequest struct {
	StockTypeID int64           `json:"stocktype_id"`
	Description string          `json:"description"`
	Size        decimal.Decimal `json:"size"`
	BestBefore  *time.Time      `json:"bestbefore,omitempty"`
}
