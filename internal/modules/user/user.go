package user

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Permission names checked by the register.
const (
	PermOverridePrice = "override-price"
	PermOpenPrice     = "sell-plu-open-price"
	PermVoid          = "void"
	PermDefer         = "defer"
	PermMerge         = "merge"
	PermSplit         = "split"
	PermFreeDrinks    = "free-drinks"
	PermCancel        = "cancel"
	PermRefund        = "refund"
	PermTakeOver      = "recall-other-trans"
	PermUseStock      = "use-stock"
)

// User is a till operator. RegisterID is the terminal the user last
// signed on at; TransactionID is the open transaction the user owns.
type User struct {
	ID            int64          `db:"id" json:"id"`
	Fullname      string         `db:"fullname" json:"fullname"`
	Shortname     string         `db:"shortname" json:"shortname"`
	Enabled       bool           `db:"enabled" json:"enabled"`
	Superuser     bool           `db:"superuser" json:"superuser"`
	Permissions   pq.StringArray `db:"permissions" json:"permissions"`
	PasswordHash  *string        `db:"password_hash" json:"-"`
	RegisterID    *uuid.UUID     `db:"register_id" json:"register_id,omitempty"`
	TransactionID *int64         `db:"transaction" json:"transaction_id,omitempty"`
	TransSince    *time.Time     `db:"trans_since" json:"trans_since,omitempty"`
	Message       *string        `db:"message" json:"message,omitempty"`
}

// HasPermission reports whether the user may do perm. Superusers may do
// everything.
func (u *User) HasPermission(perm string) bool {
	if u.Superuser {
		return true
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

type CreateRequest struct {
	Fullname    string   `json:"fullname"`
	Shortname   string   `json:"shortname"`
	Superuser   bool     `json:"superuser"`
	Permissions []string `json:"permissions"`
}
