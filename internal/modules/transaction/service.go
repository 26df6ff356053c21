package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/modules/eventlog"
	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/georgemunganga/tillcore/internal/modules/settings"
	"github.com/georgemunganga/tillcore/internal/modules/user"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"go.uber.org/zap"
)

const defaultModifyAge = 60 * time.Second

// Service defines the transaction state machine.
type Service interface {
	// Create opens a transaction in the current session owned by userID.
	Create(ctx context.Context, userID int64) (*Transaction, error)
	Get(ctx context.Context, id int64) (*Transaction, error)

	AddSale(ctx context.Context, req SaleRequest) (*Line, error)
	IncrementLine(ctx context.Context, transID, lineID, by int64) (*Line, error)
	VoidLines(ctx context.Context, transID int64, lineIDs []int64, userID int64) (*VoidResult, error)

	// Defer takes an open transaction out of its session. Any payments
	// are given back through refundPayType first.
	Defer(ctx context.Context, id, userID int64, refundPayType string) (*DeferResult, error)
	Merge(ctx context.Context, fromID, intoID, userID int64) (*Transaction, error)
	Split(ctx context.Context, id int64, lineIDs []int64, notes string, userID int64) (*Transaction, error)
	ConvertToFreeDrinks(ctx context.Context, id, userID int64) error
	Cancel(ctx context.Context, id, userID int64) error

	// CloseIfBalanced closes the transaction when its lines and
	// payments agree and nothing is pending.
	CloseIfBalanced(ctx context.Context, id int64) (bool, error)
	SetNotes(ctx context.Context, id int64, notes string) error
	// AdoptIntoSession moves a deferred transaction into the open
	// session. Open transactions are returned unchanged.
	AdoptIntoSession(ctx context.Context, id int64) (*Transaction, error)

	RelatedTransactions(ctx context.Context, id int64) ([]int64, error)
	ListRecallable(ctx context.Context) ([]Summary, error)
}

// Owners tracks which user owns which open transaction.
type Owners interface {
	TakeTransaction(ctx context.Context, userID, transID int64) error
	OwnerOf(ctx context.Context, transID int64) (*user.User, error)
	Release(ctx context.Context, userID int64) error
}

type Settings interface {
	Duration(ctx context.Context, key string, def time.Duration) time.Duration
}

type EventLog interface {
	Log(ctx context.Context, e eventlog.Entry) error
}

type service struct {
	repo   Repository
	owners Owners
	cfg    Settings
	events EventLog
	clock  clock.Clock
	log    *zap.Logger
}

// NewService creates a new transaction service.
func NewService(repo Repository, owners Owners, cfg Settings, events EventLog, clk clock.Clock, log *zap.Logger) Service {
	return &service{repo: repo, owners: owners, cfg: cfg, events: events, clock: clk, log: log}
}

func (s *service) Create(ctx context.Context, userID int64) (*Transaction, error) {
	sessionID, err := s.repo.OpenSessionID(ctx)
	if err != nil {
		return nil, err
	}
	if sessionID == 0 {
		return nil, tillerr.State("there is no open session")
	}
	t := &Transaction{SessionID: &sessionID}
	if err := s.repo.Create(ctx, t, userID, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("create transaction: %w", database.Classify(err))
	}
	s.log.Info("transaction opened", zap.Int64("trans", t.ID), zap.Int64("session", sessionID), zap.Int64("user", userID))
	return t, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Transaction, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, database.Classify(err)
	}
	if t.Lines, err = s.repo.Lines(ctx, id); err != nil {
		return nil, err
	}
	if len(t.Lines) == 0 {
		return t, nil
	}
	ids := make([]int64, len(t.Lines))
	for i, l := range t.Lines {
		ids[i] = l.ID
	}
	outs, err := s.repo.StockOutForLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, so := range outs {
		if l := t.line(*so.TranslineID); l != nil {
			l.StockOut = append(l.StockOut, so)
		}
	}
	return t, nil
}

// open loads a transaction that must be open in a session.
func (s *service) open(ctx context.Context, id int64) (*Transaction, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch t.State() {
	case StateClosed:
		return nil, tillerr.State("transaction %d is closed", id)
	case StateDeferred:
		return nil, tillerr.State("transaction %d is deferred", id)
	}
	return t, nil
}

func (s *service) AddSale(ctx context.Context, req SaleRequest) (*Line, error) {
	if req.Items == 0 {
		return nil, tillerr.User("a sale needs a number of items")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, tillerr.User("a sale needs a description")
	}
	if req.DeptID == 0 {
		return nil, tillerr.User("a sale needs a department")
	}
	if _, err := s.open(ctx, req.TransID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	userID := req.UserID
	l := &Line{
		TransID:   req.TransID,
		Items:     req.Items,
		Amount:    req.Amount,
		DeptID:    req.DeptID,
		UserID:    &userID,
		TransCode: CodeSale,
		Text:      req.Text,
		Time:      now,
		Source:    optional(req.Source),
		Modifier:  optional(req.Modifier),
	}
	out := make([]inventory.StockOut, 0, len(req.Stock))
	for _, d := range req.Stock {
		out = append(out, inventory.StockOut{
			StockID:    d.StockID,
			Qty:        d.Qty,
			RemoveCode: inventory.RemoveSold,
			Time:       now,
		})
	}
	if err := s.repo.InsertLine(ctx, l, out); err != nil {
		return nil, fmt.Errorf("add sale: %w", database.Classify(err))
	}
	s.log.Debug("sale added", zap.Int64("trans", l.TransID), zap.Int64("line", l.ID), zap.String("text", l.Text))
	return l, nil
}

func (s *service) IncrementLine(ctx context.Context, transID, lineID, by int64) (*Line, error) {
	t, err := s.open(ctx, transID)
	if err != nil {
		return nil, err
	}
	l := t.line(lineID)
	if l == nil {
		return nil, tillerr.User("line %d is not part of transaction %d", lineID, transID)
	}
	if !l.Voidable() || l.Items+by <= 0 {
		return nil, tillerr.User("line %d cannot be changed", lineID)
	}
	if err := s.repo.IncrementLine(ctx, lineID, by); err != nil {
		return nil, database.Classify(err)
	}
	if t, err = s.Get(ctx, transID); err != nil {
		return nil, err
	}
	return t.line(lineID), nil
}

// VoidLines voids lineIDs of transID. In an open transaction lines
// younger than the modify age are deleted; older lines get a reversing
// line. Lines of a closed transaction are reversed in a new transaction
// owned by userID.
func (s *service) VoidLines(ctx context.Context, transID int64, lineIDs []int64, userID int64) (*VoidResult, error) {
	if len(lineIDs) == 0 {
		return nil, tillerr.User("no lines selected")
	}
	t, err := s.Get(ctx, transID)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(lineIDs))
	for _, id := range lineIDs {
		l := t.line(id)
		if l == nil {
			return nil, tillerr.User("line %d is not part of transaction %d", id, transID)
		}
		if !l.Voidable() {
			return nil, tillerr.User("line %d cannot be voided", id)
		}
		lines = append(lines, *l)
	}

	plan := &VoidPlan{UserID: userID, At: s.clock.Now()}
	switch t.State() {
	case StateDeferred:
		return nil, tillerr.State("transaction %d is deferred; recall it first", transID)
	case StateOpen:
		plan.Target = t
		maxAge := s.cfg.Duration(ctx, settings.KeyMaxTranslineModifyAge, defaultModifyAge)
		for _, l := range lines {
			if plan.At.Sub(l.Time) < maxAge {
				plan.Delete = append(plan.Delete, l.ID)
			} else {
				plan.Reverse = append(plan.Reverse, l)
			}
		}
	case StateClosed:
		sessionID, err := s.repo.OpenSessionID(ctx)
		if err != nil {
			return nil, err
		}
		if sessionID == 0 {
			return nil, tillerr.State("there is no open session")
		}
		plan.Target = &Transaction{SessionID: &sessionID, Notes: fmt.Sprintf("Voids from transaction %d", transID)}
		plan.Reverse = lines
	}

	if err := s.repo.ApplyVoids(ctx, plan); err != nil {
		return nil, fmt.Errorf("void lines: %w", database.Classify(err))
	}
	s.record(ctx, userID, transID, "Voided %d line(s) of transaction %d", len(lines), transID)
	return &VoidResult{TransID: plan.Target.ID, Deleted: plan.Delete, Voids: plan.Reverse}, nil
}

func (s *service) Defer(ctx context.Context, id, userID int64, refundPayType string) (*DeferResult, error) {
	t, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Pending {
		return nil, tillerr.State("transaction %d has a payment in progress", id)
	}
	if len(t.Lines) == 0 {
		return nil, tillerr.User("an empty transaction cannot be deferred")
	}
	var refund *Refund
	if t.PaymentCount > 0 {
		if refundPayType == "" {
			return nil, tillerr.State("transaction %d has payments that cannot be refunded", id)
		}
		refund = &Refund{
			PayType: refundPayType,
			Amount:  t.Paid,
			Text:    fmt.Sprintf("Refund for deferred transaction %d", id),
			UserID:  userID,
			Time:    s.clock.Now(),
		}
	}
	refundTrans, err := s.repo.Defer(ctx, id, refund)
	if err != nil {
		return nil, fmt.Errorf("defer transaction: %w", database.Classify(err))
	}
	s.releaseOwner(ctx, id)
	s.record(ctx, userID, id, "Deferred transaction %d", id)

	res := &DeferResult{RefundTransID: refundTrans}
	if refund != nil {
		res.Refunded = refund.Amount
	}
	return res, nil
}

func (s *service) Merge(ctx context.Context, fromID, intoID, userID int64) (*Transaction, error) {
	if fromID == intoID {
		return nil, tillerr.User("cannot merge a transaction into itself")
	}
	from, err := s.open(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if from.PaymentCount > 0 {
		return nil, tillerr.User("transaction %d has payments and cannot be merged", fromID)
	}
	if _, err := s.open(ctx, intoID); err != nil {
		return nil, err
	}
	if err := s.repo.Merge(ctx, fromID, intoID); err != nil {
		return nil, fmt.Errorf("merge transactions: %w", database.Classify(err))
	}
	if err := s.owners.TakeTransaction(ctx, userID, intoID); err != nil {
		return nil, err
	}
	s.record(ctx, userID, intoID, "Merged transaction %d into %d", fromID, intoID)
	return s.Get(ctx, intoID)
}

func (s *service) Split(ctx context.Context, id int64, lineIDs []int64, notes string, userID int64) (*Transaction, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, tillerr.User("the new transaction needs a note")
	}
	if len(lineIDs) == 0 {
		return nil, tillerr.User("no lines selected")
	}
	t, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, l := range lineIDs {
		if t.line(l) == nil {
			return nil, tillerr.User("line %d is not part of transaction %d", l, id)
		}
	}
	split := &Transaction{SessionID: t.SessionID, Notes: notes}
	if err := s.repo.Split(ctx, split, id, lineIDs); err != nil {
		return nil, fmt.Errorf("split transaction: %w", database.Classify(err))
	}
	s.record(ctx, userID, id, "Split %d line(s) of transaction %d into %d", len(lineIDs), id, split.ID)
	return s.Get(ctx, split.ID)
}

func (s *service) ConvertToFreeDrinks(ctx context.Context, id, userID int64) error {
	t, err := s.open(ctx, id)
	if err != nil {
		return err
	}
	if t.PaymentCount > 0 {
		return tillerr.User("transaction %d has payments", id)
	}
	if len(t.Lines) == 0 {
		return tillerr.User("transaction %d has no lines", id)
	}
	if !strings.Contains(strings.ToLower(t.Notes), "free") {
		return tillerr.User("the transaction notes must say the drinks are free, and who they were for")
	}
	if err := s.repo.Freebie(ctx, id); err != nil {
		return fmt.Errorf("convert to free drinks: %w", database.Classify(err))
	}
	s.record(ctx, userID, 0, "Converted transaction %d (%s) to free drinks", id, t.Notes)
	return nil
}

// Cancel deletes an empty transaction. Otherwise every line is voided
// and the transaction is closed at zero.
func (s *service) Cancel(ctx context.Context, id, userID int64) error {
	t, err := s.open(ctx, id)
	if err != nil {
		return err
	}
	if t.PaymentCount > 0 {
		return tillerr.User("transaction %d has payments; refund them before cancelling", id)
	}
	var voidable []int64
	for _, l := range t.Lines {
		if l.Voidable() {
			voidable = append(voidable, l.ID)
		}
	}
	if len(voidable) > 0 {
		if _, err := s.VoidLines(ctx, id, voidable, userID); err != nil {
			return err
		}
		if t, err = s.Get(ctx, id); err != nil {
			return err
		}
	}
	if t.Empty() {
		if err := s.repo.Delete(ctx, id); err != nil {
			return database.Classify(err)
		}
		s.record(ctx, userID, 0, "Cancelled empty transaction %d", id)
		return nil
	}
	if err := s.repo.Close(ctx, id); err != nil {
		return fmt.Errorf("cancel transaction: %w", database.Classify(err))
	}
	s.releaseOwner(ctx, id)
	s.record(ctx, userID, id, "Cancelled transaction %d", id)
	return nil
}

func (s *service) CloseIfBalanced(ctx context.Context, id int64) (bool, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if t.State() != StateOpen || t.Pending || t.Empty() || !t.Balance().IsZero() {
		return false, nil
	}
	if err := s.repo.Close(ctx, id); err != nil {
		return false, fmt.Errorf("close transaction: %w", database.Classify(err))
	}
	s.releaseOwner(ctx, id)
	s.log.Info("transaction closed", zap.Int64("trans", id), zap.String("total", t.Total.StringFixed(2)))
	return true, nil
}

func (s *service) SetNotes(ctx context.Context, id int64, notes string) error {
	if err := s.repo.SetNotes(ctx, id, strings.TrimSpace(notes)); err != nil {
		return database.Classify(err)
	}
	return nil
}

func (s *service) AdoptIntoSession(ctx context.Context, id int64) (*Transaction, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch t.State() {
	case StateClosed:
		return nil, tillerr.State("transaction %d is closed", id)
	case StateOpen:
		return t, nil
	}
	sessionID, err := s.repo.OpenSessionID(ctx)
	if err != nil {
		return nil, err
	}
	if sessionID == 0 {
		return nil, tillerr.State("there is no open session")
	}
	if err := s.repo.SetSession(ctx, id, sessionID); err != nil {
		return nil, database.Classify(err)
	}
	t.SessionID = &sessionID
	s.log.Info("deferred transaction adopted", zap.Int64("trans", id), zap.Int64("session", sessionID))
	return t, nil
}

func (s *service) RelatedTransactions(ctx context.Context, id int64) ([]int64, error) {
	return s.repo.Related(ctx, id)
}

func (s *service) ListRecallable(ctx context.Context) ([]Summary, error) {
	sessionID, err := s.repo.OpenSessionID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Recallable(ctx, sessionID)
}

func (s *service) releaseOwner(ctx context.Context, transID int64) {
	owner, err := s.owners.OwnerOf(ctx, transID)
	if err != nil || owner == nil {
		return
	}
	if err := s.owners.Release(ctx, owner.ID); err != nil {
		s.log.Warn("release transaction owner", zap.Int64("trans", transID), zap.Error(err))
	}
}

// record writes an event log entry. The change it describes has
// already been committed, so a failure here is only logged.
func (s *service) record(ctx context.Context, userID, transID int64, format string, args ...interface{}) {
	e := eventlog.Entry{Description: fmt.Sprintf(format, args...), UserID: &userID}
	if transID != 0 {
		e.TransID = &transID
	}
	if err := s.events.Log(ctx, e); err != nil {
		s.log.Warn("event log", zap.String("description", e.Description), zap.Error(err))
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
