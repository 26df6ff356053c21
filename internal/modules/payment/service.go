package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/modules/eventlog"
	"github.com/georgemunganga/tillcore/internal/modules/settings"
	"github.com/georgemunganga/tillcore/internal/modules/transaction"
	"github.com/georgemunganga/tillcore/internal/peripheral"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultRefundMaxAgeDays = 364
	defaultPollInterval     = 2 * time.Second
)

// Service defines payment business logic.
type Service interface {
	// ListPayTypes returns the payment types that are not disabled.
	ListPayTypes(ctx context.Context) ([]PayType, error)
	Get(ctx context.Context, id int64) (*Payment, error)

	StartPayment(ctx context.Context, req Request) (*Result, error)
	// StartRefund gives req.Amount back to the customer.
	StartRefund(ctx context.Context, req Request) (*Result, error)
	// Resume polls the driver of a pending payment once.
	Resume(ctx context.Context, paymentID int64) (*Result, error)
	RequestCancel(ctx context.Context, paymentID, userID int64) error
	// Wait polls a pending payment until it finishes or ctx ends.
	Wait(ctx context.Context, paymentID int64, interval time.Duration) (*Result, error)

	// ChangePayType names the payment type used to give cash back.
	ChangePayType(ctx context.Context) (string, error)
	SessionTotals(ctx context.Context, sessionID int64) ([]DriverTotal, error)
}

// Transactions is the part of the transaction service payments need.
type Transactions interface {
	AdoptIntoSession(ctx context.Context, id int64) (*transaction.Transaction, error)
	CloseIfBalanced(ctx context.Context, id int64) (bool, error)
	RelatedTransactions(ctx context.Context, id int64) ([]int64, error)
}

type Settings interface {
	Int(ctx context.Context, key string, def int) int
	Text(ctx context.Context, key, def string) string
}

type EventLog interface {
	Log(ctx context.Context, e eventlog.Entry) error
}

type service struct {
	repo    Repository
	drivers DriverRegistry
	trans   Transactions
	cfg     Settings
	printer peripheral.Printer
	events  EventLog
	clock   clock.Clock
	log     *zap.Logger
}

func NewService(repo Repository, drivers DriverRegistry, trans Transactions, cfg Settings,
	printer peripheral.Printer, events EventLog, clk clock.Clock, log *zap.Logger) Service {
	return &service{
		repo:    repo,
		drivers: drivers,
		trans:   trans,
		cfg:     cfg,
		printer: printer,
		events:  events,
		clock:   clk,
		log:     log,
	}
}

func (s *service) ListPayTypes(ctx context.Context) ([]PayType, error) {
	all, err := s.repo.ListPayTypes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PayType, 0, len(all))
	for _, pt := range all {
		if pt.Mode != ModeDisabled {
			out = append(out, pt)
		}
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Payment, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, database.Classify(err)
	}
	return p, nil
}

// activeDriver loads a payment type that can take payments now.
func (s *service) activeDriver(ctx context.Context, paytype string) (*PayType, Driver, error) {
	pt, err := s.repo.GetPayType(ctx, paytype)
	if err != nil {
		return nil, nil, database.Classify(err)
	}
	if pt.Mode != ModeActive {
		return nil, nil, tillerr.User("%s cannot take payments", pt.Description)
	}
	d, err := s.drivers.driver(pt)
	if err != nil {
		return nil, nil, tillerr.Bug(pt.DriverName, "%v", err)
	}
	return pt, d, nil
}

// prepare brings the transaction into the open session and fills in
// the outstanding balance.
func (s *service) prepare(ctx context.Context, req *Request) (*transaction.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, tillerr.User("amount must be greater than 0")
	}
	t, err := s.trans.AdoptIntoSession(ctx, req.TransID)
	if err != nil {
		return nil, err
	}
	if t.Pending {
		return nil, tillerr.User("transaction %d already has a payment in progress", t.ID)
	}
	req.Outstanding = t.Balance()
	return t, nil
}

func (s *service) StartPayment(ctx context.Context, req Request) (*Result, error) {
	pt, d, err := s.activeDriver(ctx, req.PayType)
	if err != nil {
		return nil, err
	}
	if _, err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}
	if !req.Outstanding.IsPositive() {
		return nil, tillerr.User("nothing is owed on transaction %d", req.TransID)
	}
	return s.run(ctx, pt, d, req, nil, func(r Request) (*Outcome, error) {
		return d.Start(ctx, pt, r)
	})
}

func (s *service) StartRefund(ctx context.Context, req Request) (*Result, error) {
	pt, d, err := s.activeDriver(ctx, req.PayType)
	if err != nil {
		return nil, err
	}
	if !d.RefundSupported() {
		return nil, tillerr.User("%s does not support refunds", pt.Description)
	}
	if _, err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}

	var original *Payment
	if req.OriginalPaymentID != 0 {
		if original, err = s.refundable(ctx, pt, req); err != nil {
			return nil, err
		}
	} else if d.Async() {
		return nil, tillerr.User("choose the %s payment to refund", pt.Description)
	}
	if !d.Async() && req.Amount.Neg().LessThan(req.Outstanding) {
		return nil, tillerr.User("a refund of %s is more than is owed to the customer", req.Amount.StringFixed(2))
	}

	var meta map[string]string
	if original != nil {
		meta = map[string]string{MetaRefundOf: strconv.FormatInt(original.ID, 10)}
	}
	return s.run(ctx, pt, d, req, meta, func(r Request) (*Outcome, error) {
		return d.Refund(ctx, pt, r, original)
	})
}

// refundable checks that the refund can go back against the original
// payment it names.
func (s *service) refundable(ctx context.Context, pt *PayType, req Request) (*Payment, error) {
	original, err := s.Get(ctx, req.OriginalPaymentID)
	if err != nil {
		return nil, err
	}
	switch {
	case original.PayType != pt.PayType:
		return nil, tillerr.User("payment %d was not taken by %s", original.ID, pt.Description)
	case original.Pending || !original.Amount.IsPositive():
		return nil, tillerr.User("payment %d cannot be refunded", original.ID)
	}
	days := s.cfg.Int(ctx, settings.KeyRefundMaxAgeDays, defaultRefundMaxAgeDays)
	if s.clock.Now().Sub(original.Time) > time.Duration(days)*24*time.Hour {
		return nil, tillerr.User("payment %d is more than %d days old", original.ID, days)
	}

	related, err := s.trans.RelatedTransactions(ctx, req.TransID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, id := range related {
		if id == original.TransID {
			found = true
			break
		}
	}
	if !found {
		return nil, tillerr.User("payment %d belongs to an unrelated transaction", original.ID)
	}

	refunded, err := s.repo.RefundedAgainst(ctx, original.ID)
	if err != nil {
		return nil, err
	}
	remaining := original.Amount.Sub(refunded)
	if req.Amount.GreaterThan(remaining) {
		return nil, tillerr.User("only %s of payment %d is left to refund", remaining.StringFixed(2), original.ID)
	}
	return original, nil
}

// run starts a payment or refund through its driver. Asynchronous
// drivers get a pending row first so the outcome can be picked up after
// a restart.
func (s *service) run(ctx context.Context, pt *PayType, d Driver, req Request, meta map[string]string,
	call func(Request) (*Outcome, error)) (*Result, error) {
	now := s.clock.Now()
	userID := req.UserID

	if !d.Async() {
		out, err := call(req)
		if err != nil {
			return nil, err
		}
		if out.Status != StatusCompleted {
			return nil, tillerr.Bug(pt.DriverName, "synchronous driver returned status %s", out.Status)
		}
		rows := []*Payment{{
			TransID: req.TransID, Amount: out.Amount, PayType: pt.PayType, Text: out.Text,
			UserID: &userID, Time: now, Meta: merge(meta, out.Meta),
		}}
		if out.Change.IsPositive() {
			rows = append(rows, &Payment{
				TransID: req.TransID, Amount: out.Change.Neg(), PayType: pt.PayType,
				Text: "Change", UserID: &userID, Time: now,
			})
		}
		for _, sp := range out.Splits {
			rows = append(rows, &Payment{
				TransID: req.TransID, Amount: sp.Amount, PayType: pt.PayType,
				Text: sp.Text, UserID: &userID, Time: now,
			})
		}
		if err := s.repo.InsertPayments(ctx, rows); err != nil {
			return nil, fmt.Errorf("record payment: %w", database.Classify(err))
		}
		res := &Result{}
		for _, p := range rows {
			res.Payments = append(res.Payments, *p)
			s.record(ctx, userID, p, "%s %s", p.Text, p.Amount.StringFixed(2))
		}
		if out.Change.IsPositive() {
			res.Change = s.cfg.Text(ctx, settings.KeyCurrencySymbol, "£") + out.Change.StringFixed(2)
		}
		if out.Kickout {
			res.Warning = s.kickout(ctx)
		}
		return s.settle(ctx, req.TransID, res)
	}

	p := &Payment{
		TransID: req.TransID, PayType: pt.PayType, Text: pt.Description + " (pending)",
		UserID: &userID, Time: now, Pending: true, Meta: meta,
	}
	if err := s.repo.InsertPayments(ctx, []*Payment{p}); err != nil {
		return nil, fmt.Errorf("record pending payment: %w", database.Classify(err))
	}
	req.Payment = p
	out, err := call(req)
	if err != nil {
		// The pending row must not block the transaction.
		p.Text = pt.Description + " failed"
		p.Amount = decimal.Zero
		if cerr := s.repo.Complete(ctx, p, nil); cerr != nil {
			s.log.Error("could not clear failed payment", zap.Int64("payment", p.ID), zap.Error(cerr))
		}
		return nil, err
	}
	s.log.Info("payment started", zap.Int64("payment", p.ID), zap.Int64("trans", p.TransID),
		zap.String("paytype", pt.PayType), zap.String("amount", req.Amount.StringFixed(2)))
	return s.apply(ctx, pt, p, out)
}

// apply records what a driver reported for a pending payment.
func (s *service) apply(ctx context.Context, pt *PayType, p *Payment, out *Outcome) (*Result, error) {
	if out.Status == StatusPending {
		if len(out.Meta) > 0 {
			if err := s.repo.SetMeta(ctx, p.ID, out.Meta); err != nil {
				return nil, database.Classify(err)
			}
			p.Meta = merge(p.Meta, out.Meta)
		}
		return &Result{Pending: p}, nil
	}

	p.Text = out.Text
	p.Amount = decimal.Zero
	if out.Status == StatusCompleted {
		p.Amount = out.Amount
	}
	p.Meta = merge(p.Meta, out.Meta)
	var extra []*Payment
	if out.Status == StatusCompleted {
		for _, sp := range out.Splits {
			extra = append(extra, &Payment{
				TransID: p.TransID, Amount: sp.Amount, PayType: pt.PayType,
				Text: sp.Text, UserID: p.UserID, Time: s.clock.Now(),
			})
		}
	}
	if err := s.repo.Complete(ctx, p, extra); err != nil {
		return nil, fmt.Errorf("complete payment %d: %w", p.ID, database.Classify(err))
	}
	s.log.Info("payment finished", zap.Int64("payment", p.ID), zap.String("status", string(out.Status)),
		zap.String("amount", p.Amount.StringFixed(2)))

	var uid int64
	if p.UserID != nil {
		uid = *p.UserID
	}
	res := &Result{Payments: []Payment{*p}}
	s.record(ctx, uid, p, "%s %s", p.Text, p.Amount.StringFixed(2))
	for _, e := range extra {
		res.Payments = append(res.Payments, *e)
		s.record(ctx, uid, e, "%s %s", e.Text, e.Amount.StringFixed(2))
	}
	if out.Kickout {
		res.Warning = s.kickout(ctx)
	}
	return s.settle(ctx, p.TransID, res)
}

func (s *service) settle(ctx context.Context, transID int64, res *Result) (*Result, error) {
	closed, err := s.trans.CloseIfBalanced(ctx, transID)
	if err != nil {
		return nil, err
	}
	res.Closed = closed
	return res, nil
}

func (s *service) kickout(ctx context.Context) string {
	if reason := s.printer.Offline(); reason != "" {
		return "drawer not opened: " + reason
	}
	if err := s.printer.Kickout(ctx); err != nil {
		s.log.Warn("drawer kickout failed", zap.Error(err))
		return "drawer not opened: " + err.Error()
	}
	return ""
}

func (s *service) pending(ctx context.Context, paymentID int64) (*Payment, *PayType, Driver, error) {
	p, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, nil, nil, err
	}
	pt, err := s.repo.GetPayType(ctx, p.PayType)
	if err != nil {
		return nil, nil, nil, database.Classify(err)
	}
	d, err := s.drivers.driver(pt)
	if err != nil {
		return nil, nil, nil, tillerr.Bug(pt.DriverName, "%v", err)
	}
	return p, pt, d, nil
}

func (s *service) Resume(ctx context.Context, paymentID int64) (*Result, error) {
	p, pt, d, err := s.pending(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !p.Pending {
		return &Result{Payments: []Payment{*p}}, nil
	}
	out, err := d.Poll(ctx, pt, p)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, pt, p, out)
}

func (s *service) RequestCancel(ctx context.Context, paymentID, userID int64) error {
	p, pt, d, err := s.pending(ctx, paymentID)
	if err != nil {
		return err
	}
	if !p.Pending {
		return tillerr.State("payment %d has already finished", paymentID)
	}
	if err := d.Cancel(ctx, pt, p); err != nil {
		return err
	}
	at := s.clock.Now().UTC().Format(time.RFC3339)
	if err := s.repo.SetMeta(ctx, p.ID, map[string]string{MetaCancelRequested: at}); err != nil {
		return database.Classify(err)
	}
	s.record(ctx, userID, p, "cancel requested for %s", pt.Description)
	return nil
}

func (s *service) Wait(ctx context.Context, paymentID int64, interval time.Duration) (*Result, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	res, err := s.Resume(ctx, paymentID)
	if err != nil || res.Pending == nil {
		return res, err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-ticker.C:
			next, err := s.Resume(ctx, paymentID)
			if err != nil {
				// Terminal hiccups are retried on the next tick.
				if tillerr.Is(err, tillerr.KindIntegration) && ctx.Err() == nil {
					s.log.Warn("payment poll failed", zap.Int64("payment", paymentID), zap.Error(err))
					continue
				}
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				return nil, err
			}
			res = next
			if res.Pending == nil {
				return res, nil
			}
		}
	}
}

func (s *service) ChangePayType(ctx context.Context) (string, error) {
	all, err := s.repo.ListPayTypes(ctx)
	if err != nil {
		return "", err
	}
	for _, pt := range all {
		if pt.Mode != ModeActive {
			continue
		}
		if d, err := s.drivers.driver(&pt); err == nil && !d.Async() && d.RefundSupported() {
			return pt.PayType, nil
		}
	}
	return "", tillerr.State("no payment type can give change")
}

func (s *service) SessionTotals(ctx context.Context, sessionID int64) ([]DriverTotal, error) {
	all, err := s.repo.ListPayTypes(ctx)
	if err != nil {
		return nil, err
	}
	var out []DriverTotal
	for i := range all {
		pt := &all[i]
		if pt.Mode == ModeDisabled {
			continue
		}
		d, err := s.drivers.driver(pt)
		if err != nil {
			continue
		}
		amount, fees, ok, err := d.Total(ctx, pt, sessionID)
		if err != nil {
			return nil, tillerr.Integration(fmt.Sprintf("could not fetch the %s total", pt.Description), err)
		}
		if ok {
			out = append(out, DriverTotal{PayType: pt.PayType, Amount: amount, Fees: fees})
		}
	}
	return out, nil
}

func (s *service) record(ctx context.Context, userID int64, p *Payment, format string, args ...interface{}) {
	e := eventlog.Entry{
		Description: fmt.Sprintf(format, args...),
		TransID:     &p.TransID,
		PaymentID:   &p.ID,
	}
	if userID != 0 {
		e.UserID = &userID
	}
	if err := s.events.Log(ctx, e); err != nil {
		s.log.Warn("event log write failed", zap.Int64("payment", p.ID), zap.Error(err))
	}
}

func merge(a, b map[string]string) map[string]string {
	if len(a) == 0 {
		return b
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
