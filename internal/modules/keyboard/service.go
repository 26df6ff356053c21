package keyboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/notify"
	"github.com/georgemunganga/tillcore/internal/tillerr"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Modifiers reports which modifier names exist.
type Modifiers interface {
	Has(name string) bool
}

// Service resolves keys and barcodes and maintains the keyboard.
type Service interface {
	Resolve(ctx context.Context, keycode, menukey string) (*Resolution, error)
	ResolveBarcode(ctx context.Context, code string) (*Target, error)

	SetBinding(ctx context.Context, b Binding) (*Binding, error)
	DeleteBinding(ctx context.Context, id int64) error
	Bindings(ctx context.Context, keycode string) ([]Binding, error)
	SetBarcode(ctx context.Context, b Barcode) error
	DeleteBarcode(ctx context.Context, code string) error

	CreatePLU(ctx context.Context, p PLU) (*PLU, error)
	GetPLU(ctx context.Context, id int64) (*PLU, error)
	ListPLUs(ctx context.Context) ([]PLU, error)
	UpdatePLU(ctx context.Context, p PLU) (*PLU, error)

	SetKeycap(ctx context.Context, k Keycap) error
	ListKeycaps(ctx context.Context) ([]Keycap, error)

	// Watch drops cached bindings as keycaps notifications arrive.
	Watch(ctx context.Context, ch <-chan notify.Notification)
}

type service struct {
	repo      Repository
	modifiers Modifiers
	cache     *lru.Cache // keycode -> []Binding
	log       *zap.Logger
}

func NewService(repo Repository, modifiers Modifiers, log *zap.Logger) (Service, error) {
	cache, err := lru.New(512)
	if err != nil {
		return nil, err
	}
	return &service{repo: repo, modifiers: modifiers, cache: cache, log: log}, nil
}

func (s *service) bindings(ctx context.Context, keycode string) ([]Binding, error) {
	if v, ok := s.cache.Get(keycode); ok {
		return v.([]Binding), nil
	}
	bs, err := s.repo.Bindings(ctx, keycode)
	if err != nil {
		return nil, err
	}
	s.cache.Add(keycode, bs)
	return bs, nil
}

func (s *service) Resolve(ctx context.Context, keycode, menukey string) (*Resolution, error) {
	bs, err := s.bindings(ctx, keycode)
	if err != nil {
		return nil, err
	}
	source := "K:" + keycode
	switch {
	case len(bs) == 0:
		return nil, tillerr.User("there is nothing on key %s", keycode)
	case len(bs) == 1 && menukey == "":
		return &Resolution{Target: bs[0].targets().resolve(source)}, nil
	case menukey == "":
		return &Resolution{Choices: bs}, nil
	}
	for _, b := range bs {
		if b.Menukey == menukey {
			return &Resolution{Target: b.targets().resolve(source)}, nil
		}
	}
	return nil, tillerr.User("option %s is not available on key %s", menukey, keycode)
}

func (s *service) ResolveBarcode(ctx context.Context, code string) (*Target, error) {
	b, err := s.repo.GetBarcode(ctx, code)
	if err != nil {
		if tillerr.Is(database.Classify(err), tillerr.KindState) {
			return nil, tillerr.User("barcode %s is not recognised", code)
		}
		return nil, err
	}
	return b.targets().resolve("B:" + code), nil
}

func (s *service) checkModifier(m *string) error {
	if m == nil || *m == "" {
		return nil
	}
	if !s.modifiers.Has(*m) {
		return tillerr.User("there is no modifier called %q", *m)
	}
	return nil
}

func (s *service) SetBinding(ctx context.Context, b Binding) (*Binding, error) {
	b.Keycode = strings.TrimSpace(b.Keycode)
	if b.Keycode == "" {
		return nil, tillerr.User("keycode is required")
	}
	if !b.targets().validate() {
		return nil, tillerr.User("a binding needs exactly one of stockline, price lookup or stock type, or just a modifier")
	}
	if err := s.checkModifier(b.Modifier); err != nil {
		return nil, err
	}
	if err := s.repo.SaveBinding(ctx, &b); err != nil {
		return nil, database.Classify(err)
	}
	s.cache.Remove(b.Keycode)
	return &b, nil
}

func (s *service) DeleteBinding(ctx context.Context, id int64) error {
	keycode, err := s.repo.DeleteBinding(ctx, id)
	if err != nil {
		return fmt.Errorf("binding %d: %w", id, database.Classify(err))
	}
	s.cache.Remove(keycode)
	return nil
}

func (s *service) Bindings(ctx context.Context, keycode string) ([]Binding, error) {
	return s.bindings(ctx, keycode)
}

func (s *service) SetBarcode(ctx context.Context, b Barcode) error {
	b.Barcode = strings.TrimSpace(b.Barcode)
	if b.Barcode == "" {
		return tillerr.User("barcode is required")
	}
	if !b.targets().validate() {
		return tillerr.User("a barcode needs exactly one of stockline, price lookup or stock type, or just a modifier")
	}
	if err := s.checkModifier(b.Modifier); err != nil {
		return err
	}
	return database.Classify(s.repo.SaveBarcode(ctx, &b))
}

func (s *service) DeleteBarcode(ctx context.Context, code string) error {
	return database.Classify(s.repo.DeleteBarcode(ctx, code))
}

func validatePLU(p *PLU) error {
	p.Description = strings.TrimSpace(p.Description)
	if p.Description == "" {
		return tillerr.User("price lookup description is required")
	}
	if p.DeptID == 0 {
		return tillerr.User("price lookup department is required")
	}
	if p.Price != nil && p.Price.IsNegative() {
		return tillerr.User("price cannot be negative")
	}
	return nil
}

func (s *service) CreatePLU(ctx context.Context, p PLU) (*PLU, error) {
	if err := validatePLU(&p); err != nil {
		return nil, err
	}
	if err := s.repo.CreatePLU(ctx, &p); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, tillerr.User("a price lookup called %q already exists", p.Description)
		}
		return nil, database.Classify(err)
	}
	return &p, nil
}

func (s *service) GetPLU(ctx context.Context, id int64) (*PLU, error) {
	p, err := s.repo.GetPLU(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("price lookup %d: %w", id, database.Classify(err))
	}
	return p, nil
}

func (s *service) ListPLUs(ctx context.Context) ([]PLU, error) {
	return s.repo.ListPLUs(ctx)
}

func (s *service) UpdatePLU(ctx context.Context, p PLU) (*PLU, error) {
	if err := validatePLU(&p); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePLU(ctx, &p); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, tillerr.User("a price lookup called %q already exists", p.Description)
		}
		return nil, database.Classify(err)
	}
	return &p, nil
}

func (s *service) SetKeycap(ctx context.Context, k Keycap) error {
	if strings.TrimSpace(k.Keycode) == "" {
		return tillerr.User("keycode is required")
	}
	return database.Classify(s.repo.SaveKeycap(ctx, &k))
}

func (s *service) ListKeycaps(ctx context.Context) ([]Keycap, error) {
	return s.repo.ListKeycaps(ctx)
}

func (s *service) Watch(ctx context.Context, ch <-chan notify.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if n.Payload == "" {
				s.cache.Purge()
				continue
			}
			s.log.Debug("keycode changed", zap.String("keycode", n.Payload))
			s.cache.Remove(n.Payload)
		}
	}
}
