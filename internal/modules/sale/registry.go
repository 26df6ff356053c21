package sale

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/georgemunganga/tillcore/internal/modules/keyboard"
	"github.com/georgemunganga/tillcore/internal/modules/stockline"
	"github.com/georgemunganga/tillcore/internal/tillerr"
)

// Modifier transforms a proposed sale. StockLine receives a nil line for
// keys bound directly to a stock type.
type Modifier interface {
	Name() string
	StockLine(sl *stockline.StockLine, sale *ProposedSale) error
	PLU(plu *keyboard.PLU, sale *ProposedSale) error
}

// Registry holds the modifiers available to the till, keyed by name.
type Registry struct {
	mu        sync.RWMutex
	modifiers map[string]Modifier
}

func NewRegistry() *Registry {
	return &Registry{modifiers: make(map[string]Modifier)}
}

// NewDefaultRegistry returns a registry with the builtin modifiers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range Builtins() {
		r.MustRegister(m)
	}
	return r
}

func (r *Registry) Register(m Modifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modifiers[m.Name()]; exists {
		return fmt.Errorf("modifier %q is already registered", m.Name())
	}
	r.modifiers[m.Name()] = m
	return nil
}

func (r *Registry) MustRegister(m Modifier) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Modifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modifiers[name]
	return m, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modifiers))
	for name := range r.modifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyStockLine applies the named modifier to a stock sale. An empty
// name leaves the sale alone.
func (r *Registry) ApplyStockLine(name string, sl *stockline.StockLine, sale *ProposedSale) error {
	return r.apply(name, sale, func(m Modifier) error { return m.StockLine(sl, sale) })
}

// ApplyPLU applies the named modifier to a price lookup sale.
func (r *Registry) ApplyPLU(name string, plu *keyboard.PLU, sale *ProposedSale) error {
	return r.apply(name, sale, func(m Modifier) error { return m.PLU(plu, sale) })
}

func (r *Registry) apply(name string, sale *ProposedSale, fn func(Modifier) error) error {
	if name == "" {
		return nil
	}
	m, ok := r.Get(name)
	if !ok {
		return tillerr.Bug(name, "no such modifier")
	}
	if err := fn(m); err != nil {
		var inc *Incompatible
		if errors.As(err, &inc) {
			return tillerr.User("%s", inc.Message)
		}
		return tillerr.Bug(name, "%v", err)
	}
	if err := sale.Validate(); err != nil {
		return tillerr.Bug(name, "modifier left the sale invalid: %v", err)
	}
	return nil
}
