package keyboard

import "context"

type Repository interface {
	CreatePLU(ctx context.Context, p *PLU) error
	GetPLU(ctx context.Context, id int64) (*PLU, error)
	ListPLUs(ctx context.Context) ([]PLU, error)
	UpdatePLU(ctx context.Context, p *PLU) error

	// SaveBinding inserts or replaces the binding for (keycode, menukey).
	SaveBinding(ctx context.Context, b *Binding) error
	DeleteBinding(ctx context.Context, id int64) (keycode string, err error)
	Bindings(ctx context.Context, keycode string) ([]Binding, error)

	SaveBarcode(ctx context.Context, b *Barcode) error
	DeleteBarcode(ctx context.Context, code string) error
	GetBarcode(ctx context.Context, code string) (*Barcode, error)

	SaveKeycap(ctx context.Context, k *Keycap) error
	ListKeycaps(ctx context.Context) ([]Keycap, error)
}
