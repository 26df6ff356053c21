package keyboard

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type postgresRepository struct{ db *sqlx.DB }

func NewPostgresRepository(db *sqlx.DB) Repository { return &postgresRepository{db: db} }

func (r *postgresRepository) CreatePLU(ctx context.Context, p *PLU) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO pricelookups (description, note, dept, price)
		VALUES ($1,$2,$3,$4) RETURNING id`,
		p.Description, p.Note, p.DeptID, p.Price).Scan(&p.ID)
}

func (r *postgresRepository) GetPLU(ctx context.Context, id int64) (*PLU, error) {
	p := &PLU{}
	if err := r.db.GetContext(ctx, p, `SELECT id, description, note, dept, price FROM pricelookups WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepository) ListPLUs(ctx context.Context) ([]PLU, error) {
	var ps []PLU
	err := r.db.SelectContext(ctx, &ps, `SELECT id, description, note, dept, price FROM pricelookups ORDER BY dept, description`)
	return ps, err
}

func (r *postgresRepository) UpdatePLU(ctx context.Context, p *PLU) error {
	_, err := r.db.NamedExecContext(ctx, `
		UPDATE pricelookups SET description = :description, note = :note, dept = :dept, price = :price
		WHERE id = :id`, p)
	return err
}

func (r *postgresRepository) SaveBinding(ctx context.Context, b *Binding) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO keyboard_bindings (keycode, menukey, stocklineid, pluid, stocktype, modifier)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (keycode, menukey) DO UPDATE
		   SET stocklineid = EXCLUDED.stocklineid, pluid = EXCLUDED.pluid,
		       stocktype = EXCLUDED.stocktype, modifier = EXCLUDED.modifier
		RETURNING id`,
		b.Keycode, b.Menukey, b.StockLineID, b.PLUID, b.StockTypeID, b.Modifier).Scan(&b.ID)
}

func (r *postgresRepository) DeleteBinding(ctx context.Context, id int64) (string, error) {
	var keycode string
	err := r.db.QueryRowxContext(ctx, `DELETE FROM keyboard_bindings WHERE id = $1 RETURNING keycode`, id).Scan(&keycode)
	return keycode, err
}

func (r *postgresRepository) Bindings(ctx context.Context, keycode string) ([]Binding, error) {
	var bs []Binding
	err := r.db.SelectContext(ctx, &bs, `
		SELECT id, keycode, menukey, stocklineid, pluid, stocktype, modifier
		FROM keyboard_bindings WHERE keycode = $1 ORDER BY menukey`, keycode)
	return bs, err
}

func (r *postgresRepository) SaveBarcode(ctx context.Context, b *Barcode) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO barcodes (barcode, stocklineid, pluid, stocktype, modifier)
		VALUES (:barcode, :stocklineid, :pluid, :stocktype, :modifier)
		ON CONFLICT (barcode) DO UPDATE
		   SET stocklineid = EXCLUDED.stocklineid, pluid = EXCLUDED.pluid,
		       stocktype = EXCLUDED.stocktype, modifier = EXCLUDED.modifier`, b)
	return err
}

func (r *postgresRepository) DeleteBarcode(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM barcodes WHERE barcode = $1`, code)
	return err
}

func (r *postgresRepository) GetBarcode(ctx context.Context, code string) (*Barcode, error) {
	b := &Barcode{}
	err := r.db.GetContext(ctx, b, `
		SELECT barcode, stocklineid, pluid, stocktype, modifier FROM barcodes WHERE barcode = $1`, code)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *postgresRepository) SaveKeycap(ctx context.Context, k *Keycap) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO keycaps (keycode, keycap, css_class) VALUES (:keycode, :keycap, :css_class)
		ON CONFLICT (keycode) DO UPDATE SET keycap = EXCLUDED.keycap, css_class = EXCLUDED.css_class`, k)
	return err
}

func (r *postgresRepository) ListKeycaps(ctx context.Context) ([]Keycap, error) {
	var ks []Keycap
	err := r.db.SelectContext(ctx, &ks, `SELECT keycode, keycap, css_class FROM keycaps ORDER BY keycode`)
	return ks, err
}
