package supplier

// Business groups VAT rates and accounts; a pub may trade as more than
// one business.
type Business struct {
	ID               int64   `db:"id" json:"id"`
	Name             string  `db:"name" json:"name"`
	Abbrev           string  `db:"abbrev" json:"abbrev"`
	Address          string  `db:"address" json:"address"`
	VatNo            *string `db:"vatno" json:"vatno,omitempty"`
	ShowVatBreakdown bool    `db:"show_vat_breakdown" json:"show_vat_breakdown"`
}
