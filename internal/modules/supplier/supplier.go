package supplier

// Supplier delivers stock to the pub.
type Supplier struct {
	ID      int64   `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	Tel     *string `db:"tel" json:"tel,omitempty"`
	Email   *string `db:"email" json:"email,omitempty"`
	Web     *string `db:"web" json:"web,omitempty"`
	AccInfo *string `db:"accinfo" json:"accinfo,omitempty"`
}

// SupplierRequest is the payload for creating or updating a supplier.
type SupplierRequest struct {
	Name    string  `json:"name"`
	Tel     *string `json:"tel,omitempty"`
	Email   *string `json:"email,omitempty"`
	Web     *string `json:"web,omitempty"`
	AccInfo *string `json:"accinfo,omitempty"`
}
