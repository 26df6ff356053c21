package settings

// Keys of the settings the till reads.
const (
	KeyMaxTranslineModifyAge = "register:max_transline_modify_age"
	KeyPullThruGap           = "stockline:pullthru_gap"
	KeyDayStartHour          = "session:day_start_hour"
	KeyRefundMaxAgeDays      = "payment:refund_max_age_days"
	KeyCurrencySymbol        = "currency:symbol"
)

// Value types accepted by the config table.
const (
	TypeText     = "text"
	TypeInteger  = "integer"
	TypeInterval = "interval"
	TypeBoolean  = "boolean"
	TypeMoney    = "money"
)

// Setting is one typed row of the config table.
type Setting struct {
	Key         string `db:"key" json:"key"`
	Value       string `db:"value" json:"value"`
	Type        string `db:"type" json:"type"`
	Description string `db:"description" json:"description"`
}
