// Package domain defines the emission record model, the category/unit
// conversion table, and the persisted wire format used by carbonledger.
package domain

// Category identifies the kind of activity a record describes.
type Category string

// Supported record categories.
const (
	// CategoryTransport covers travel measured in kilometres.
	CategoryTransport Category = "Transport"
	// CategoryEnergy covers electricity and heating measured in kWh.
	CategoryEnergy Category = "Energy"
	// CategoryFood covers food consumption measured in kilograms.
	CategoryFood Category = "Food"
	// CategoryWaste covers disposed waste measured in kilograms.
	CategoryWaste Category = "Waste"
)

// Categories returns every supported category in display order.
func Categories() []Category {
	return []Category{CategoryTransport, CategoryEnergy, CategoryFood, CategoryWaste}
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTransport, CategoryEnergy, CategoryFood, CategoryWaste:
		return true
	}
	return false
}

// Unit identifies the measurement unit of a record amount.
type Unit string

// Supported units.
const (
	UnitKilometre    Unit = "km"
	UnitKilowattHour Unit = "kWh"
	UnitKilogram     Unit = "kg"
)

// Units returns every supported unit.
func Units() []Unit {
	return []Unit{UnitKilometre, UnitKilowattHour, UnitKilogram}
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	switch u {
	case UnitKilometre, UnitKilowattHour, UnitKilogram:
		return true
	}
	return false
}

// Record is one logged activity together with its derived CO2-equivalent.
//
// ID and CO2Kg are owned by the engine: ID is assigned on creation and never
// changes, CO2Kg is recomputed from (Category, Unit, Amount) on every write.
type Record struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Activity string   `json:"activity"`
	Amount   float64  `json:"amount"`
	Unit     Unit     `json:"unit"`
	Date     string   `json:"date"` // ISO-8601
	Notes    string   `json:"notes,omitempty"`
	CO2Kg    float64  `json:"co2Kg"`
}

// Draft carries the caller supplied fields of a record.
type Draft struct {
	Category Category
	Activity string
	Amount   float64
	Unit     Unit
	Date     string
	Notes    string
}

// Draft returns the caller supplied portion of r.
func (r Record) Draft() Draft {
	return Draft{
		Category: r.Category,
		Activity: r.Activity,
		Amount:   r.Amount,
		Unit:     r.Unit,
		Date:     r.Date,
		Notes:    r.Notes,
	}
}

// NewRecord builds a record from draft, deriving CO2Kg from the conversion
// table. Non-finite amounts are stored as zero so the record always encodes.
func NewRecord(id string, draft Draft) Record {
	amount := draft.Amount
	if !finite(amount) {
		amount = 0
	}
	return Record{
		ID:       id,
		Category: draft.Category,
		Activity: draft.Activity,
		Amount:   amount,
		Unit:     draft.Unit,
		Date:     draft.Date,
		Notes:    draft.Notes,
		CO2Kg:    CO2Kg(draft.Category, draft.Unit, amount),
	}
}

// CloneRecords returns a shallow copy of records. Records hold only value
// fields, so the copy shares no mutable state with the input.
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// Direction describes the movement between the two most recent records.
type Direction string

// Trend directions.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
	DirectionNone Direction = "none"
)
