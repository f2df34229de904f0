package unit

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Conversion describes how one display unit maps onto its base storage unit.
// Stock is authoritatively stored in integer base units (e.g. grams); display
// units (e.g. kg) convert to and from it through an integer factor.
type Conversion struct {
	DisplayUnit string          // unit shown to users (kg, ltr, pcs)
	BaseUnit    string          // indivisible storage unit (g, ml, pcs)
	Factor      int64           // base units per display unit, >= 1
	UnitType    string          // weight, volume, count, length
	minimum     decimal.Decimal // cached 1/Factor
}

// UnknownUnitError is returned when a unit is absent from the conversion table
type UnknownUnitError struct {
	Unit string
}

// Error implements the error interface
func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("unit %q not found in conversion table", e.Unit)
}

// Table is an immutable snapshot of the unit conversion table.
// It is loaded once at startup and replaced wholesale on reload; it is never
// mutated in place, so lookups need no locking.
type Table struct {
	conversions map[string]Conversion
}

// NewTable builds a snapshot from the given conversions.
// Entries with a non-positive factor are rejected.
func NewTable(conversions []Conversion) (*Table, error) {
	m := make(map[string]Conversion, len(conversions))
	for _, c := range conversions {
		if c.DisplayUnit == "" {
			return nil, fmt.Errorf("conversion with empty display unit")
		}
		if c.Factor < 1 {
			return nil, fmt.Errorf("unit %q has invalid conversion factor %d", c.DisplayUnit, c.Factor)
		}
		c.minimum = decimal.New(1, 0).Div(decimal.NewFromInt(c.Factor))
		m[c.DisplayUnit] = c
	}
	return &Table{conversions: m}, nil
}

// Lookup returns the conversion for a display unit
func (t *Table) Lookup(displayUnit string) (Conversion, error) {
	c, ok := t.conversions[displayUnit]
	if !ok {
		return Conversion{}, &UnknownUnitError{Unit: displayUnit}
	}
	return c, nil
}

// Has reports whether the display unit is known
func (t *Table) Has(displayUnit string) bool {
	_, ok := t.conversions[displayUnit]
	return ok
}

// ToBase converts a display quantity to an integer base quantity,
// rounding to the nearest base unit (1.5 kg -> 1500 g).
func (t *Table) ToBase(displayQty decimal.Decimal, displayUnit string) (int64, error) {
	c, err := t.Lookup(displayUnit)
	if err != nil {
		return 0, err
	}
	return displayQty.Mul(decimal.NewFromInt(c.Factor)).Round(0).IntPart(), nil
}

// ToDisplay converts an integer base quantity to a display quantity.
// Division is exact because the factor is a power-of-ten style integer
// (1500 g -> 1.5 kg).
func (t *Table) ToDisplay(baseQty int64, displayUnit string) (decimal.Decimal, error) {
	c, err := t.Lookup(displayUnit)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(baseQty).Div(decimal.NewFromInt(c.Factor)), nil
}

// MinimumQuantity returns the smallest sellable display quantity for a unit
// (0.001 for kg when the base unit is grams, 1 for count units).
func (t *Table) MinimumQuantity(displayUnit string) (decimal.Decimal, error) {
	c, err := t.Lookup(displayUnit)
	if err != nil {
		return decimal.Zero, err
	}
	return c.minimum, nil
}

// IsPreciseMultiple reports whether the display quantity converts to a whole
// number of base units, i.e. can be stored without loss.
func (t *Table) IsPreciseMultiple(displayQty decimal.Decimal, displayUnit string) (bool, error) {
	c, err := t.Lookup(displayUnit)
	if err != nil {
		return false, err
	}
	base := displayQty.Mul(decimal.NewFromInt(c.Factor))
	return base.Equal(base.Round(0)), nil
}

// Units returns all conversions, for listing endpoints
func (t *Table) Units() []Conversion {
	out := make([]Conversion, 0, len(t.conversions))
	for _, c := range t.conversions {
		out = append(out, c)
	}
	return out
}

// Len returns the number of units in the table
func (t *Table) Len() int {
	return len(t.conversions)
}
