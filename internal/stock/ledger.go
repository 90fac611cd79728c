package stock

// Valuer prices a single bottle for a ledger row about to be mutated.
// Implementations must price from the row state before the mutation applies.
type Valuer interface {
	PerBottle(row Row, fallbackPrice float64) float64
}

// RunningAverageValue prices bottles at total_value / total_bottles. When the
// row holds no bottles the product's selling price seeds the valuation.
type RunningAverageValue struct{}

func (RunningAverageValue) PerBottle(row Row, fallbackPrice float64) float64 {
	if row.TotalBottles > 0 {
		return row.TotalValue / float64(row.TotalBottles)
	}
	return fallbackPrice
}

// Config carries the ledger policy knobs.
type Config struct {
	// NormalizeLooseBottles rolls loose bottles up into cases after every
	// mutation. Off by default so the cases/bottles split is preserved
	// exactly as entered.
	NormalizeLooseBottles bool
}

// Credit adds the quantity to the row and returns the updated row together
// with the movement delta. The row's monetary value grows at the per-bottle
// rate the valuer derives from the row as it stood before the credit.
func Credit(row Row, q Quantity, perCase int, fallbackPrice float64, valuer Valuer, cfg Config) (Row, Delta, error) {
	if !q.Valid() || q.IsZero() {
		return Row{}, Delta{}, ErrInvalidQuantity
	}
	if perCase <= 0 {
		perCase = DefaultBottlesPerCase
	}

	perBottle := valuer.PerBottle(row, fallbackPrice)

	row.CasesQty += q.Cases
	row.BottlesQty += q.Bottles
	newTotal := row.CasesQty*perCase + row.BottlesQty
	newValue := float64(newTotal) * perBottle

	delta := Delta{
		Cases:        q.Cases,
		Bottles:      q.Bottles,
		TotalBottles: newTotal - row.TotalBottles,
		Value:        newValue - row.TotalValue,
	}
	row.TotalBottles = newTotal
	row.TotalValue = newValue

	if cfg.NormalizeLooseBottles {
		row = Normalize(row, perCase)
	}
	return row, delta, nil
}

// Debit removes the quantity from the row. Both components must be covered
// by the row as stored; a shortfall in either aborts with
// ErrInsufficientStock and leaves the row untouched.
func Debit(row Row, q Quantity, perCase int, fallbackPrice float64, valuer Valuer, cfg Config) (Row, Delta, error) {
	if !q.Valid() || q.IsZero() {
		return Row{}, Delta{}, ErrInvalidQuantity
	}
	if perCase <= 0 {
		perCase = DefaultBottlesPerCase
	}
	if row.CasesQty < q.Cases || row.BottlesQty < q.Bottles {
		return Row{}, Delta{}, ErrInsufficientStock
	}

	perBottle := valuer.PerBottle(row, fallbackPrice)

	row.CasesQty -= q.Cases
	row.BottlesQty -= q.Bottles
	newTotal := row.CasesQty*perCase + row.BottlesQty
	newValue := float64(newTotal) * perBottle

	delta := Delta{
		Cases:        q.Cases,
		Bottles:      q.Bottles,
		TotalBottles: row.TotalBottles - newTotal,
		Value:        row.TotalValue - newValue,
	}
	row.TotalBottles = newTotal
	row.TotalValue = newValue

	if cfg.NormalizeLooseBottles {
		row = Normalize(row, perCase)
	}
	return row, delta, nil
}

// Normalize rolls loose bottles into full cases. Totals are untouched, only
// the cases/bottles split changes.
func Normalize(row Row, perCase int) Row {
	if perCase <= 0 {
		perCase = DefaultBottlesPerCase
	}
	row.CasesQty += row.BottlesQty / perCase
	row.BottlesQty = row.BottlesQty % perCase
	return row
}
