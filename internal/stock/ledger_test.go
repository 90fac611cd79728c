package stock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreditSeedsEmptyRowFromProductPrice(t *testing.T) {
	row := Row{ProductID: 1}

	got, delta, err := Credit(row, Quantity{Cases: 2, Bottles: 5}, 12, 10.0, RunningAverageValue{}, Config{})
	require.NoError(t, err)

	require.Equal(t, 2, got.CasesQty)
	require.Equal(t, 5, got.BottlesQty)
	require.Equal(t, 29, got.TotalBottles)
	require.InDelta(t, 290.0, got.TotalValue, 1e-9)

	require.Equal(t, 29, delta.TotalBottles)
	require.InDelta(t, 290.0, delta.Value, 1e-9)
}

func TestCreditPreservesRunningAverage(t *testing.T) {
	row := Row{ProductID: 1, CasesQty: 10, BottlesQty: 0, TotalBottles: 120, TotalValue: 600.0}

	// 5.0 per bottle before the credit; the credit is valued at that rate
	// even though the product price differs.
	got, delta, err := Credit(row, Quantity{Cases: 1}, 12, 99.0, RunningAverageValue{}, Config{})
	require.NoError(t, err)

	require.Equal(t, 132, got.TotalBottles)
	require.InDelta(t, 660.0, got.TotalValue, 1e-9)
	require.InDelta(t, 60.0, delta.Value, 1e-9)
}

func TestDebitValuesAtRunningAverage(t *testing.T) {
	row := Row{ProductID: 1, CasesQty: 10, BottlesQty: 6, TotalBottles: 126, TotalValue: 630.0}

	got, delta, err := Debit(row, Quantity{Cases: 3, Bottles: 2}, 12, 99.0, RunningAverageValue{}, Config{})
	require.NoError(t, err)

	require.Equal(t, 7, got.CasesQty)
	require.Equal(t, 4, got.BottlesQty)
	require.Equal(t, 88, got.TotalBottles)
	require.InDelta(t, 440.0, got.TotalValue, 1e-9)

	require.Equal(t, 38, delta.TotalBottles)
	require.InDelta(t, 190.0, delta.Value, 1e-9)
}

func TestDebitRejectsShortfallPerComponent(t *testing.T) {
	row := Row{ProductID: 1, CasesQty: 10, BottlesQty: 0, TotalBottles: 120, TotalValue: 600.0}

	_, _, err := Debit(row, Quantity{Cases: 15}, 12, 10.0, RunningAverageValue{}, Config{})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// Loose bottles are not implicitly broken out of cases.
	_, _, err = Debit(row, Quantity{Bottles: 5}, 12, 10.0, RunningAverageValue{}, Config{})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCreditDebitRoundTripConservesRow(t *testing.T) {
	start := Row{ProductID: 1, CasesQty: 4, BottlesQty: 3, TotalBottles: 51, TotalValue: 255.0}
	qty := Quantity{Cases: 2, Bottles: 1}

	credited, _, err := Credit(start, qty, 12, 10.0, RunningAverageValue{}, Config{})
	require.NoError(t, err)
	back, _, err := Debit(credited, qty, 12, 10.0, RunningAverageValue{}, Config{})
	require.NoError(t, err)

	require.Equal(t, start.CasesQty, back.CasesQty)
	require.Equal(t, start.BottlesQty, back.BottlesQty)
	require.Equal(t, start.TotalBottles, back.TotalBottles)
	require.InDelta(t, start.TotalValue, back.TotalValue, 1e-9)
}

func TestQuantityValidation(t *testing.T) {
	_, _, err := Credit(Row{}, Quantity{}, 12, 10.0, RunningAverageValue{}, Config{})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = Credit(Row{}, Quantity{Cases: -1, Bottles: 2}, 12, 10.0, RunningAverageValue{}, Config{})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = Debit(Row{}, Quantity{Bottles: -3}, 12, 10.0, RunningAverageValue{}, Config{})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDefaultCaseSizeApplies(t *testing.T) {
	got, _, err := Credit(Row{ProductID: 1}, Quantity{Cases: 1}, 0, 2.0, RunningAverageValue{}, Config{})
	require.NoError(t, err)
	require.Equal(t, DefaultBottlesPerCase, got.TotalBottles)
}

func TestNormalizeRollsBottlesIntoCases(t *testing.T) {
	row := Normalize(Row{CasesQty: 1, BottlesQty: 27, TotalBottles: 39, TotalValue: 39.0}, 12)
	require.Equal(t, 3, row.CasesQty)
	require.Equal(t, 3, row.BottlesQty)
	require.Equal(t, 39, row.TotalBottles)
}

func TestNormalizeConfigAppliesAfterCredit(t *testing.T) {
	got, _, err := Credit(Row{ProductID: 1}, Quantity{Bottles: 30}, 12, 1.0, RunningAverageValue{}, Config{NormalizeLooseBottles: true})
	require.NoError(t, err)
	require.Equal(t, 2, got.CasesQty)
	require.Equal(t, 6, got.BottlesQty)
	require.Equal(t, 30, got.TotalBottles)
}
