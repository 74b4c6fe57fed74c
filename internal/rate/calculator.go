package rate

import (
	"math"
	"slices"
	"strings"

	"fxsync/internal/domain"
)

// Convert expresses amount, given in the selected currency, in every currency of rates.
// Rates are relative to the base currency of the source, so the amount is first converted
// to the base and then multiplied by each rate. An unknown, zero or non-finite rate of the
// selected currency is treated as 1.0.
func Convert(rates domain.RateTable, names domain.NameTable, selected domain.CurrencyCode, amount float64) domain.ConversionResult {
	rateOfSelected, ok := rates[selected]
	if !ok || rateOfSelected == 0 || math.IsNaN(rateOfSelected) || math.IsInf(rateOfSelected, 0) {
		rateOfSelected = 1.0
	}
	baseAmount := amount / rateOfSelected

	result := make(domain.ConversionResult, 0, len(rates))
	for code, rate := range rates {
		result = append(result, domain.Conversion{
			Code:   code,
			Name:   names[code],
			Amount: rate * baseAmount,
		})
	}
	slices.SortFunc(result, func(a, b domain.Conversion) int {
		return strings.Compare(string(a.Code), string(b.Code))
	})
	return result
}
