package domain

// Conversion is one line of a conversion result: the selected amount expressed in Code.
type Conversion struct {
	Code   CurrencyCode `json:"code"`
	Name   string       `json:"name"`
	Amount float64      `json:"amount"`
}

// ConversionResult holds one Conversion per code of the rate table it was computed from.
type ConversionResult []Conversion

// Find returns the line for code.
func (r ConversionResult) Find(code CurrencyCode) (Conversion, bool) {
	for _, c := range r {
		if c.Code == code {
			return c, true
		}
	}
	return Conversion{}, false
}
