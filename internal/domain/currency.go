package domain

import (
	"maps"
	"strings"
)

// CurrencyCode is an upper-cased currency identifier, e.g. "USD".
type CurrencyCode string

// NormalizeCode trims and upper-cases a raw code.
func NormalizeCode(raw string) CurrencyCode {
	return CurrencyCode(strings.ToUpper(strings.TrimSpace(raw)))
}

func (c CurrencyCode) String() string { return string(c) }

// NameTable maps a currency code to its display name.
// A published table is never mutated, refreshes replace it as a whole.
type NameTable map[CurrencyCode]string

// RateTable maps a currency code to its rate against the base currency of the remote source.
// A published table is never mutated, refreshes replace it as a whole.
type RateTable map[CurrencyCode]float64

func (t NameTable) Clone() NameTable {
	if t == nil {
		return NameTable{}
	}
	return maps.Clone(t)
}

func (t RateTable) Clone() RateTable {
	if t == nil {
		return RateTable{}
	}
	return maps.Clone(t)
}
