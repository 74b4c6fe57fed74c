package adapters

import (
	"context"
	"fxsync/internal/domain"
)

// KVStore is a string key-value store. Put replaces the whole value of a key in one operation.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key string, value string) error
}

type RateSource interface {
	FetchCurrencyNames(ctx context.Context) (domain.NameTable, error)
	FetchRates(ctx context.Context) (domain.RateTable, error)
}

// RateCache persists the name and rate tables. A missing or malformed entry is
// returned as an empty table with a nil error; an error means the store could not be read.
type RateCache interface {
	LoadNames(ctx context.Context) (domain.NameTable, error)
	SaveNames(ctx context.Context, names domain.NameTable) error
	LoadRates(ctx context.Context) (domain.RateTable, error)
	SaveRates(ctx context.Context, rates domain.RateTable) error
}
