package domain

import "time"

type EngineStatus string

const (
	StatusIdle       EngineStatus = "idle"
	StatusRefreshing EngineStatus = "refreshing"
	StatusReady      EngineStatus = "ready"
	StatusFailed     EngineStatus = "failed"
)

// EngineState is a read-only snapshot of the sync engine.
type EngineState struct {
	Status           EngineStatus
	IsLoading        bool
	Results          ConversionResult
	LastError        *ErrorKind
	SelectedCurrency CurrencyCode
	Amount           float64
	LastRefresh      *time.Time
}

type FetchSource string

const (
	SourceNames FetchSource = "names"
	SourceRates FetchSource = "rates"
)

// ErrorEvent is emitted once per failed remote fetch.
type ErrorEvent struct {
	Source FetchSource
	Kind   ErrorKind
	Err    error
	At     time.Time
}
