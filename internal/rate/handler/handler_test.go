package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fxsync/internal/domain"
	"fxsync/internal/rate"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEngine struct{ mock.Mock }

func (m *MockEngine) State() domain.EngineState {
	args := m.Called()
	st, _ := args.Get(0).(domain.EngineState)
	return st
}

func (m *MockEngine) Names() domain.NameTable {
	args := m.Called()
	names, _ := args.Get(0).(domain.NameTable)
	return names
}

func (m *MockEngine) SetAmount(amount float64) {
	m.Called(amount)
}

func (m *MockEngine) SetSelectedCurrency(code string) {
	m.Called(code)
}

func (m *MockEngine) RefreshIfNeeded(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type errorJSON struct {
	Error string `json:"error"`
}

type stateJSON struct {
	Status           string              `json:"status"`
	IsLoading        bool                `json:"is_loading"`
	SelectedCurrency string              `json:"selected_currency"`
	Amount           float64             `json:"amount"`
	Results          []domain.Conversion `json:"results"`
	LastError        *string             `json:"last_error"`
	LastRefresh      *time.Time          `json:"last_refresh"`
}

func readyState() domain.EngineState {
	refreshed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return domain.EngineState{
		Status:           domain.StatusReady,
		SelectedCurrency: "USD",
		Amount:           100,
		Results: domain.ConversionResult{
			{Code: "EUR", Name: "Euro", Amount: 85},
			{Code: "USD", Name: "US Dollar", Amount: 100},
		},
		LastRefresh: &refreshed,
	}
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) stateJSON {
	t.Helper()
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var st stateJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &st))
	return st
}

func requireErrorJSON(t *testing.T, rr *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	require.Equal(t, status, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var ej errorJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ej))
	require.Equal(t, msg, ej.Error)
}

// --- GetConversions ---

func TestHandler_GetConversions_Success(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	engine.On("State").Return(readyState()).Once()

	rr := httptest.NewRecorder()
	h.GetConversions(rr, httptest.NewRequest(http.MethodGet, "/api/v1/conversions", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	st := decodeState(t, rr)
	require.Equal(t, "ready", st.Status)
	require.False(t, st.IsLoading)
	require.Equal(t, "USD", st.SelectedCurrency)
	require.Equal(t, 100.0, st.Amount)
	require.Equal(t, []domain.Conversion{
		{Code: "EUR", Name: "Euro", Amount: 85},
		{Code: "USD", Name: "US Dollar", Amount: 100},
	}, st.Results)
	require.Nil(t, st.LastError)
	require.NotNil(t, st.LastRefresh)
	engine.AssertExpectations(t)
}

func TestHandler_GetConversions_FailedStateCarriesErrorKind(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	kind := domain.KindTooManyRequests
	engine.On("State").Return(domain.EngineState{Status: domain.StatusFailed, LastError: &kind}).Once()

	rr := httptest.NewRecorder()
	h.GetConversions(rr, httptest.NewRequest(http.MethodGet, "/api/v1/conversions", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	st := decodeState(t, rr)
	require.Equal(t, "failed", st.Status)
	require.NotNil(t, st.LastError)
	require.Equal(t, "too_many_requests", *st.LastError)
	require.NotNil(t, st.Results)
	require.Empty(t, st.Results)
	require.Nil(t, st.LastRefresh)
}

// --- SetAmount ---

func TestHandler_SetAmount_Success(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	engine.On("SetAmount", 12.5).Once()
	st := readyState()
	st.Amount = 12.5
	engine.On("State").Return(st).Once()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/conversions/amount", bytes.NewBufferString(`{"amount":12.5}`))
	rr := httptest.NewRecorder()
	h.SetAmount(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 12.5, decodeState(t, rr).Amount)
	engine.AssertExpectations(t)
}

func TestHandler_SetAmount_ZeroIsAccepted(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	engine.On("SetAmount", 0.0).Once()
	engine.On("State").Return(domain.EngineState{Status: domain.StatusReady}).Once()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/conversions/amount", bytes.NewBufferString(`{"amount":0}`))
	rr := httptest.NewRecorder()
	h.SetAmount(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	engine.AssertExpectations(t)
}

func TestHandler_SetAmount_BadRequests(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "invalid json", body: `{"amount":`, wantMsg: "invalid request body"},
		{name: "unknown field", body: `{"amount":1,"extra":true}`, wantMsg: "invalid request body"},
		{name: "wrong type", body: `{"amount":"ten"}`, wantMsg: "invalid request body"},
		{name: "missing amount", body: `{}`, wantMsg: "amount is required"},
		{name: "body too large", body: `{"amount":` + strings.Repeat("1", 300) + `}`, wantMsg: "invalid request body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := new(MockEngine)
			h := NewRateHandler(engine)

			req := httptest.NewRequest(http.MethodPut, "/api/v1/conversions/amount", bytes.NewBufferString(tc.body))
			rr := httptest.NewRecorder()
			h.SetAmount(rr, req)

			requireErrorJSON(t, rr, http.StatusBadRequest, tc.wantMsg)
			engine.AssertNotCalled(t, "SetAmount", mock.Anything)
		})
	}
}

// --- SetCurrency ---

func TestHandler_SetCurrency_NormalizesCode(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	engine.On("SetSelectedCurrency", "EUR").Once()
	st := readyState()
	st.SelectedCurrency = "EUR"
	engine.On("State").Return(st).Once()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/conversions/currency", bytes.NewBufferString(`{"currency":" eur "}`))
	rr := httptest.NewRecorder()
	h.SetCurrency(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "EUR", decodeState(t, rr).SelectedCurrency)
	engine.AssertExpectations(t)
}

func TestHandler_SetCurrency_UnknownCodeIsAccepted(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	engine.On("SetSelectedCurrency", "ZZZ").Once()
	engine.On("State").Return(readyState()).Once()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/conversions/currency", bytes.NewBufferString(`{"currency":"zzz"}`))
	rr := httptest.NewRecorder()
	h.SetCurrency(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	engine.AssertExpectations(t)
}

func TestHandler_SetCurrency_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "invalid json", body: `{"currency":`, wantMsg: "invalid request body"},
		{name: "unknown field", body: `{"currency":"EUR","base":"USD"}`, wantMsg: "invalid request body"},
		{name: "empty", body: `{"currency":"  "}`, wantMsg: rate.ErrCodeRequired.Error()},
		{name: "too long", body: `{"currency":"EURO"}`, wantMsg: rate.ErrCodeMalformed.Error()},
		{name: "digits", body: `{"currency":"U5D"}`, wantMsg: rate.ErrCodeMalformed.Error()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := new(MockEngine)
			h := NewRateHandler(engine)

			req := httptest.NewRequest(http.MethodPut, "/api/v1/conversions/currency", bytes.NewBufferString(tc.body))
			rr := httptest.NewRecorder()
			h.SetCurrency(rr, req)

			requireErrorJSON(t, rr, http.StatusBadRequest, tc.wantMsg)
			engine.AssertNotCalled(t, "SetSelectedCurrency", mock.Anything)
		})
	}
}

// --- Refresh ---

func TestHandler_Refresh_Success(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	engine.On("RefreshIfNeeded", mock.Anything).Return(nil).Once()
	engine.On("State").Return(readyState()).Once()

	rr := httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/v1/rates/refresh", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ready", decodeState(t, rr).Status)
	engine.AssertExpectations(t)
}

func TestHandler_Refresh_FailedFetchIsStillOK(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	kind := domain.KindServerError
	engine.On("RefreshIfNeeded", mock.Anything).Return(nil).Once()
	engine.On("State").Return(domain.EngineState{Status: domain.StatusFailed, LastError: &kind}).Once()

	rr := httptest.NewRecorder()
	h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/v1/rates/refresh", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	st := decodeState(t, rr)
	require.Equal(t, "failed", st.Status)
	require.Equal(t, "server_error", *st.LastError)
}

func TestHandler_Refresh_WaitInterrupted(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "deadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantMsg: "refresh is still running"},
		{name: "canceled", err: context.Canceled, wantStatus: http.StatusServiceUnavailable, wantMsg: "refresh wait was interrupted"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := new(MockEngine)
			h := NewRateHandler(engine)
			engine.On("RefreshIfNeeded", mock.Anything).Return(tc.err).Once()

			rr := httptest.NewRecorder()
			h.Refresh(rr, httptest.NewRequest(http.MethodPost, "/api/v1/rates/refresh", nil))

			requireErrorJSON(t, rr, tc.wantStatus, tc.wantMsg)
			engine.AssertNotCalled(t, "State")
		})
	}
}

// --- GetCurrencies ---

func TestHandler_GetCurrencies_SortedByCode(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	engine.On("Names").Return(domain.NameTable{
		"USD": "US Dollar",
		"EUR": "Euro",
		"JPY": "Japanese Yen",
	}).Once()

	rr := httptest.NewRecorder()
	h.GetCurrencies(rr, httptest.NewRequest(http.MethodGet, "/api/v1/currencies", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var res []CurrencyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, []CurrencyResponse{
		{Code: "EUR", Name: "Euro"},
		{Code: "JPY", Name: "Japanese Yen"},
		{Code: "USD", Name: "US Dollar"},
	}, res)
}

func TestHandler_GetCurrencies_EmptyIsArray(t *testing.T) {
	engine := new(MockEngine)
	h := NewRateHandler(engine)
	engine.On("Names").Return(domain.NameTable{}).Once()

	rr := httptest.NewRecorder()
	h.GetCurrencies(rr, httptest.NewRequest(http.MethodGet, "/api/v1/currencies", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())
}
