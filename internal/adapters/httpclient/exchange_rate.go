package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"fxsync/internal/domain"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ExchangeRateClient talks to an openexchangerates.org compatible API.
type ExchangeRateClient struct {
	http    *http.Client
	baseURL string
	appID   string
}

type latestResponse struct {
	Disclaimer string             `json:"disclaimer"`
	License    string             `json:"license"`
	Timestamp  int64              `json:"timestamp"`
	Base       string             `json:"base"`
	Rates      map[string]float64 `json:"rates"`
}

func (c *ExchangeRateClient) FetchCurrencyNames(ctx context.Context) (domain.NameTable, error) {
	var body map[string]string
	if err := c.getJSON(ctx, "currencies.json", url.Values{"show_alternative": {"1"}}, &body); err != nil {
		return nil, err
	}

	names := make(domain.NameTable, len(body))
	for code, name := range body {
		if nc := domain.NormalizeCode(code); nc != "" {
			names[nc] = name
		}
	}
	return names, nil
}

func (c *ExchangeRateClient) FetchRates(ctx context.Context) (domain.RateTable, error) {
	var body latestResponse
	if err := c.getJSON(ctx, "latest.json", url.Values{"app_id": {c.appID}}, &body); err != nil {
		return nil, err
	}
	if body.Rates == nil {
		return nil, domain.NewFetchError(domain.KindSerialization, errors.New("response has no rates"))
	}

	rates := make(domain.RateTable, len(body.Rates))
	for code, rate := range body.Rates {
		if nc := domain.NormalizeCode(code); nc != "" {
			rates[nc] = rate
		}
	}
	return rates, nil
}

func (c *ExchangeRateClient) getJSON(ctx context.Context, endpoint string, query url.Values, dst any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return domain.NewFetchError(domain.KindUnknown, fmt.Errorf("failed to parse base URL: %w", err))
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + endpoint
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.NewFetchError(domain.KindUnknown, fmt.Errorf("failed to create request for %q: %w", endpoint, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewFetchError(transportErrorKind(err), fmt.Errorf("failed to execute request for %q: %w", endpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewFetchError(statusErrorKind(resp.StatusCode),
			fmt.Errorf("unexpected status code %d for %q: %s", resp.StatusCode, endpoint, resp.Status))
	}

	if err = json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return domain.NewFetchError(domain.KindSerialization, fmt.Errorf("failed to decode response for %q: %w", endpoint, err))
	}
	return nil
}

func statusErrorKind(code int) domain.ErrorKind {
	switch {
	case code == http.StatusRequestTimeout:
		return domain.KindTimeout
	case code == http.StatusTooManyRequests:
		return domain.KindTooManyRequests
	case code >= 500:
		return domain.KindServerError
	default:
		return domain.KindUnknown
	}
}

func transportErrorKind(err error) domain.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.KindNoConnectivity
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.KindNoConnectivity
	}
	return domain.KindUnknown
}

func NewExchangeRateClient(httpClient *http.Client, baseURL string, appID string) *ExchangeRateClient {
	return &ExchangeRateClient{http: httpClient, baseURL: baseURL, appID: appID}
}
