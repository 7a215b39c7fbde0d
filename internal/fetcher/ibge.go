package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"loan-viability/internal/viability"
)

const (
	defaultIBGEBaseURL = "https://servicodados.ibge.gov.br/api/v3"
	// IPCA monthly variation: aggregate 1737, variable 63.
	defaultAggregate = "1737"
	defaultVariable  = "63"
	periodLayout     = "200601"
)

// IBGEOptions parameterise the statistics API fetcher.
type IBGEOptions struct {
	BaseURL   string
	Aggregate string
	Variable  string
	// Periods pins explicit period codes (YYYYMM). When empty, the last
	// Window complete months before Now are requested.
	Periods   []string
	Window    int
	Timeout   time.Duration
	UserAgent string
	Now       func() time.Time
}

// IBGE fetches monthly inflation from the IBGE aggregate-data API.
type IBGE struct {
	opts    IBGEOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewIBGE constructs a statistics API fetcher.
func NewIBGE(opts IBGEOptions, logger zerolog.Logger) *IBGE {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.Aggregate == "" {
		opts.Aggregate = defaultAggregate
	}
	if opts.Variable == "" {
		opts.Variable = defaultVariable
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultIBGEBaseURL
	}

	return &IBGE{
		opts:    opts,
		logger:  logger.With().Str("component", "ibge_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchInflation requests the configured periods and returns them ordered by period.
func (f *IBGE) FetchInflation(ctx context.Context) (Series, error) {
	periods := f.periods()
	if len(periods) == 0 {
		return Series{}, errors.New("no inflation periods configured")
	}

	endpoint := fmt.Sprintf("%s/agregados/%s/periodos/%s/variaveis/%s?localidades=%s",
		f.baseURL,
		url.PathEscape(f.opts.Aggregate),
		strings.Join(periods, "|"),
		url.PathEscape(f.opts.Variable),
		url.QueryEscape("N1[all]"),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Series{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "loanviability/1.0")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Series{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Series{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Series{}, parseIBGEError(resp.StatusCode, payload)
	}

	samples, err := parseAggregateResponse(payload)
	if err != nil {
		return Series{}, err
	}
	if len(samples) == 0 {
		return Series{}, errors.New("ibge returned no inflation values")
	}

	f.logger.Debug().Int("periods", len(samples)).Msg("inflation series fetched")
	return Series{Samples: samples, Source: SourceIBGE}, nil
}

func (f *IBGE) periods() []string {
	if len(f.opts.Periods) > 0 {
		return f.opts.Periods
	}
	return TrailingPeriods(f.opts.Now(), f.opts.Window)
}

// TrailingPeriods returns the YYYYMM codes of the window complete months
// preceding now, oldest first.
func TrailingPeriods(now time.Time, window int) []string {
	if window <= 0 {
		return nil
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periods := make([]string, window)
	for i := 0; i < window; i++ {
		periods[window-1-i] = first.AddDate(0, -(i + 1), 0).Format(periodLayout)
	}
	return periods
}

type aggregateResponse []struct {
	ID         string `json:"id"`
	Variavel   string `json:"variavel"`
	Unidade    string `json:"unidade"`
	Resultados []struct {
		Series []struct {
			Serie map[string]string `json:"serie"`
		} `json:"series"`
	} `json:"resultados"`
}

func parseAggregateResponse(payload []byte) ([]viability.InflationSample, error) {
	var res aggregateResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode ibge response: %w", err)
	}

	values := make(map[string]decimal.Decimal)
	for _, variable := range res {
		for _, result := range variable.Resultados {
			for _, series := range result.Series {
				for period, raw := range series.Serie {
					rate, err := decimal.NewFromString(strings.TrimSpace(raw))
					if err != nil {
						// "-" and "..." mark periods without a published value.
						continue
					}
					values[period] = rate
				}
			}
		}
	}

	periods := make([]string, 0, len(values))
	for period := range values {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	samples := make([]viability.InflationSample, 0, len(periods))
	for _, period := range periods {
		samples = append(samples, viability.InflationSample{Period: period, RatePercent: values[period]})
	}
	return samples, nil
}

type ibgeErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func parseIBGEError(status int, payload []byte) error {
	var apiErr ibgeErrorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("ibge api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("ibge api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("ibge api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("ibge api error (%d)", status)
}

var _ InflationFetcher = (*IBGE)(nil)
