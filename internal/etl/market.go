// etl реализует пайплайн котировок: выгрузку исторических OHLCV данных у
// провайдера, сериализацию в CSV и массовую загрузку в локальную таблицу.
package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lucastechai/nvidia-stock-api/internal/models"
)

// ErrNoData indicates that the provider returned an empty series for the
// requested symbol/period/interval. Distinct from transport or decode errors.
var ErrNoData = errors.New("no market data returned")

// Market is an HTTP client for a Yahoo-chart-compatible market data endpoint.
type Market struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewMarket creates a new market data client
func NewMarket(baseURL string, logger *slog.Logger) *Market {
	return &Market{
		baseURL: baseURL,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// chartResponse описывает ответ /v8/finance/chart
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
	Events struct {
		Dividends map[string]struct {
			Amount float64 `json:"amount"`
			Date   int64   `json:"date"`
		} `json:"dividends"`
		Splits map[string]struct {
			Numerator   float64 `json:"numerator"`
			Denominator float64 `json:"denominator"`
			Date        int64   `json:"date"`
		} `json:"splits"`
	} `json:"events"`
}

// History fetches the full historical daily series for a symbol.
// period and interval follow the provider's conventions ("max", "1d", ...).
// Returns ErrNoData when the provider responds with an empty series.
func (m *Market) History(ctx context.Context, symbol, period, interval string) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", interval)
	q.Set("events", "div|split")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", m.baseURL, url.PathEscape(symbol), q.Encode())

	m.logger.InfoContext(ctx, "downloading historical data",
		slog.String("symbol", symbol),
		slog.String("period", period),
		slog.String("interval", interval))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "nvidia-stock-api/1.0")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to decode chart response: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("provider error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}

	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, ErrNoData
	}

	candles := candlesFromChart(chart.Chart.Result[0])
	if len(candles) == 0 {
		return nil, ErrNoData
	}

	m.logger.InfoContext(ctx, "data extraction completed",
		slog.String("symbol", symbol),
		slog.Int("records", len(candles)))

	return candles, nil
}

// candlesFromChart собирает свечи из колоночного представления провайдера.
// Дивиденды и сплиты привязываются к свече по календарному дню.
func candlesFromChart(result chartResult) []models.Candle {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]

	dividends := make(map[string]float64, len(result.Events.Dividends))
	for _, d := range result.Events.Dividends {
		dividends[dayKey(d.Date)] = d.Amount
	}

	splits := make(map[string]float64, len(result.Events.Splits))
	for _, s := range result.Events.Splits {
		if s.Denominator != 0 {
			splits[dayKey(s.Date)] = s.Numerator / s.Denominator
		}
	}

	candles := make([]models.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Пропускаем дни без котировок (null в колонках)
		if i >= len(quote.Open) || quote.Open[i] == nil ||
			i >= len(quote.High) || quote.High[i] == nil ||
			i >= len(quote.Low) || quote.Low[i] == nil ||
			i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}

		candle := models.Candle{
			Date:  time.Unix(ts, 0).UTC(),
			Open:  *quote.Open[i],
			High:  *quote.High[i],
			Low:   *quote.Low[i],
			Close: *quote.Close[i],
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}

		key := dayKey(ts)
		candle.Dividends = dividends[key]
		candle.StockSplits = splits[key]

		candles = append(candles, candle)
	}

	return candles
}

func dayKey(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}
