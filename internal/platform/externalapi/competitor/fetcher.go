package competitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
	"price_optimizer/internal/platform/externalapi/competitor/dto"
	"price_optimizer/internal/shared/ratelimiter"
)

// Fetcher は呼び出しごとに競合価格を1件読み取ります。
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter
}

var _ usecase.CompetitorFetcher = (*Fetcher)(nil)

// NewFetcher は Fetcher を生成します。limiter は nil でも構いません。
func NewFetcher(cfg Config, client *http.Client, limiter ratelimiter.Limiter) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Fetcher{cfg: cfg, client: client, limiter: limiter}
}

// FetchPrice は source をダウンロードして価格を抽出します。
// ページに到達したが価格が見つからない場合は domain.ErrNoData を、
// 通信や HTTP の失敗は domain.ErrSourceUnavailable をラップしたエラーを返します。
func (f *Fetcher) FetchPrice(ctx context.Context, source string) (entity.CompetitorObservation, error) {
	obs := entity.CompetitorObservation{Source: source}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return obs, fmt.Errorf("%w: rate limit wait: %v", domain.ErrSourceUnavailable, err)
		}
	}
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return obs, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	res, err := f.client.Do(req)
	if err != nil {
		return obs, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return obs, fmt.Errorf("%w: competitor http %d", domain.ErrSourceUnavailable, res.StatusCode)
	}

	body := io.LimitReader(res.Body, maxBodyBytes)
	obs.Timestamp = time.Now()

	if isJSON(res.Header.Get("Content-Type")) {
		price, currency, err := decodeJSON(body)
		if err != nil {
			return obs, err
		}
		obs.Price, obs.Currency = price, currency
		return obs, nil
	}

	price, currency, err := ExtractPrice(body)
	if err != nil {
		return obs, err
	}
	obs.Price, obs.Currency = price, currency
	return obs, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func decodeJSON(r io.Reader) (float64, string, error) {
	var body dto.PriceResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return 0, "", fmt.Errorf("%w: decode price response: %v", domain.ErrNoData, err)
	}
	if body.Price == "" {
		return 0, "", fmt.Errorf("%w: response has no price", domain.ErrNoData)
	}
	price, err := body.Price.Float64()
	if err != nil || price <= 0 {
		return 0, "", fmt.Errorf("%w: invalid price %q", domain.ErrNoData, body.Price)
	}
	return price, strings.ToUpper(body.Currency), nil
}
