package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

// DefaultGeminiModel はモデル未設定時に使うモデル名です。
const DefaultGeminiModel = "gemini-2.5-flash"

const promptTemplate = `You are a retail pricing analyst. Given the product data below, propose a single selling price.
Reply with exactly one line of JSON in the form {"price": <number>} and nothing else.

%s`

type generateFunc func(ctx context.Context, model, prompt string) (string, error)

// GeminiPredictor は Gemini モデルに価格を問い合わせます。
// 回答は他の候補と同じクランプを通ります。
type GeminiPredictor struct {
	model    string
	timeout  time.Duration
	generate generateFunc
}

var _ usecase.Predictor = (*GeminiPredictor)(nil)

// NewGeminiPredictor はアプリケーションデフォルト認証情報で GeminiPredictor を生成します。
// バックエンドは GOOGLE_GENAI_USE_VERTEXAI、GOOGLE_CLOUD_PROJECT、
// GOOGLE_CLOUD_LOCATION で選び、Gemini API の場合は GOOGLE_API_KEY を使います。
func NewGeminiPredictor(ctx context.Context, model string, timeout time.Duration) (*GeminiPredictor, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiPredictor(model, timeout, func(ctx context.Context, model, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}), nil
}

func newGeminiPredictor(model string, timeout time.Duration, generate generateFunc) *GeminiPredictor {
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GeminiPredictor{model: model, timeout: timeout, generate: generate}
}

func (g *GeminiPredictor) Predict(ctx context.Context, features entity.PredictionFeatures) (float64, error) {
	body, err := json.MarshalIndent(features, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("%w: encode features: %v", domain.ErrPredictorFailure, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	text, err := g.generate(ctx, g.model, fmt.Sprintf(promptTemplate, body))
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return 0, fmt.Errorf("%w: gemini timed out after %s", domain.ErrPredictorFailure, g.timeout)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: gemini API request failed: %v", domain.ErrPredictorFailure, err)
	}
	return parseAnswer(text)
}

var (
	jsonObject = regexp.MustCompile(`\{[^{}]*\}`)
	number     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// parseAnswer は応答中の任意の位置の {"price": n} を受け付けます
// (モデルは JSON をコードフェンスで囲みがちです)。見つからなければ数値だけの応答を読みます。
func parseAnswer(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if obj := jsonObject.FindString(text); obj != "" {
		var res prediction
		if err := json.Unmarshal([]byte(obj), &res); err == nil && res.Price != nil {
			return *res.Price, nil
		}
	}
	if n := number.FindString(text); n != "" && len(n) == len(strings.Trim(text, "` \n")) {
		v, err := strconv.ParseFloat(n, 64)
		if err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unparseable answer %q", domain.ErrPredictorFailure, text)
}
