package di

import (
	"context"
	"fmt"

	"price_optimizer/internal/feature/pricing/adapters/predictor"
	"price_optimizer/internal/feature/pricing/usecase"
	"price_optimizer/internal/platform/config"
)

// NewPredictor は設定された外部予測器を生成します。
// 予測が無効な場合は nil を返します。
func NewPredictor(ctx context.Context, cfg config.PredictorConfig) (usecase.Predictor, error) {
	switch cfg.Kind {
	case config.PredictorSubprocess:
		return predictor.NewSubprocessPredictor(predictor.SubprocessConfig{
			Python:   cfg.Python,
			Script:   cfg.Script,
			ModelDir: cfg.ModelDir,
			Timeout:  cfg.Timeout,
		}), nil
	case config.PredictorGemini:
		p, err := predictor.NewGeminiPredictor(ctx, cfg.GeminiModel, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.PredictorNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown predictor %q", cfg.Kind)
	}
}
