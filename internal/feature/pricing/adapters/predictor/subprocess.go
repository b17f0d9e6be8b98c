// Package predictor は外部の価格予測器を提供します。
// サブプロセスで動かす学習済みモデルと、Gemini による推定器があります。
package predictor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"price_optimizer/internal/feature/pricing/domain"
	"price_optimizer/internal/feature/pricing/domain/entity"
	"price_optimizer/internal/feature/pricing/usecase"
)

// ModelFile は学習ジョブがモデルディレクトリに書き出す成果物です。
const ModelFile = "latest_model.joblib"

const defaultTimeout = 30 * time.Second

// SubprocessConfig はインタプリタ、スクリプト、モデルディレクトリを指定します。
type SubprocessConfig struct {
	Python   string
	Script   string
	ModelDir string
	Timeout  time.Duration
}

// SubprocessPredictor は "<python> <script> --model_path <m> --input_file <f>" を実行し、
// 標準出力の1行目から {"price": float} を読み取ります。
type SubprocessPredictor struct {
	cfg SubprocessConfig
}

var _ usecase.Predictor = (*SubprocessPredictor)(nil)

// NewSubprocessPredictor は SubprocessPredictor を生成します。
func NewSubprocessPredictor(cfg SubprocessConfig) *SubprocessPredictor {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &SubprocessPredictor{cfg: cfg}
}

type prediction struct {
	Price *float64 `json:"price"`
}

// Predict は特徴量を一時ファイルに書き出してモデルを実行します。
// 失敗はすべて domain.ErrPredictorFailure をラップします。
func (p *SubprocessPredictor) Predict(ctx context.Context, features entity.PredictionFeatures) (float64, error) {
	modelPath := filepath.Join(p.cfg.ModelDir, ModelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return 0, fmt.Errorf("%w: model not found at %s", domain.ErrPredictorFailure, modelPath)
	}

	input, err := writeInput(features)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPredictorFailure, err)
	}
	defer os.Remove(input)

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.cfg.Python, p.cfg.Script,
		"--model_path", modelPath,
		"--input_file", input,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err = cmd.Run()
	if ctx.Err() != nil {
		return 0, fmt.Errorf("%w: timed out after %s", domain.ErrPredictorFailure, p.cfg.Timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, fmt.Errorf("%w: exit status %d: %s", domain.ErrPredictorFailure,
				exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrPredictorFailure, err)
	}

	price, err := parseOutput(stdout.Bytes())
	if err != nil {
		return 0, err
	}
	slog.Debug("predictor finished", "product_id", features.ProductID, "price", price, "elapsed", time.Since(start))
	return price, nil
}

func writeInput(features entity.PredictionFeatures) (string, error) {
	f, err := os.CreateTemp("", "price-features-*.json")
	if err != nil {
		return "", fmt.Errorf("create input file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(features); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write input file: %w", err)
	}
	return f.Name(), nil
}

func parseOutput(out []byte) (float64, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	if !sc.Scan() {
		return 0, fmt.Errorf("%w: empty output", domain.ErrPredictorFailure)
	}
	line := strings.TrimSpace(sc.Text())

	var res prediction
	if err := json.Unmarshal([]byte(line), &res); err != nil {
		return 0, fmt.Errorf("%w: malformed output %q", domain.ErrPredictorFailure, line)
	}
	if res.Price == nil {
		return 0, fmt.Errorf("%w: output has no price: %q", domain.ErrPredictorFailure, line)
	}
	return *res.Price, nil
}
