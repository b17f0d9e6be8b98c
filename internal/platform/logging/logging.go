// Package logging はプロセス全体の slog ロガーを設定します。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel は debug、info、warn、error を slog のレベルに対応付けます。それ以外は info です。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New は w に書き込む JSON ロガーを返します。
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Setup は標準出力への JSON ロガーをデフォルトに設定します。
func Setup(level string) {
	slog.SetDefault(New(os.Stdout, level))
}
