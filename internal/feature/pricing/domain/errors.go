// Package domain は価格最適化機能のドメインエラーを定義します。
package domain

import "errors"

// 価格最適化のドメインエラーです。
// 商品単位の失敗はいずれかをラップするので、呼び出し側は errors.Is で分類できます。
var (
	// ErrSourceUnavailable は競合ソースの取得または解析に失敗したことを表します。
	// 観測値に記録されるだけで、決定を中断することはありません。
	ErrSourceUnavailable = errors.New("competitor source unavailable")

	// ErrNoData は入力集合が空であることを表します。価格の各項は0に縮退します。
	ErrNoData = errors.New("no data")

	// ErrPredictorFailure は外部モデルの失敗、タイムアウト、不正な応答を表します。
	ErrPredictorFailure = errors.New("predictor failure")

	// ErrConstraintViolation は最小値が最大値を上回るマークアップポリシーを表します。
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrPersistence は書き戻しの失敗を表します。
	ErrPersistence = errors.New("persistence error")

	// ErrProductNotFound は指定 ID のカタログエントリが存在しないことを表します。
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidConfig はエンジン設定の検証失敗を表します。
	ErrInvalidConfig = errors.New("invalid configuration")
)
