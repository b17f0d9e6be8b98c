// Package dto は価格最適化 HTTP エンドポイントの JSON ボディを定義します。
package dto

// ErrorResponse は 2xx 以外の全レスポンスのボディです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse はデータを返さないコマンドの応答です。
type MessageResponse struct {
	Message string `json:"message"`
}
