// Package dto は競合価格エンドポイントの通信フォーマットです。
package dto

import "encoding/json"

// PriceResponse は競合の JSON 価格エンドポイントのボディです。
// Price は数値でも数値文字列でも受け付けます。
type PriceResponse struct {
	Price    json.Number `json:"price"`
	Currency string      `json:"currency"`
}
