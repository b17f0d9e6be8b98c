// Package competitor は商品ページと JSON の価格エンドポイントから競合価格を読み取ります。
package competitor

import "time"

const (
	defaultUserAgent = "price-optimizer/1.0"
	// maxBodyBytes はページを読み込む上限です。
	maxBodyBytes = 2 << 20
)

// Config は取得クライアントの設定です。
type Config struct {
	UserAgent string
	Timeout   time.Duration // リクエスト単位。HTTP クライアント自身にも別のタイムアウトがあります
}
