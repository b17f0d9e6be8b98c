package entity

// Weights は調整項ごとの候補価格への寄与度です。
// 非負で合計が1であることは設定層が保証するため、価格ルール側では再検証しません。
type Weights struct {
	Competitor float64 `yaml:"competitor" json:"competitor"`
	Historical float64 `yaml:"historical" json:"historical"`
	Seasonal   float64 `yaml:"seasonal" json:"seasonal"`
	Inventory  float64 `yaml:"inventory" json:"inventory"`
	Demand     float64 `yaml:"demand" json:"demand"`
}

// DefaultWeights は標準の重みを返します。
func DefaultWeights() Weights {
	return Weights{
		Competitor: 0.30,
		Historical: 0.25,
		Seasonal:   0.15,
		Inventory:  0.15,
		Demand:     0.15,
	}
}

// Sum は重みの合計を返します。
func (w Weights) Sum() float64 {
	return w.Competitor + w.Historical + w.Seasonal + w.Inventory + w.Demand
}

// Adjustments は価格評価1回分の項ごとの内訳です。
type Adjustments struct {
	Competitor float64 `json:"competitor"`
	Historical float64 `json:"historical"`
	Seasonal   float64 `json:"seasonal"`
	Inventory  float64 `json:"inventory"`
	Demand     float64 `json:"demand"`
}

// Weighted は Σ adjustment×weight を返します。
func (a Adjustments) Weighted(w Weights) float64 {
	return a.Competitor*w.Competitor +
		a.Historical*w.Historical +
		a.Seasonal*w.Seasonal +
		a.Inventory*w.Inventory +
		a.Demand*w.Demand
}

// ModelConfig はルールベースの調整モデルの設定です。
type ModelConfig struct {
	MinMargin          float64 `yaml:"min_margin"`
	MaxMargin          float64 `yaml:"max_margin"`
	MaxPriceChange     float64 `yaml:"max_price_change"`
	Precision          int32   `yaml:"precision"`
	BusinessHoursStart int     `yaml:"business_hours_start"`
	BusinessHoursEnd   int     `yaml:"business_hours_end"`
}

// DefaultModelConfig は標準のモデル設定を返します。
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		MinMargin:          0.15,
		MaxMargin:          0.40,
		MaxPriceChange:     0.20,
		Precision:          2,
		BusinessHoursStart: 9,
		BusinessHoursEnd:   17,
	}
}

// TargetMargin はマージン帯の中央値です。
func (c ModelConfig) TargetMargin() float64 {
	return (c.MinMargin + c.MaxMargin) / 2
}
