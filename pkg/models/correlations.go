package models

// CorrelationPair is a scored relationship between two assets
type CorrelationPair struct {
	AssetA      string     `json:"assetA"`
	AssetB      string     `json:"assetB"`
	RelatedNews []NewsItem `json:"relatedNews"`
	Correlation float64    `json:"correlation"` // -1..1
	Sentiment   float64    `json:"sentiment"`   // -1..1
}
