package model

type TrustLabel string

const (
	TrustLow    TrustLabel = "Low"
	TrustMedium TrustLabel = "Medium"
	TrustHigh   TrustLabel = "High"
)

type TrustScore struct {
	Score int
	Label TrustLabel
}

type Report struct {
	Filename    string
	ContentID   string
	FileHash    string
	Summary     string
	TrustScore  int
	Credibility TrustLabel
}

type IntegrityCheck struct {
	ContentID    string
	ExpectedHash string
	ActualHash   string
	Valid        bool
}
