package mongodb

import "time"

type storedCreation struct {
	UserAddress string    `bson:"user_address"`
	CreatedAt   time.Time `bson:"created_at"`
	ProposalID  *int64    `bson:"proposal_id,omitempty"`
	TxHash      string    `bson:"tx_hash,omitempty"`
	AmountWei   string    `bson:"amount_wei"`
	FeePaidWei  string    `bson:"fee_paid_wei"`
	IsFree      bool      `bson:"is_free"`
}

type storedReport struct {
	ContentID   string    `bson:"_id"`
	Filename    string    `bson:"filename"`
	FileHash    string    `bson:"file_hash"`
	Summary     string    `bson:"summary"`
	TrustScore  int       `bson:"trust_score"`
	Credibility string    `bson:"credibility"`
	SubmittedAt time.Time `bson:"submitted_at"`
}
