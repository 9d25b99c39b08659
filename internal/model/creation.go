package model

import (
	"math/big"
	"time"
)

// CreationRecord is one entry of a user's proposal history kept by the quota store.
type CreationRecord struct {
	CreatedAt  time.Time
	ProposalID *uint64
	TxHash     string
	Amount     *big.Int
	FeePaid    *big.Int
	IsFree     bool
}
