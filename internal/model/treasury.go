package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type TreasuryInfo struct {
	Address common.Address
	Owner   common.Address
	Balance *big.Int
	// OwnedByGovernance must hold for any proposal execution to succeed.
	OwnedByGovernance bool
}
