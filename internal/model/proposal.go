package model

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
)

// ProposalStatus is derived from the on-chain view and the current block height.
type ProposalStatus string

const (
	ProposalStatusActive   ProposalStatus = "active"
	ProposalStatusPassed   ProposalStatus = "passed"
	ProposalStatusRejected ProposalStatus = "rejected"
	ProposalStatusExecuted ProposalStatus = "executed"
)

func (status ProposalStatus) String() string {
	return string(status)
}

// Proposal is a view of a proposal stored on the ledger. It is read fresh per
// request and never cached.
type Proposal struct {
	ID          uint64
	Target      common.Address
	Value       *big.Int
	CallData    []byte
	Description string

	BlockStart uint64
	BlockEnd   uint64

	YesVotes uint64
	NoVotes  uint64
	Executed bool
}

// Exists reports whether the view holds a created proposal; unknown ids read
// back as the zero value from the contract mapping.
func (p Proposal) Exists() bool {
	return p.BlockEnd != 0 || p.BlockStart != 0
}

// VotingEnded uses a strict comparison, the end block itself still belongs to the vote.
func (p Proposal) VotingEnded(currentBlock uint64) bool {
	return currentBlock > p.BlockEnd
}

// Passed requires a strict majority, a tie does not pass.
func (p Proposal) Passed() bool {
	return p.YesVotes > p.NoVotes
}

func (p Proposal) Status(currentBlock uint64) ProposalStatus {
	switch {
	case p.Executed:
		return ProposalStatusExecuted
	case !p.VotingEnded(currentBlock):
		return ProposalStatusActive
	case p.Passed():
		return ProposalStatusPassed
	default:
		return ProposalStatusRejected
	}
}

// ProposalDraft is the off-chain request to create a proposal.
type ProposalDraft struct {
	// Title is thin metadata and is not persisted on the ledger.
	Title       string
	Description string
	Amount      Ether
	Recipient   string
	UserAddress string
	FeePaid     Ether
}

func (d *ProposalDraft) Complete() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Recipient = strings.TrimSpace(d.Recipient)
	d.UserAddress = NormalizeAddress(d.UserAddress)
}

func (d ProposalDraft) Validate() error {
	var err error

	if d.Description == "" {
		err = multierr.Append(err, errors.New("description is missing"))
	}
	if !IsAddress(d.Recipient) {
		err = multierr.Append(err, errors.New("recipient is not a valid address: "+d.Recipient))
	}
	if !IsAddress(d.UserAddress) {
		err = multierr.Append(err, errors.New("user_address is not a valid address: "+d.UserAddress))
	}
	if d.Amount.Sign() < 0 {
		err = multierr.Append(err, errors.New("amount_eth must not be negative"))
	}
	if d.FeePaid.Sign() < 0 {
		err = multierr.Append(err, errors.New("fee_paid must not be negative"))
	}

	return err
}

// Release is a treasury disbursement decoded from proposal call data.
type Release struct {
	Recipient common.Address
	Amount    *big.Int
}

// CreateResult is returned once a creation transaction is confirmed.
type CreateResult struct {
	TxHash string
	// ProposalID is nil when the creation event could not be decoded.
	ProposalID *uint64
	IsFree     bool
	FeeCharged Ether
}

type VoteResult struct {
	TxHash string
}

type ExecuteResult struct {
	TxHash string
	// Events is nil when the execution event could not be decoded.
	Events map[string]interface{}
}
