package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"echodao-backend/internal/model"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DAO binds the governance contract: proposal reads, the three mutating
// calls and the events they emit.
type DAO struct {
	client  *Client
	address common.Address
}

func NewDAO(client *Client, address common.Address) *DAO {
	return &DAO{client: client, address: address}
}

func (d *DAO) Address() common.Address {
	return d.address
}

func (d *DAO) NextProposalID(ctx context.Context) (uint64, error) {
	out, err := d.client.CallView(ctx, d.address, &GovernanceABI, "nextProposalId")
	if err != nil {
		return 0, err
	}
	return toUint64("nextProposalId", out[0])
}

// Proposal reads the proposal view. Ids never created read back as the zero
// struct, see model.Proposal.Exists.
func (d *DAO) Proposal(ctx context.Context, id uint64) (model.Proposal, error) {
	out, err := d.client.CallView(ctx, d.address, &GovernanceABI, "proposals", new(big.Int).SetUint64(id))
	if err != nil {
		return model.Proposal{}, err
	}
	if len(out) != 9 {
		return model.Proposal{}, fmt.Errorf("%w: proposals returned %d values", ErrDecodeFailure, len(out))
	}

	p := model.Proposal{
		ID:          id,
		Target:      *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Value:       *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		CallData:    *abi.ConvertType(out[2], new([]byte)).(*[]byte),
		Description: *abi.ConvertType(out[3], new(string)).(*string),
		Executed:    *abi.ConvertType(out[8], new(bool)).(*bool),
	}

	counters := []struct {
		name string
		dst  *uint64
		src  interface{}
	}{
		{"blockStart", &p.BlockStart, out[4]},
		{"blockEnd", &p.BlockEnd, out[5]},
		{"yesVotes", &p.YesVotes, out[6]},
		{"noVotes", &p.NoVotes, out[7]},
	}
	for _, c := range counters {
		if *c.dst, err = toUint64(c.name, c.src); err != nil {
			return model.Proposal{}, err
		}
	}

	return p, nil
}

func (d *DAO) HasVoted(ctx context.Context, id uint64, voter common.Address) (bool, error) {
	out, err := d.client.CallView(ctx, d.address, &GovernanceABI, "hasVoted", new(big.Int).SetUint64(id), voter)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (d *DAO) TreasuryAddress(ctx context.Context) (common.Address, error) {
	out, err := d.client.CallView(ctx, d.address, &GovernanceABI, "treasury")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (d *DAO) CreateProposalCall(target common.Address, value *big.Int, callData []byte, description string) (Call, error) {
	if value == nil {
		value = new(big.Int)
	}
	if callData == nil {
		callData = []byte{}
	}
	return d.call("createProposal", target, value, callData, description)
}

func (d *DAO) VoteCall(id uint64, support bool) (Call, error) {
	return d.call("vote", new(big.Int).SetUint64(id), support)
}

func (d *DAO) ExecuteCall(id uint64) (Call, error) {
	return d.call("executeProposal", new(big.Int).SetUint64(id))
}

// CreatedProposalID recovers the id assigned by the ledger from the
// ProposalCreated event of a creation receipt.
func (d *DAO) CreatedProposalID(receipt *types.Receipt) (uint64, error) {
	events, err := DecodeEvents(&GovernanceABI, d.address, "ProposalCreated", receipt)
	if err != nil {
		return 0, err
	}
	return toUint64("ProposalCreated.id", events[0]["id"])
}

// ExecutedEvent returns the ProposalExecuted fields of an execution receipt
// in a form that serializes cleanly.
func (d *DAO) ExecutedEvent(receipt *types.Receipt) (map[string]interface{}, error) {
	events, err := DecodeEvents(&GovernanceABI, d.address, "ProposalExecuted", receipt)
	if err != nil {
		return nil, err
	}

	fields := events[0]
	id, err := toUint64("ProposalExecuted.id", fields["id"])
	if err != nil {
		return nil, err
	}
	target, ok := fields["target"].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: ProposalExecuted.target", ErrDecodeFailure)
	}
	value, ok := fields["value"].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: ProposalExecuted.value", ErrDecodeFailure)
	}

	return map[string]interface{}{
		"proposal_id": id,
		"target":      target.Hex(),
		"value":       value.String(),
		"value_eth":   model.FormatEther(value),
	}, nil
}

func (d *DAO) call(method string, args ...interface{}) (Call, error) {
	data, err := GovernanceABI.Pack(method, args...)
	if err != nil {
		return Call{}, errors.New("failed to pack " + method + ": " + err.Error())
	}
	return Call{To: d.address, Data: data, Method: method}, nil
}

func toUint64(name string, v interface{}) (uint64, error) {
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrDecodeFailure, name)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s out of range: %s", ErrDecodeFailure, name, n)
	}
	return n.Uint64(), nil
}
