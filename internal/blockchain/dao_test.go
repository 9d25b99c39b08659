package blockchain_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"echodao-backend/internal/blockchain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	daoAddress      = common.HexToAddress("0x00000000000000000000000000000000000000da")
	treasuryAddress = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	recipient       = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

// proposalsResponder answers proposals(id) for the ids in the map and the
// zero struct for any other id.
func proposalsResponder(t *testing.T, known map[uint64][]interface{}) func(ethereum.CallMsg) ([]byte, error) {
	method := blockchain.GovernanceABI.Methods["proposals"]
	zero := []interface{}{common.Address{}, new(big.Int), []byte{}, "", new(big.Int), new(big.Int), new(big.Int), new(big.Int), false}

	return func(msg ethereum.CallMsg) ([]byte, error) {
		require.True(t, bytes.Equal(msg.Data[:4], method.ID))
		args, err := method.Inputs.Unpack(msg.Data[4:])
		require.NoError(t, err)

		values, ok := known[args[0].(*big.Int).Uint64()]
		if !ok {
			values = zero
		}
		return method.Outputs.Pack(values...)
	}
}

func TestDAOProposal(t *testing.T) {
	callData, err := blockchain.ReleaseCallData(recipient, big.NewInt(5e17))
	require.NoError(t, err)

	backend := newFakeBackend()
	backend.callContract = proposalsResponder(t, map[uint64][]interface{}{
		1: {treasuryAddress, big.NewInt(0), callData, "fund the cleanup", big.NewInt(100), big.NewInt(117), big.NewInt(3), big.NewInt(1), false},
	})
	dao := blockchain.NewDAO(newTestClient(t, backend, time.Second), daoAddress)

	p, err := dao.Proposal(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, p.Exists())
	assert.Equal(t, uint64(1), p.ID)
	assert.Equal(t, treasuryAddress, p.Target)
	assert.Equal(t, "fund the cleanup", p.Description)
	assert.Equal(t, uint64(100), p.BlockStart)
	assert.Equal(t, uint64(117), p.BlockEnd)
	assert.Equal(t, uint64(3), p.YesVotes)
	assert.Equal(t, uint64(1), p.NoVotes)
	assert.False(t, p.Executed)
	assert.Equal(t, callData, p.CallData)

	missing, err := dao.Proposal(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, missing.Exists())
}

func TestDAOCallsTargetContract(t *testing.T) {
	dao := blockchain.NewDAO(newTestClient(t, newFakeBackend(), time.Second), daoAddress)

	create, err := dao.CreateProposalCall(recipient, nil, nil, "no-op")
	require.NoError(t, err)
	assert.Equal(t, daoAddress, create.To)
	assert.Equal(t, blockchain.GovernanceABI.Methods["createProposal"].ID, create.Data[:4])

	vote, err := dao.VoteCall(4, true)
	require.NoError(t, err)
	args, err := blockchain.GovernanceABI.Methods["vote"].Inputs.Unpack(vote.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(4), args[0])
	assert.Equal(t, true, args[1])

	execute, err := dao.ExecuteCall(4)
	require.NoError(t, err)
	assert.Equal(t, "executeProposal", execute.Method)
}

func proposalCreatedLog(t *testing.T, contract common.Address, id int64) *types.Log {
	event := blockchain.GovernanceABI.Events["ProposalCreated"]
	data, err := event.Inputs.NonIndexed().Pack(recipient, big.NewInt(0), "desc", big.NewInt(10), big.NewInt(27))
	require.NoError(t, err)

	return &types.Log{
		Address: contract,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(big.NewInt(id)),
			common.BytesToHash(recipient.Bytes()),
		},
		Data: data,
	}
}

func TestCreatedProposalID(t *testing.T) {
	dao := blockchain.NewDAO(newTestClient(t, newFakeBackend(), time.Second), daoAddress)

	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, Logs: []*types.Log{proposalCreatedLog(t, daoAddress, 42)}}
	id, err := dao.CreatedProposalID(receipt)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	// the same event from another contract does not count
	foreign := &types.Receipt{Status: types.ReceiptStatusSuccessful, Logs: []*types.Log{proposalCreatedLog(t, treasuryAddress, 42)}}
	_, err = dao.CreatedProposalID(foreign)
	assert.ErrorIs(t, err, blockchain.ErrEventNotFound)

	_, err = dao.CreatedProposalID(&types.Receipt{})
	assert.ErrorIs(t, err, blockchain.ErrEventNotFound)
}

func TestExecutedEvent(t *testing.T) {
	dao := blockchain.NewDAO(newTestClient(t, newFakeBackend(), time.Second), daoAddress)

	event := blockchain.GovernanceABI.Events["ProposalExecuted"]
	data, err := event.Inputs.NonIndexed().Pack(treasuryAddress, big.NewInt(1e18))
	require.NoError(t, err)
	receipt := &types.Receipt{Logs: []*types.Log{{
		Address: daoAddress,
		Topics:  []common.Hash{event.ID, common.BigToHash(big.NewInt(7))},
		Data:    data,
	}}}

	fields, err := dao.ExecutedEvent(receipt)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), fields["proposal_id"])
	assert.Equal(t, treasuryAddress.Hex(), fields["target"])
	assert.Equal(t, "1000000000000000000", fields["value"])
}

func TestDecodeRelease(t *testing.T) {
	amount, _ := new(big.Int).SetString("5000000000000000000", 10)
	callData, err := blockchain.ReleaseCallData(recipient, amount)
	require.NoError(t, err)

	release, err := blockchain.DecodeRelease(callData)
	require.NoError(t, err)
	assert.Equal(t, recipient, release.Recipient)
	assert.Equal(t, 0, amount.Cmp(release.Amount))

	for name, data := range map[string][]byte{
		"empty":          nil,
		"short":          {0x01, 0x02},
		"other selector": append([]byte{0xde, 0xad, 0xbe, 0xef}, callData[4:]...),
		"truncated args": callData[:20],
	} {
		_, err := blockchain.DecodeRelease(data)
		assert.True(t, errors.Is(err, blockchain.ErrDecodeFailure), name)
	}
}

func TestTreasuryReads(t *testing.T) {
	backend := newFakeBackend()
	backend.balances[treasuryAddress] = big.NewInt(12345)
	owner := blockchain.TreasuryABI.Methods["owner"]
	backend.callContract = func(msg ethereum.CallMsg) ([]byte, error) {
		require.Equal(t, treasuryAddress, *msg.To)
		return owner.Outputs.Pack(daoAddress)
	}
	treasury := blockchain.NewTreasury(newTestClient(t, backend, time.Second), treasuryAddress)

	got, err := treasury.Owner(context.Background())
	require.NoError(t, err)
	assert.Equal(t, daoAddress, got)

	balance, err := treasury.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(12345), balance)

	call := treasury.FundingCall(big.NewInt(3))
	assert.Equal(t, treasuryAddress, call.To)
	assert.Empty(t, call.Data)
	assert.Equal(t, big.NewInt(3), call.Value)
}
