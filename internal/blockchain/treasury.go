package blockchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"echodao-backend/internal/model"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Treasury binds the contract holding the pooled funds released by executed proposals.
type Treasury struct {
	client  *Client
	address common.Address
}

func NewTreasury(client *Client, address common.Address) *Treasury {
	return &Treasury{client: client, address: address}
}

func (t *Treasury) Address() common.Address {
	return t.address
}

func (t *Treasury) Owner(ctx context.Context) (common.Address, error) {
	out, err := t.client.CallView(ctx, t.address, &TreasuryABI, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// Balance is the native balance held by the treasury contract.
func (t *Treasury) Balance(ctx context.Context) (*big.Int, error) {
	return t.client.BalanceAt(ctx, t.address)
}

// FundingCall is a plain value transfer into the treasury.
func (t *Treasury) FundingCall(amount *big.Int) Call {
	return Call{To: t.address, Value: new(big.Int).Set(amount), Method: "fundTreasury"}
}

// ReceivedAmount sums the FundsReceived events of a funding receipt.
func (t *Treasury) ReceivedAmount(receipt *types.Receipt) (*big.Int, error) {
	events, err := DecodeEvents(&TreasuryABI, t.address, "FundsReceived", receipt)
	if err != nil {
		return nil, err
	}

	total := new(big.Int)
	for _, e := range events {
		amount, ok := e["amount"].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("%w: FundsReceived.amount", ErrDecodeFailure)
		}
		total.Add(total, amount)
	}
	return total, nil
}

// ReleaseCallData encodes releaseFunds(to, amount), the payload of a
// disbursing proposal.
func ReleaseCallData(to common.Address, amount *big.Int) ([]byte, error) {
	data, err := TreasuryABI.Pack("releaseFunds", to, amount)
	if err != nil {
		return nil, errors.New("failed to pack releaseFunds: " + err.Error())
	}
	return data, nil
}

// DecodeRelease reads call data as releaseFunds(address,uint256). Any other
// layout is ErrDecodeFailure; callers treat this as a hint only.
func DecodeRelease(callData []byte) (model.Release, error) {
	method := TreasuryABI.Methods["releaseFunds"]
	if len(callData) < 4 || !bytes.Equal(callData[:4], method.ID) {
		return model.Release{}, fmt.Errorf("%w: not a releaseFunds payload", ErrDecodeFailure)
	}

	args, err := method.Inputs.Unpack(callData[4:])
	if err != nil {
		return model.Release{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if len(args) != 2 {
		return model.Release{}, fmt.Errorf("%w: releaseFunds has %d arguments", ErrDecodeFailure, len(args))
	}

	to, ok := args[0].(common.Address)
	if !ok {
		return model.Release{}, fmt.Errorf("%w: recipient", ErrDecodeFailure)
	}
	amount, ok := args[1].(*big.Int)
	if !ok {
		return model.Release{}, fmt.Errorf("%w: amount", ErrDecodeFailure)
	}

	return model.Release{Recipient: to, Amount: amount}, nil
}
