package http

import (
	"math/big"
	"net/http"

	"echodao-backend/internal/model"
)

type balanceResponse struct {
	BalanceWei *big.Int    `json:"balance_wei"`
	BalanceEth model.Ether `json:"balance_eth"`
}

type treasuryInfoResponse struct {
	Treasury          string      `json:"treasury"`
	Owner             string      `json:"owner"`
	BalanceWei        *big.Int    `json:"balance_wei"`
	BalanceEth        model.Ether `json:"balance_eth"`
	OwnedByGovernance bool        `json:"owned_by_dao"`
}

type proposalStatusResponse struct {
	ProposalID   uint64 `json:"proposal_id"`
	YesVotes     uint64 `json:"yes_votes"`
	NoVotes      uint64 `json:"no_votes"`
	Executed     bool   `json:"executed"`
	BlockStart   uint64 `json:"block_start"`
	BlockEnd     uint64 `json:"block_end"`
	CurrentBlock uint64 `json:"current_block"`
	Status       string `json:"status"`
	CanExecute   bool   `json:"can_execute"`
}

func (ser server) treasuryBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := ser.app.TreasuryBalance(r.Context())
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	ser.writeJSON(w, http.StatusOK, balanceResponse{BalanceWei: balance, BalanceEth: model.NewEtherFromWei(balance)})
}

func (ser server) treasuryInfo(w http.ResponseWriter, r *http.Request) {
	info, err := ser.app.TreasuryInfo(r.Context())
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	ser.writeJSON(w, http.StatusOK, treasuryInfoResponse{
		Treasury:          info.Address.Hex(),
		Owner:             info.Owner.Hex(),
		BalanceWei:        info.Balance,
		BalanceEth:        model.NewEtherFromWei(info.Balance),
		OwnedByGovernance: info.OwnedByGovernance,
	})
}

func (ser server) proposalStatus(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		ser.badRequest(w, r, err.Error())
		return
	}

	state, err := ser.app.ProposalState(r.Context(), id)
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	p := state.Proposal
	ser.writeJSON(w, http.StatusOK, proposalStatusResponse{
		ProposalID:   p.ID,
		YesVotes:     p.YesVotes,
		NoVotes:      p.NoVotes,
		Executed:     p.Executed,
		BlockStart:   p.BlockStart,
		BlockEnd:     p.BlockEnd,
		CurrentBlock: state.CurrentBlock,
		Status:       state.Status.String(),
		CanExecute:   state.CanExecute,
	})
}
