package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"echodao-backend/internal/model"
	"echodao-backend/internal/ports/http/middleware/requestid"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

type createProposalRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	AmountEth   model.Ether `json:"amount_eth"`
	Recipient   string      `json:"recipient"`
	UserAddress string      `json:"user_address"`
	FeePaid     model.Ether `json:"fee_paid"`
}

type createProposalResponse struct {
	TxHash     string      `json:"tx_hash"`
	ProposalID *uint64     `json:"proposal_id"`
	Message    string      `json:"message"`
	FeeCharged model.Ether `json:"fee_charged"`
	IsFree     bool        `json:"is_free"`
}

type limitResponse struct {
	CanCreate      bool        `json:"can_create"`
	IsFree         bool        `json:"is_free"`
	ProposalsToday int         `json:"proposals_today"`
	TotalProposals int         `json:"total_proposals"`
	Message        string      `json:"message"`
	MinimumFee     model.Ether `json:"minimum_fee"`
}

type voteRequest struct {
	ProposalID *uint64 `json:"proposal_id"`
	Support    *bool   `json:"support"`
}

type txResponse struct {
	TxHash  string                 `json:"tx_hash"`
	Message string                 `json:"message"`
	Events  map[string]interface{} `json:"events,omitempty"`
}

type proposalDetail struct {
	ProposalID  uint64      `json:"proposal_id"`
	Target      string      `json:"target"`
	Value       model.Ether `json:"value"`
	CallData    string      `json:"callData"`
	Description string      `json:"description"`
	BlockStart  uint64      `json:"blockStart"`
	BlockEnd    uint64      `json:"blockEnd"`
	YesVotes    uint64      `json:"yesVotes"`
	NoVotes     uint64      `json:"noVotes"`
	Executed    bool        `json:"executed"`
}

type proposalListResponse struct {
	Proposals  []proposalDetail `json:"proposals"`
	TotalCount int              `json:"total_count"`
}

func toProposalDetail(p model.Proposal) proposalDetail {
	return proposalDetail{
		ProposalID:  p.ID,
		Target:      p.Target.Hex(),
		Value:       model.NewEtherFromWei(p.Value),
		CallData:    hexutil.Encode(p.CallData),
		Description: p.Description,
		BlockStart:  p.BlockStart,
		BlockEnd:    p.BlockEnd,
		YesVotes:    p.YesVotes,
		NoVotes:     p.NoVotes,
		Executed:    p.Executed,
	}
}

func (ser server) createProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		ser.badRequest(w, r, err.Error())
		return
	}

	ctx, cancel := ser.mutationContext(r)
	defer cancel()

	ser.logger.Info("creating a proposal", zap.String("user", req.UserAddress), zap.String("title", req.Title), zap.String("requestID", requestid.FromContext(r.Context())))

	result, err := ser.app.CreateProposal(ctx, model.ProposalDraft{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.AmountEth,
		Recipient:   req.Recipient,
		UserAddress: req.UserAddress,
		FeePaid:     req.FeePaid,
	})
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	message := "Proposal submitted successfully."
	if result.IsFree {
		message = "Free proposal submitted successfully."
	}

	ser.writeJSON(w, http.StatusOK, createProposalResponse{
		TxHash:     result.TxHash,
		ProposalID: result.ProposalID,
		Message:    message,
		FeeCharged: result.FeeCharged,
		IsFree:     result.IsFree,
	})
}

func (ser server) checkLimit(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["userAddress"]

	status, err := ser.app.CheckLimit(r.Context(), user)
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	ser.writeJSON(w, http.StatusOK, limitResponse{
		CanCreate:      status.CanCreate,
		IsFree:         status.IsFree,
		ProposalsToday: status.ProposalsToday,
		TotalProposals: status.TotalProposals,
		Message:        status.Message,
		MinimumFee:     status.RequiredFee,
	})
}

func (ser server) vote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		ser.badRequest(w, r, err.Error())
		return
	}
	if req.ProposalID == nil || req.Support == nil {
		ser.badRequest(w, r, "proposal_id and support are required")
		return
	}

	ctx, cancel := ser.mutationContext(r)
	defer cancel()

	result, err := ser.app.Vote(ctx, *req.ProposalID, *req.Support)
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	ser.writeJSON(w, http.StatusOK, txResponse{TxHash: result.TxHash, Message: "Vote submitted successfully."})
}

func (ser server) execute(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		ser.badRequest(w, r, err.Error())
		return
	}

	ctx, cancel := ser.mutationContext(r)
	defer cancel()

	result, err := ser.app.Execute(ctx, id)
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	ser.writeJSON(w, http.StatusOK, txResponse{
		TxHash:  result.TxHash,
		Message: "Execute transaction submitted successfully.",
		Events:  result.Events,
	})
}

func (ser server) listProposals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := ser.requestContext(r)
	defer cancel()

	proposals, err := ser.app.ListProposals(ctx)
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	response := proposalListResponse{Proposals: make([]proposalDetail, 0, len(proposals))}
	for _, p := range proposals {
		response.Proposals = append(response.Proposals, toProposalDetail(p))
	}
	response.TotalCount = len(response.Proposals)

	ser.writeJSON(w, http.StatusOK, response)
}

func (ser server) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := proposalID(r)
	if err != nil {
		ser.badRequest(w, r, err.Error())
		return
	}

	p, err := ser.app.GetProposal(r.Context(), id)
	if err != nil {
		ser.respondError(w, r, err)
		return
	}

	ser.writeJSON(w, http.StatusOK, toProposalDetail(p))
}

func proposalID(r *http.Request) (uint64, error) {
	raw := mux.Vars(r)["proposalID"]
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id: %q", raw)
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := decoder.Decode(dst); err != nil {
		return errors.New("failed to parse the request body: " + err.Error())
	}
	return nil
}
