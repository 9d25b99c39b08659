package quota

import (
	"math/big"
	"time"

	"echodao-backend/internal/model"
)

// recordDoc is the serialized form shared by the file and redis stores.
type recordDoc struct {
	CreatedAt  time.Time `json:"created_at"`
	ProposalID *uint64   `json:"proposal_id,omitempty"`
	TxHash     string    `json:"tx_hash,omitempty"`
	AmountWei  string    `json:"amount_wei"`
	FeePaidWei string    `json:"fee_paid_wei"`
	IsFree     bool      `json:"is_free"`
}

func toDoc(r model.CreationRecord) recordDoc {
	return recordDoc{
		CreatedAt:  r.CreatedAt,
		ProposalID: r.ProposalID,
		TxHash:     r.TxHash,
		AmountWei:  weiString(r.Amount),
		FeePaidWei: weiString(r.FeePaid),
		IsFree:     r.IsFree,
	}
}

func (d recordDoc) record() model.CreationRecord {
	return model.CreationRecord{
		CreatedAt:  d.CreatedAt,
		ProposalID: d.ProposalID,
		TxHash:     d.TxHash,
		Amount:     parseWei(d.AmountWei),
		FeePaid:    parseWei(d.FeePaidWei),
		IsFree:     d.IsFree,
	}
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// parseWei treats a malformed amount as zero, amounts are informational.
func parseWei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
