package mongodb

import (
	"context"
	"errors"
	"math/big"

	"echodao-backend/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const creationsCollection = "proposal_creations"

// Records implements quota.Store.
func (b Repository) Records(ctx context.Context, user string) ([]model.CreationRecord, error) {
	coll := b.collection(creationsCollection)

	cursor, err := coll.Find(ctx, bson.M{"user_address": user}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errors.New("failed to find the user creations: " + err.Error())
	}

	var stored []storedCreation
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, errors.New("failed to decode the user creations: " + err.Error())
	}

	records := make([]model.CreationRecord, 0, len(stored))
	for _, s := range stored {
		r := model.CreationRecord{
			CreatedAt: s.CreatedAt,
			TxHash:    s.TxHash,
			Amount:    weiFromString(s.AmountWei),
			FeePaid:   weiFromString(s.FeePaidWei),
			IsFree:    s.IsFree,
		}
		if s.ProposalID != nil {
			id := uint64(*s.ProposalID)
			r.ProposalID = &id
		}
		records = append(records, r)
	}
	return records, nil
}

// Append implements quota.Store.
func (b Repository) Append(ctx context.Context, user string, record model.CreationRecord) error {
	coll := b.collection(creationsCollection)

	stored := storedCreation{
		UserAddress: user,
		CreatedAt:   record.CreatedAt,
		TxHash:      record.TxHash,
		AmountWei:   weiToString(record.Amount),
		FeePaidWei:  weiToString(record.FeePaid),
		IsFree:      record.IsFree,
	}
	if record.ProposalID != nil {
		id := int64(*record.ProposalID)
		stored.ProposalID = &id
	}

	if _, err := coll.InsertOne(ctx, stored); err != nil {
		b.logger.Debug("failed to insert the creation: "+err.Error(), zap.String("user", user))
		return errors.New("failed to insert the creation: " + err.Error())
	}
	return nil
}

func weiToString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func weiFromString(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
