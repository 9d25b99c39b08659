package quota_test

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"echodao-backend/internal/model"
	"echodao-backend/internal/quota"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposal_tracking.json")
	ctx := context.Background()

	store, err := quota.NewFileStore(path)
	require.NoError(t, err)

	id := uint64(4)
	created := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, user, model.CreationRecord{
		CreatedAt:  created,
		ProposalID: &id,
		TxHash:     "0xabc",
		Amount:     big.NewInt(5),
		FeePaid:    big.NewInt(0),
		IsFree:     true,
	}))

	reopened, err := quota.NewFileStore(path)
	require.NoError(t, err)

	records, err := reopened.Records(ctx, user)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, created.Equal(records[0].CreatedAt))
	require.NotNil(t, records[0].ProposalID)
	assert.Equal(t, id, *records[0].ProposalID)
	assert.Equal(t, "0xabc", records[0].TxHash)
	assert.Equal(t, "5", records[0].Amount.String())
	assert.True(t, records[0].IsFree)

	empty, err := reopened.Records(ctx, "0x0000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposal_tracking.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := quota.NewFileStore(path)
	assert.Error(t, err)
}
