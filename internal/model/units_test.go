package model

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		in      string
		wei     string
		wantErr bool
	}{
		{in: "0", wei: "0"},
		{in: "1", wei: "1000000000000000000"},
		{in: "0.01", wei: "10000000000000000"},
		{in: "2.5", wei: "2500000000000000000"},
		{in: "0.000000000000000001", wei: "1"},
		{in: "0.0000000000000000001", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1/3", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := ParseEther(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wei, e.Wei().String())
		})
	}
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0", FormatEther(nil))
	assert.Equal(t, "3", FormatEther(MustParseEther("3").Wei()))
	assert.Equal(t, "0.01", FormatEther(big.NewInt(10000000000000000)))
	assert.Equal(t, "-1.5", FormatEther(new(big.Int).Neg(MustParseEther("1.5").Wei())))
}

func TestEtherJSON(t *testing.T) {
	var req struct {
		Amount Ether `json:"amount_eth"`
		Fee    Ether `json:"fee_paid"`
		Empty  Ether `json:"empty"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount_eth": 5.0, "fee_paid": "0.01", "empty": null}`), &req))

	assert.Equal(t, MustParseEther("5").Wei(), req.Amount.Wei())
	assert.Equal(t, MustParseEther("0.01").Wei(), req.Fee.Wei())
	assert.True(t, req.Empty.IsZero())

	out, err := json.Marshal(req.Fee)
	require.NoError(t, err)
	assert.Equal(t, "0.01", string(out))
}
