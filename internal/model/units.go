package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

var (
	weiPerEther = big.NewInt(params.Ether)

	ErrInvalidAmount = errors.New("invalid ether amount")
)

// Ether is an amount of the native currency kept in wei. The zero value is 0.
type Ether struct {
	wei *big.Int
}

func NewEtherFromWei(wei *big.Int) Ether {
	if wei == nil {
		return Ether{}
	}
	return Ether{wei: new(big.Int).Set(wei)}
}

// ParseEther converts a human readable decimal amount, e.g. "0.01", to wei.
func ParseEther(s string) (Ether, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "/") {
		return Ether{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Ether{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	r.Mul(r, new(big.Rat).SetInt(weiPerEther))
	if !r.IsInt() {
		return Ether{}, fmt.Errorf("%w: %q has more than 18 decimals", ErrInvalidAmount, s)
	}

	return Ether{wei: new(big.Int).Set(r.Num())}, nil
}

// MustParseEther is for constants and tests.
func MustParseEther(s string) Ether {
	e, err := ParseEther(s)
	if err != nil {
		panic(err)
	}
	return e
}

// Wei returns a copy, never nil.
func (e Ether) Wei() *big.Int {
	if e.wei == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(e.wei)
}

func (e Ether) Sign() int {
	if e.wei == nil {
		return 0
	}
	return e.wei.Sign()
}

func (e Ether) IsZero() bool {
	return e.Sign() == 0
}

func (e Ether) Cmp(other Ether) int {
	return e.Wei().Cmp(other.Wei())
}

// String formats the amount in ether without trailing zeros.
func (e Ether) String() string {
	return FormatEther(e.wei)
}

func (e Ether) MarshalJSON() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (e *Ether) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = Ether{}
		return nil
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
		}
		raw = num.String()
	}

	parsed, err := ParseEther(raw)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	sign := ""
	abs := new(big.Int).Set(wei)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}

	whole, frac := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracStr := strings.TrimRight(fmt.Sprintf("%018s", frac.String()), "0")
	return sign + whole.String() + "." + fracStr
}
