package signkeys

import (
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AccountKey is the single credential every mutating ledger operation is signed with.
type AccountKey struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// LoadKey parses a hex encoded secp256k1 private key, with or without 0x.
func LoadKey(hexKey string) (AccountKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return AccountKey{}, errors.New("private key is missing")
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return AccountKey{}, errors.New("failed to parse the private key: " + err.Error())
	}

	return newAccountKey(key), nil
}

// source: https://github.com/ethereum/go-ethereum/blob/86d547707965685cef732aa28c15e6811ea98408/crypto/secp256k1/secp256_test.go#L19
func GenerateKeys() (AccountKey, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return AccountKey{}, errors.New("failed to generate the keys: " + err.Error())
	}

	return newAccountKey(key), nil
}

func (k AccountKey) Hex() string {
	return common.Bytes2Hex(crypto.FromECDSA(k.PrivateKey))
}

func newAccountKey(key *ecdsa.PrivateKey) AccountKey {
	return AccountKey{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
	}
}
