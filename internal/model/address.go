package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsAddress accepts 0x-prefixed, 40 hex character account identifiers.
func IsAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// NormalizeAddress is the key used for per-user bookkeeping.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
