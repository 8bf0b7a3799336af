// Package wallet turns untrusted address strings into model.Identity values.
// Addresses are 20-byte hex strings; the canonical form carries the EIP-55
// mixed-case checksum so that two spellings of one wallet compare equal.
package wallet

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

// ErrInvalidAddress is returned for anything that is not a 0x-prefixed,
// 40 digit hex string, or a mixed-case string with a bad checksum.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Parse validates s and returns its checksummed identity. All-lower and
// all-upper inputs are accepted as-is; mixed case must match the checksum.
func Parse(s string) (model.Identity, error) {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return "", ErrInvalidAddress
	}
	body := s[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return "", ErrInvalidAddress
	}
	sum := checksum(strings.ToLower(body))
	lower, upper := strings.ToLower(body), strings.ToUpper(body)
	if body != lower && body != upper && body != sum[2:] {
		return "", ErrInvalidAddress
	}
	return model.Identity(sum), nil
}

// MustParse is Parse for constants and tests. It panics on bad input.
func MustParse(s string) model.Identity {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// checksum applies EIP-55 to a lower-case hex body: a letter is upper-cased
// when the matching nibble of keccak256(body) is 8 or more.
func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := h.Sum(nil)

	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for i := 0; i < len(lowerHex); i++ {
		c := lowerHex[i]
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && c <= 'f' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
