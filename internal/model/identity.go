package model

// Identity is a wallet address in EIP-55 checksummed form. Use
// wallet.Parse to build one from untrusted input.
type Identity string

// ZeroAddress is the null wallet. An empty Identity is treated the same way.
const ZeroAddress Identity = "0x0000000000000000000000000000000000000000"

// EscrowIdentity owns every ticket that is currently listed for resale.
// No key exists for it; only the market engine moves tickets in and out,
// and the engine refuses it as a caller.
const EscrowIdentity Identity = "0x0000000000000000000000000000000000000001"

// IsZero reports whether id is the empty or null wallet.
func (id Identity) IsZero() bool {
	return id == "" || id == ZeroAddress
}

func (id Identity) String() string { return string(id) }
