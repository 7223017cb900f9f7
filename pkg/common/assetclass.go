package common

import "fmt"

// AssetClass partitions origin-token identities into the reserved sentinel
// identities and everything else. The set is closed: both controllers branch
// exhaustively on it, and adding a class is a wire-compatibility change.
type AssetClass uint8

const (
	// AssetToken is an ordinary fungible token whose representation is minted
	// and burned by the child controller.
	AssetToken AssetClass = iota

	// AssetGovernance is the protocol's own governance/fee token. On the root
	// ledger it is an ordinary contract; on the child ledger it is the native
	// currency, so deposits pay out directly and no representation exists. It
	// can never be mapped through the normal flow.
	AssetGovernance

	// AssetNative is the sentinel identity for the root ledger's native
	// currency. Its child-side representation is materialized at
	// initialization, never through a MapToken message.
	AssetNative
)

func (c AssetClass) String() string {
	switch c {
	case AssetToken:
		return "token"
	case AssetGovernance:
		return "governance"
	case AssetNative:
		return "native"
	default:
		return fmt.Sprintf("unknown asset class: %d", uint8(c))
	}
}
