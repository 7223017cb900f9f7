package common

import (
	"fmt"

	"github.com/causewayprotocol/causeway/pkg/wire"
)

// BridgeConfig is the parameter set a controller is initialized with. It is
// immutable after initialization with the single exception of the adaptor,
// which the administrative surface may rotate.
type BridgeConfig struct {
	// Adaptor is the local transport endpoint. It is the only identity
	// allowed to call the controller's inbound entry point, and the
	// destination all outbound messages and fees are handed to.
	Adaptor wire.Address

	// CounterpartBridge is the controller on the other ledger.
	CounterpartBridge wire.Address

	// CounterpartAdaptor is the transport identity inbound messages must
	// originate from.
	CounterpartAdaptor wire.Address

	// TokenTemplate seeds representation address derivation. Both sides must
	// be configured with the same value or their predicted addresses diverge.
	TokenTemplate wire.Address

	// GovernanceToken is the governance asset's root-ledger identity, used as
	// the sentinel for governance transfers on both sides.
	GovernanceToken wire.Address

	// NativeAssetAlias is the sentinel origin identity carried in messages
	// that move the root ledger's native currency.
	NativeAssetAlias wire.Address

	// NativeAssetRepresentation is the child-side token minted for native
	// deposits. It exists before the bridge comes up; MapToken never creates
	// it.
	NativeAssetRepresentation wire.Address

	// WrappedNative is the local wrapped form of the ledger's own native
	// currency. The child unwraps it during wrapped-native withdrawals.
	WrappedNative wire.Address
}

// Validate checks that every configured identity is non-zero. Controllers
// call it exactly once, from their initialization guard.
func (c *BridgeConfig) Validate() error {
	for _, field := range []struct {
		name string
		addr wire.Address
	}{
		{"adaptor", c.Adaptor},
		{"counterpart bridge", c.CounterpartBridge},
		{"counterpart adaptor", c.CounterpartAdaptor},
		{"token template", c.TokenTemplate},
		{"governance token", c.GovernanceToken},
		{"native asset alias", c.NativeAssetAlias},
		{"native asset representation", c.NativeAssetRepresentation},
		{"wrapped native", c.WrappedNative},
	} {
		if field.addr.IsZero() {
			return fmt.Errorf("%w: %s", ErrZeroAddress, field.name)
		}
	}
	return nil
}

// Classify resolves an origin-token identity to its asset class.
func (c *BridgeConfig) Classify(originToken wire.Address) AssetClass {
	switch originToken {
	case c.GovernanceToken:
		return AssetGovernance
	case c.NativeAssetAlias:
		return AssetNative
	default:
		return AssetToken
	}
}
