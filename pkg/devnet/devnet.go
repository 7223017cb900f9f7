// package devnet contains the deterministic identities, token metadata and
// canonical bridge configuration of the local devnet. Both sides of the
// devnet bridge pair are created from the values here, so the two
// controllers always agree on the template, the governance identity and the
// native-asset sentinel.
package devnet

import (
	"github.com/holiman/uint256"

	"github.com/causewayprotocol/causeway/pkg/childbridge"
	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/ledger"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

// Operator accounts, funded at genesis. The owner key doubles as the node's
// armored bridge key in unsafe-dev mode.
const (
	KeyIndexOwner uint64 = iota
	KeyIndexAdmin
	KeyIndexPauser
	KeyIndexUnpauser
	KeyIndexAdaptorManager
	KeyIndexTreasuryManager
)

// User accounts are derived above the operator range; UserAccount(0) is the
// first.
const userKeyBase uint64 = 16

// NumUserAccounts user accounts are funded at genesis.
const NumUserAccounts = 4

// Bridge and token identities are derived from a reserved index range so
// they can never collide with a funded account.
const (
	keyIndexRootBridge uint64 = 100 + iota
	keyIndexChildBridge
	keyIndexRootAdaptor
	keyIndexChildAdaptor
	keyIndexTokenTemplate
	keyIndexGovernanceToken
	keyIndexNativeRepresentation
	keyIndexRootWrappedNative
	keyIndexChildWrappedNative
	keyIndexTestToken
)

var (
	Owner           = InsecureDeterministicAddress(KeyIndexOwner)
	Admin           = InsecureDeterministicAddress(KeyIndexAdmin)
	Pauser          = InsecureDeterministicAddress(KeyIndexPauser)
	Unpauser        = InsecureDeterministicAddress(KeyIndexUnpauser)
	AdaptorManager  = InsecureDeterministicAddress(KeyIndexAdaptorManager)
	TreasuryManager = InsecureDeterministicAddress(KeyIndexTreasuryManager)

	RootBridge   = InsecureDeterministicAddress(keyIndexRootBridge)
	ChildBridge  = InsecureDeterministicAddress(keyIndexChildBridge)
	RootAdaptor  = InsecureDeterministicAddress(keyIndexRootAdaptor)
	ChildAdaptor = InsecureDeterministicAddress(keyIndexChildAdaptor)

	TokenTemplate             = InsecureDeterministicAddress(keyIndexTokenTemplate)
	GovernanceToken           = InsecureDeterministicAddress(keyIndexGovernanceToken)
	NativeAssetRepresentation = InsecureDeterministicAddress(keyIndexNativeRepresentation)
	RootWrappedNative         = InsecureDeterministicAddress(keyIndexRootWrappedNative)
	ChildWrappedNative        = InsecureDeterministicAddress(keyIndexChildWrappedNative)
	TestToken                 = InsecureDeterministicAddress(keyIndexTestToken)

	// NativeAssetAlias is the conventional pseudo-address for a ledger's
	// native currency, zero-padded into a bridge address.
	NativeAssetAlias = mustAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
)

var (
	GovernanceTokenMeta      = ledger.TokenMeta{Name: "Causeway", Symbol: "CWY", Decimals: 18}
	NativeRepresentationMeta = ledger.TokenMeta{Name: "Wrapped ROOT", Symbol: "wROOT", Decimals: 18}
	RootWrappedNativeMeta    = ledger.TokenMeta{Name: "Wrapped ROOT", Symbol: "wROOT", Decimals: 18}
	ChildWrappedNativeMeta   = ledger.TokenMeta{Name: "Wrapped CWY", Symbol: "wCWY", Decimals: 18}
	TestTokenMeta            = ledger.TokenMeta{Name: "Causeway Test Token", Symbol: "CTT", Decimals: 18}
)

// GenesisNativeBalance is what every funded account starts with, on both
// ledgers: one million coins at 18 decimals.
var GenesisNativeBalance = uint256.MustFromDecimal("1000000000000000000000000")

// UserAccount returns the address of the nth funded devnet user account.
func UserAccount(n uint64) wire.Address {
	return InsecureDeterministicAddress(userKeyBase + n)
}

// FundedAccounts returns every account credited with GenesisNativeBalance at
// genesis. The same set is funded on both ledgers.
func FundedAccounts() []wire.Address {
	accounts := []wire.Address{
		Owner,
		Admin,
		Pauser,
		Unpauser,
		AdaptorManager,
		TreasuryManager,
	}
	for n := uint64(0); n < NumUserAccounts; n++ {
		accounts = append(accounts, UserAccount(n))
	}
	return accounts
}

// RootConfig returns the root controller's devnet configuration.
func RootConfig() common.BridgeConfig {
	return common.BridgeConfig{
		Adaptor:                   RootAdaptor,
		CounterpartBridge:         ChildBridge,
		CounterpartAdaptor:        ChildAdaptor,
		TokenTemplate:             TokenTemplate,
		GovernanceToken:           GovernanceToken,
		NativeAssetAlias:          NativeAssetAlias,
		NativeAssetRepresentation: NativeAssetRepresentation,
		WrappedNative:             RootWrappedNative,
	}
}

// ChildConfig returns the child controller's devnet configuration. The
// template, governance identity and native sentinel must match RootConfig or
// the two sides predict different representation addresses.
func ChildConfig() common.BridgeConfig {
	return common.BridgeConfig{
		Adaptor:                   ChildAdaptor,
		CounterpartBridge:         RootBridge,
		CounterpartAdaptor:        RootAdaptor,
		TokenTemplate:             TokenTemplate,
		GovernanceToken:           GovernanceToken,
		NativeAssetAlias:          NativeAssetAlias,
		NativeAssetRepresentation: NativeAssetRepresentation,
		WrappedNative:             ChildWrappedNative,
	}
}

// Roles returns the child controller's devnet role bundle.
func Roles() childbridge.RoleBundle {
	return childbridge.RoleBundle{
		Admin:           Admin,
		Pauser:          Pauser,
		Unpauser:        Unpauser,
		AdaptorManager:  AdaptorManager,
		TreasuryManager: TreasuryManager,
	}
}

func mustAddress(value string) wire.Address {
	addr, err := wire.StringToAddress(value)
	if err != nil {
		panic(err)
	}
	return addr
}
