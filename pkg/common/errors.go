package common

import "errors"

// Bridge protocol errors shared by the root and child controllers. Every
// controller operation aborts atomically on the first error; callers match
// these sentinels with errors.Is. Codec failures carry wire.ErrMalformedMessage
// instead, wrapped by whichever controller hit them.
var (
	ErrZeroAddress = errors.New("zero address")
	ErrZeroAmount  = errors.New("zero amount")
	ErrZeroValue   = errors.New("zero value")

	ErrAlreadyMapped          = errors.New("token already mapped")
	ErrNotMapped              = errors.New("token not mapped")
	ErrCantMapGovernanceToken = errors.New("cannot map the governance token")
	ErrCantMapNativeAsset     = errors.New("cannot map the native asset")

	ErrNoFeeAttached     = errors.New("no fee attached")
	ErrInsufficientValue = errors.New("insufficient value attached")

	ErrUnsupportedAction = errors.New("unsupported action")
	ErrNotBridgeAdaptor  = errors.New("caller is not the bridge adaptor")

	ErrTransferFailed           = errors.New("transfer failed")
	ErrMintFailed               = errors.New("mint failed")
	ErrBurnFailed               = errors.New("burn failed")
	ErrBalanceInvariantViolated = errors.New("balance invariant violated")
	ErrEmptyTokenContract       = errors.New("token contract has no code")
	ErrIncorrectBridgeOwner     = errors.New("incorrect bridge owner")
)

// Lifecycle and administration errors.
var (
	ErrNotInitialized     = errors.New("bridge not initialized")
	ErrAlreadyInitialized = errors.New("bridge already initialized")
	ErrNotOwner           = errors.New("caller is not the owner")
	ErrNotProposedOwner   = errors.New("caller is not the proposed owner")
	ErrNotAuthorized      = errors.New("caller lacks the required capability")
	ErrBridgePaused       = errors.New("bridge is paused")
)
