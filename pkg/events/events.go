package events

import (
	"github.com/holiman/uint256"

	"github.com/causewayprotocol/causeway/pkg/wire"
)

// Side identifies which controller emitted an event.
type Side string

const (
	SideRoot  Side = "root"
	SideChild Side = "child"
)

// Event is implemented by every lifecycle event the controllers emit.
type Event interface {
	EventName() string
}

// MappingCreated is emitted when a token mapping is established: on the root
// when MapToken succeeds, on the child when the MAP_TOKEN message
// materializes the representation.
type MappingCreated struct {
	Side        Side
	OriginToken wire.Address
	LocalToken  wire.Address
	Name        string
	Symbol      string
	Decimals    uint8
}

func (MappingCreated) EventName() string { return "mapping_created" }

type NativeDeposited struct {
	Side     Side
	Sender   wire.Address
	Receiver wire.Address
	Amount   *uint256.Int
}

func (NativeDeposited) EventName() string { return "native_deposited" }

type GovernanceDeposited struct {
	Side     Side
	Sender   wire.Address
	Receiver wire.Address
	Amount   *uint256.Int
}

func (GovernanceDeposited) EventName() string { return "governance_deposited" }

type TokenDeposited struct {
	Side        Side
	OriginToken wire.Address
	LocalToken  wire.Address
	Sender      wire.Address
	Receiver    wire.Address
	Amount      *uint256.Int
}

func (TokenDeposited) EventName() string { return "token_deposited" }

type NativeWithdrawn struct {
	Side     Side
	Sender   wire.Address
	Receiver wire.Address
	Amount   *uint256.Int
	Fee      *uint256.Int
}

func (NativeWithdrawn) EventName() string { return "native_withdrawn" }

type GovernanceWithdrawn struct {
	Side     Side
	Sender   wire.Address
	Receiver wire.Address
	Amount   *uint256.Int
	Fee      *uint256.Int
}

func (GovernanceWithdrawn) EventName() string { return "governance_withdrawn" }

type WrappedNativeWithdrawn struct {
	Side     Side
	Sender   wire.Address
	Receiver wire.Address
	Amount   *uint256.Int
	Fee      *uint256.Int
}

func (WrappedNativeWithdrawn) EventName() string { return "wrapped_native_withdrawn" }

type TokenWithdrawn struct {
	Side        Side
	OriginToken wire.Address
	LocalToken  wire.Address
	Sender      wire.Address
	Receiver    wire.Address
	Amount      *uint256.Int
	Fee         *uint256.Int
}

func (TokenWithdrawn) EventName() string { return "token_withdrawn" }

type TreasuryDeposited struct {
	Side   Side
	Funder wire.Address
	Amount *uint256.Int
}

func (TreasuryDeposited) EventName() string { return "treasury_deposited" }

type Paused struct {
	Side Side
	By   wire.Address
}

func (Paused) EventName() string { return "paused" }

type Unpaused struct {
	Side Side
	By   wire.Address
}

func (Unpaused) EventName() string { return "unpaused" }

type AdaptorRotated struct {
	Side       Side
	OldAdaptor wire.Address
	NewAdaptor wire.Address
}

func (AdaptorRotated) EventName() string { return "adaptor_rotated" }

type OwnershipProposed struct {
	Side          Side
	CurrentOwner  wire.Address
	ProposedOwner wire.Address
}

func (OwnershipProposed) EventName() string { return "ownership_proposed" }

type OwnershipAccepted struct {
	Side          Side
	PreviousOwner wire.Address
	NewOwner      wire.Address
}

func (OwnershipAccepted) EventName() string { return "ownership_accepted" }

// MessageRejected is the audit shape for inbound messages a controller
// refused. It is reported on its own channel so audit consumers do not have
// to filter the full event stream.
type MessageRejected struct {
	Side   Side
	Digest [32]byte
	Reason string
}

func (MessageRejected) EventName() string { return "message_rejected" }
