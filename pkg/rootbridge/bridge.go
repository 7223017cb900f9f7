// Package rootbridge implements the controller on the origin side of the
// bridge. It takes assets into custody and announces them to the child with
// MAP_TOKEN and DEPOSIT messages; inbound WITHDRAW messages release custody
// back out. Every public operation is atomic: it either commits all of its
// effects or none of them, with no message sent on failure.
package rootbridge

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/adaptor"
	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/ledger"
	"github.com/causewayprotocol/causeway/pkg/registry"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

var (
	depositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_root_deposits_total",
			Help: "Total number of deposits accepted by the root controller, by asset class",
		}, []string{"class"})
	withdrawalsReleasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_root_withdrawals_released_total",
			Help: "Total number of inbound withdrawals whose custody was released, by asset class",
		}, []string{"class"})
	mappingsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "causeway_root_mappings_created_total",
			Help: "Total number of token mappings created by the root controller",
		})
	custodyGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "causeway_root_custody",
			Help: "Current custodied balance per origin identity (lossy float, dashboards only)",
		}, []string{"token"})
)

// Bridge is the root controller. The zero value is unusable; construct with
// New and complete setup with Initialize.
type Bridge struct {
	logger   *zap.Logger
	ledger   *ledger.Ledger
	registry *registry.Registry
	reporter *events.Reporter

	// self is the controller's own account on the root ledger; it holds all
	// custodied assets.
	self wire.Address

	mu            sync.Mutex
	owner         wire.Address
	proposedOwner wire.Address
	initialized   bool
	config        common.BridgeConfig
	sender        adaptor.MessageSender
}

func New(logger *zap.Logger, l *ledger.Ledger, reg *registry.Registry, rep *events.Reporter, self, owner wire.Address) *Bridge {
	return &Bridge{
		logger:   logger.Named("rootbridge"),
		ledger:   l,
		registry: reg,
		reporter: rep,
		self:     self,
		owner:    owner,
	}
}

// Initialize sets the peer configuration and the outbound transport. It may
// be called exactly once; every state-changing operation fails until it has
// been.
func (b *Bridge) Initialize(cfg common.BridgeConfig, sender adaptor.MessageSender) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return common.ErrAlreadyInitialized
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if sender == nil {
		return fmt.Errorf("%w: message sender", common.ErrZeroAddress)
	}
	if !b.ledger.HasCode(cfg.GovernanceToken) {
		return fmt.Errorf("%w: governance token %s", common.ErrEmptyTokenContract, cfg.GovernanceToken)
	}

	b.config = cfg
	b.sender = sender
	b.initialized = true

	b.logger.Info("root controller initialized",
		zap.Stringer("self", b.self),
		zap.Stringer("owner", b.owner),
		zap.Stringer("adaptor", cfg.Adaptor),
		zap.Stringer("counterpart", cfg.CounterpartBridge))

	return nil
}

// Address returns the controller's custody account.
func (b *Bridge) Address() wire.Address {
	return b.self
}

// trackCustody refreshes the custody gauge for the given origin identity.
// The float conversion is lossy; the gauge feeds dashboards, not accounting.
func (b *Bridge) trackCustody(originToken wire.Address) {
	var balance *uint256.Int
	if b.config.Classify(originToken) == common.AssetNative {
		balance = b.ledger.NativeBalanceOf(b.self)
	} else {
		var err error
		balance, err = b.ledger.BalanceOf(originToken, b.self)
		if err != nil {
			return
		}
	}
	f, _ := new(big.Float).SetInt(balance.ToBig()).Float64()
	custodyGauge.WithLabelValues(originToken.String()).Set(f)
}

func (b *Bridge) Owner() wire.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

// UpdateAdaptor swaps the transport endpoint. Messages already queued with
// the previous adaptor are not migrated.
func (b *Bridge) UpdateAdaptor(caller, newAdaptor wire.Address, newSender adaptor.MessageSender) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if caller != b.owner {
		return common.ErrNotOwner
	}
	if newAdaptor.IsZero() {
		return fmt.Errorf("%w: adaptor", common.ErrZeroAddress)
	}
	if newSender == nil {
		return fmt.Errorf("%w: message sender", common.ErrZeroAddress)
	}

	old := b.config.Adaptor
	b.config.Adaptor = newAdaptor
	b.sender = newSender

	b.logger.Info("adaptor rotated", zap.Stringer("old", old), zap.Stringer("new", newAdaptor))
	b.reporter.ReportEvent(events.AdaptorRotated{Side: events.SideRoot, OldAdaptor: old, NewAdaptor: newAdaptor})

	return nil
}

// ProposeOwner nominates a new owner. Ownership moves only when the nominee
// calls AcceptOwnership; a fresh proposal overwrites an unaccepted one.
func (b *Bridge) ProposeOwner(caller, newOwner wire.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if caller != b.owner {
		return common.ErrNotOwner
	}
	if newOwner.IsZero() {
		return fmt.Errorf("%w: proposed owner", common.ErrZeroAddress)
	}

	b.proposedOwner = newOwner
	b.reporter.ReportEvent(events.OwnershipProposed{
		Side:          events.SideRoot,
		CurrentOwner:  b.owner,
		ProposedOwner: newOwner,
	})

	return nil
}

func (b *Bridge) AcceptOwnership(caller wire.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.proposedOwner.IsZero() || caller != b.proposedOwner {
		return common.ErrNotProposedOwner
	}

	previous := b.owner
	b.owner = caller
	b.proposedOwner = wire.ZeroAddress

	b.logger.Info("ownership transferred", zap.Stringer("previous", previous), zap.Stringer("new", caller))
	b.reporter.ReportEvent(events.OwnershipAccepted{
		Side:          events.SideRoot,
		PreviousOwner: previous,
		NewOwner:      caller,
	})

	return nil
}
