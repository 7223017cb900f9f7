// Package childbridge implements the child-side bridge controller. It
// materializes token representations announced by the root, mints them on
// inbound deposits, and burns them on withdrawals, emitting the matching
// WITHDRAW message back toward the root.
//
// On the child ledger the native currency IS the governance asset: inbound
// governance deposits pay native value out of the controller's treasury, and
// governance withdrawals custody native value instead of burning anything.
//
// Administration is capability-gated through an explicit RoleTable rather
// than a single owner.
package childbridge

import (
	"errors"
	"fmt"
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
			Name: "causeway_child_deposits_total",
			Help: "Total number of inbound deposits executed by the child controller, by asset class",
		}, []string{"class"})
	withdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_child_withdrawals_total",
			Help: "Total number of withdrawals accepted by the child controller, by asset class",
		}, []string{"class"})
	mappingsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "causeway_child_mappings_created_total",
			Help: "Total number of token representations materialized by the child controller",
		})
	pausedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "causeway_child_paused",
			Help: "Whether the child controller is paused (0 or 1)",
		})
)

// ErrNotPaused is returned by Unpause when the controller is already running.
var ErrNotPaused = errors.New("bridge is not paused")

type Bridge struct {
	logger   *zap.Logger
	ledger   *ledger.Ledger
	registry *registry.Registry
	reporter *events.Reporter

	// self is the controller's own account on the child ledger; it owns every
	// representation it materializes and holds the native treasury.
	self wire.Address

	mu          sync.Mutex
	initialized bool
	paused      bool
	roles       *RoleTable
	config      common.BridgeConfig
	sender      adaptor.MessageSender
}

func New(logger *zap.Logger, l *ledger.Ledger, reg *registry.Registry, rep *events.Reporter, self wire.Address) *Bridge {
	return &Bridge{
		logger:   logger.Named("childbridge"),
		ledger:   l,
		registry: reg,
		reporter: rep,
		self:     self,
	}
}

// Initialize arms the controller. The native-asset representation must
// already exist on the ledger with this controller as its bridge owner;
// mapping messages never create it.
func (b *Bridge) Initialize(cfg common.BridgeConfig, roles RoleBundle, sender adaptor.MessageSender) error {
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
	if err := roles.Validate(); err != nil {
		return err
	}
	if !b.ledger.HasCode(cfg.NativeAssetRepresentation) {
		return fmt.Errorf("%w: native asset representation %s", common.ErrEmptyTokenContract, cfg.NativeAssetRepresentation)
	}
	owner, err := b.ledger.Owner(cfg.NativeAssetRepresentation)
	if err != nil {
		return fmt.Errorf("failed to read native asset representation owner: %w", err)
	}
	if owner != b.self {
		return fmt.Errorf("%w: native asset representation is owned by %s", common.ErrIncorrectBridgeOwner, owner)
	}

	b.config = cfg
	b.roles = roles.seed()
	b.sender = sender
	b.initialized = true
	pausedGauge.Set(0)

	b.logger.Info("child controller initialized",
		zap.Stringer("self", b.self),
		zap.Stringer("adaptor", cfg.Adaptor),
		zap.Stringer("counterpart", cfg.CounterpartBridge),
		zap.Stringer("nativeRepresentation", cfg.NativeAssetRepresentation))
	return nil
}

func (b *Bridge) Address() wire.Address {
	return b.self
}

// Paused reports whether inbound processing and withdrawals are halted.
func (b *Bridge) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// Roles exposes the capability table for status introspection.
func (b *Bridge) Roles() *RoleTable {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roles
}

func (b *Bridge) Pause(caller wire.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if !b.roles.Has(caller, CapPause) {
		return fmt.Errorf("%w: %s", common.ErrNotAuthorized, CapPause)
	}
	if b.paused {
		return common.ErrBridgePaused
	}

	b.paused = true
	pausedGauge.Set(1)
	b.logger.Warn("bridge paused", zap.Stringer("by", caller))
	b.reporter.ReportEvent(events.Paused{Side: events.SideChild, By: caller})
	return nil
}

func (b *Bridge) Unpause(caller wire.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if !b.roles.Has(caller, CapUnpause) {
		return fmt.Errorf("%w: %s", common.ErrNotAuthorized, CapUnpause)
	}
	if !b.paused {
		return ErrNotPaused
	}

	b.paused = false
	pausedGauge.Set(0)
	b.logger.Info("bridge unpaused", zap.Stringer("by", caller))
	b.reporter.ReportEvent(events.Unpaused{Side: events.SideChild, By: caller})
	return nil
}

func (b *Bridge) UpdateAdaptor(caller, newAdaptor wire.Address, newSender adaptor.MessageSender) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if !b.roles.Has(caller, CapManageAdaptor) {
		return fmt.Errorf("%w: %s", common.ErrNotAuthorized, CapManageAdaptor)
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
	b.reporter.ReportEvent(events.AdaptorRotated{Side: events.SideChild, OldAdaptor: old, NewAdaptor: newAdaptor})
	return nil
}

// TreasuryDeposit moves attached native value into the controller's custody.
// The treasury funds inbound governance deposits.
func (b *Bridge) TreasuryDeposit(caller wire.Address, value *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if !b.roles.Has(caller, CapTreasury) {
		return fmt.Errorf("%w: %s", common.ErrNotAuthorized, CapTreasury)
	}
	if value == nil || value.IsZero() {
		return common.ErrZeroValue
	}
	if err := b.ledger.TransferNative(caller, b.self, value); err != nil {
		return fmt.Errorf("failed to collect treasury deposit: %w", err)
	}

	b.logger.Info("treasury funded", zap.Stringer("funder", caller), zap.Stringer("amount", value))
	b.reporter.ReportEvent(events.TreasuryDeposited{
		Side:   events.SideChild,
		Funder: caller,
		Amount: new(uint256.Int).Set(value),
	})
	return nil
}

func (b *Bridge) Grant(caller, principal wire.Address, c Capability) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if !b.roles.Has(caller, CapAdmin) {
		return fmt.Errorf("%w: %s", common.ErrNotAuthorized, CapAdmin)
	}
	if principal.IsZero() {
		return fmt.Errorf("%w: principal", common.ErrZeroAddress)
	}

	b.roles.Grant(principal, c)
	b.logger.Info("capability granted", zap.Stringer("principal", principal), zap.Stringer("capability", c))
	return nil
}

func (b *Bridge) Revoke(caller, principal wire.Address, c Capability) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if !b.roles.Has(caller, CapAdmin) {
		return fmt.Errorf("%w: %s", common.ErrNotAuthorized, CapAdmin)
	}
	if principal.IsZero() {
		return fmt.Errorf("%w: principal", common.ErrZeroAddress)
	}

	b.roles.Revoke(principal, c)
	b.logger.Info("capability revoked", zap.Stringer("principal", principal), zap.Stringer("capability", c))
	return nil
}
