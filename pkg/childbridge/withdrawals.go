package childbridge

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

// WithdrawGovernance moves amount of the governance asset (the child's
// native currency) back to the caller's own root-side account.
func (b *Bridge) WithdrawGovernance(ctx context.Context, caller wire.Address, amount, value *uint256.Int) error {
	return b.WithdrawGovernanceTo(ctx, caller, caller, amount, value)
}

// WithdrawGovernanceTo custodies amount out of the attached value and emits
// a WITHDRAW releasing the governance token to receiver on the root. The
// remainder of the attached value is the message fee and must be non-zero.
func (b *Bridge) WithdrawGovernanceTo(ctx context.Context, caller, receiver wire.Address, amount, value *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.withdrawGovernanceLocked(ctx, caller, receiver, amount, value)
}

func (b *Bridge) withdrawGovernanceLocked(ctx context.Context, caller, receiver wire.Address, amount, value *uint256.Int) error {
	if err := b.withdrawGates(receiver, amount); err != nil {
		return err
	}
	if value == nil || value.Lt(amount) {
		return common.ErrInsufficientValue
	}
	fee := new(uint256.Int).Sub(value, amount)
	if fee.IsZero() {
		return common.ErrNoFeeAttached
	}

	snap := b.ledger.Snapshot()

	if err := b.ledger.TransferNative(caller, b.self, value); err != nil {
		b.ledger.RevertTo(snap)
		return fmt.Errorf("failed to collect attached value: %w", err)
	}
	if err := b.sendWithdraw(ctx, caller, b.config.GovernanceToken, receiver, amount, fee); err != nil {
		b.ledger.RevertTo(snap)
		return err
	}

	b.ledger.Release(snap)
	withdrawalsTotal.WithLabelValues(common.AssetGovernance.String()).Inc()
	b.logger.Info("governance withdrawal accepted",
		zap.Stringer("sender", caller),
		zap.Stringer("receiver", receiver),
		zap.Stringer("amount", amount),
		zap.Stringer("fee", fee))
	b.reporter.ReportEvent(events.GovernanceWithdrawn{
		Side:     events.SideChild,
		Sender:   caller,
		Receiver: receiver,
		Amount:   new(uint256.Int).Set(amount),
		Fee:      fee,
	})
	return nil
}

// WithdrawWrappedNative unwraps amount of the wrapped-native token and moves
// the underlying value back to the caller's own root-side account.
func (b *Bridge) WithdrawWrappedNative(ctx context.Context, caller wire.Address, amount, value *uint256.Int) error {
	return b.WithdrawWrappedNativeTo(ctx, caller, caller, amount, value)
}

// WithdrawWrappedNativeTo pulls the wrapped token from the caller, unwraps it
// into custody, and proceeds as a governance withdrawal. The entire attached
// value is the message fee.
func (b *Bridge) WithdrawWrappedNativeTo(ctx context.Context, caller, receiver wire.Address, amount, value *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.withdrawGates(receiver, amount); err != nil {
		return err
	}
	if value == nil || value.IsZero() {
		return common.ErrNoFeeAttached
	}

	snap := b.ledger.Snapshot()

	abort := func(err error) error {
		b.ledger.RevertTo(snap)
		return err
	}

	if err := b.ledger.TransferNative(caller, b.self, value); err != nil {
		return abort(fmt.Errorf("failed to collect attached value: %w", err))
	}

	// Unwrapping must deliver exactly the declared amount of native value
	// into custody; anything else and the root would release more than the
	// child actually holds.
	before := b.ledger.NativeBalanceOf(b.self)
	if err := b.ledger.Transfer(b.config.WrappedNative, caller, b.self, amount); err != nil {
		return abort(fmt.Errorf("%w: %v", common.ErrTransferFailed, err))
	}
	if err := b.ledger.Unwrap(b.config.WrappedNative, b.self, amount); err != nil {
		return abort(fmt.Errorf("%w: %v", common.ErrTransferFailed, err))
	}
	delta := new(uint256.Int).Sub(b.ledger.NativeBalanceOf(b.self), before)
	if !delta.Eq(amount) {
		return abort(fmt.Errorf("%w: unwrap credited %s, expected %s",
			common.ErrBalanceInvariantViolated, delta, amount))
	}

	if err := b.sendWithdraw(ctx, caller, b.config.GovernanceToken, receiver, amount, value); err != nil {
		return abort(err)
	}

	b.ledger.Release(snap)
	withdrawalsTotal.WithLabelValues("wrapped_native").Inc()
	b.logger.Info("wrapped native withdrawal accepted",
		zap.Stringer("sender", caller),
		zap.Stringer("receiver", receiver),
		zap.Stringer("amount", amount),
		zap.Stringer("fee", value))
	b.reporter.ReportEvent(events.WrappedNativeWithdrawn{
		Side:     events.SideChild,
		Sender:   caller,
		Receiver: receiver,
		Amount:   new(uint256.Int).Set(amount),
		Fee:      new(uint256.Int).Set(value),
	})
	return nil
}

// WithdrawNativeAsset burns amount of the root-native representation and
// moves the underlying value back to the caller's own root-side account.
func (b *Bridge) WithdrawNativeAsset(ctx context.Context, caller wire.Address, amount, value *uint256.Int) error {
	return b.WithdrawNativeAssetTo(ctx, caller, caller, amount, value)
}

// WithdrawNativeAssetTo burns the caller's representation balance and emits
// a WITHDRAW carrying the native sentinel. The entire attached value is the
// message fee.
func (b *Bridge) WithdrawNativeAssetTo(ctx context.Context, caller, receiver wire.Address, amount, value *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.withdrawNativeLocked(ctx, caller, receiver, amount, value)
}

func (b *Bridge) withdrawNativeLocked(ctx context.Context, caller, receiver wire.Address, amount, value *uint256.Int) error {
	if err := b.withdrawGates(receiver, amount); err != nil {
		return err
	}
	if value == nil || value.IsZero() {
		return common.ErrNoFeeAttached
	}

	snap := b.ledger.Snapshot()

	if err := b.ledger.TransferNative(caller, b.self, value); err != nil {
		b.ledger.RevertTo(snap)
		return fmt.Errorf("failed to collect attached value: %w", err)
	}
	if err := b.ledger.Burn(b.config.NativeAssetRepresentation, b.self, caller, amount); err != nil {
		b.ledger.RevertTo(snap)
		return fmt.Errorf("%w: %v", common.ErrBurnFailed, err)
	}
	if err := b.sendWithdraw(ctx, caller, b.config.NativeAssetAlias, receiver, amount, value); err != nil {
		b.ledger.RevertTo(snap)
		return err
	}

	b.ledger.Release(snap)
	withdrawalsTotal.WithLabelValues(common.AssetNative.String()).Inc()
	b.logger.Info("native asset withdrawal accepted",
		zap.Stringer("sender", caller),
		zap.Stringer("receiver", receiver),
		zap.Stringer("amount", amount),
		zap.Stringer("fee", value))
	b.reporter.ReportEvent(events.NativeWithdrawn{
		Side:     events.SideChild,
		Sender:   caller,
		Receiver: receiver,
		Amount:   new(uint256.Int).Set(amount),
		Fee:      new(uint256.Int).Set(value),
	})
	return nil
}

// Withdraw burns amount of an ordinary representation and moves the origin
// asset back to the caller's own root-side account.
func (b *Bridge) Withdraw(ctx context.Context, caller, childToken wire.Address, amount, value *uint256.Int) error {
	return b.WithdrawTo(ctx, caller, childToken, caller, amount, value)
}

// WithdrawTo burns the caller's balance of childToken and emits a WITHDRAW
// releasing the recorded origin asset to receiver on the root. The entire
// attached value is the message fee. The native-asset representation routes
// to its dedicated flow.
func (b *Bridge) WithdrawTo(ctx context.Context, caller, childToken, receiver wire.Address, amount, value *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if childToken.IsZero() {
		return fmt.Errorf("%w: token", common.ErrZeroAddress)
	}
	if childToken == b.config.NativeAssetRepresentation {
		return b.withdrawNativeLocked(ctx, caller, receiver, amount, value)
	}

	if err := b.withdrawGates(receiver, amount); err != nil {
		return err
	}
	if value == nil || value.IsZero() {
		return common.ErrNoFeeAttached
	}

	if !b.ledger.HasCode(childToken) {
		return fmt.Errorf("%w: %s", common.ErrEmptyTokenContract, childToken)
	}
	owner, err := b.ledger.Owner(childToken)
	if err != nil {
		return fmt.Errorf("failed to read token owner: %w", err)
	}
	if owner != b.self {
		return fmt.Errorf("%w: %s is owned by %s", common.ErrIncorrectBridgeOwner, childToken, owner)
	}
	origin, err := b.ledger.RootMapping(childToken)
	if err != nil {
		return fmt.Errorf("failed to read root mapping: %w", err)
	}
	if local, mapped := b.registry.Lookup(origin); !mapped || local != childToken {
		return fmt.Errorf("%w: %s", common.ErrNotMapped, childToken)
	}

	snap := b.ledger.Snapshot()

	if err := b.ledger.TransferNative(caller, b.self, value); err != nil {
		b.ledger.RevertTo(snap)
		return fmt.Errorf("failed to collect attached value: %w", err)
	}
	if err := b.ledger.Burn(childToken, b.self, caller, amount); err != nil {
		b.ledger.RevertTo(snap)
		return fmt.Errorf("%w: %v", common.ErrBurnFailed, err)
	}
	if err := b.sendWithdraw(ctx, caller, origin, receiver, amount, value); err != nil {
		b.ledger.RevertTo(snap)
		return err
	}

	b.ledger.Release(snap)
	withdrawalsTotal.WithLabelValues(common.AssetToken.String()).Inc()
	b.logger.Info("token withdrawal accepted",
		zap.Stringer("token", childToken),
		zap.Stringer("origin", origin),
		zap.Stringer("sender", caller),
		zap.Stringer("receiver", receiver),
		zap.Stringer("amount", amount))
	b.reporter.ReportEvent(events.TokenWithdrawn{
		Side:        events.SideChild,
		OriginToken: origin,
		LocalToken:  childToken,
		Sender:      caller,
		Receiver:    receiver,
		Amount:      new(uint256.Int).Set(amount),
		Fee:         new(uint256.Int).Set(value),
	})
	return nil
}

// withdrawGates holds the checks every withdraw variant shares.
func (b *Bridge) withdrawGates(receiver wire.Address, amount *uint256.Int) error {
	if !b.initialized {
		return common.ErrNotInitialized
	}
	if b.paused {
		return common.ErrBridgePaused
	}
	if receiver.IsZero() {
		return fmt.Errorf("%w: receiver", common.ErrZeroAddress)
	}
	if amount == nil || amount.IsZero() {
		return common.ErrZeroAmount
	}
	return nil
}

func (b *Bridge) sendWithdraw(ctx context.Context, caller, originToken, receiver wire.Address, amount, fee *uint256.Int) error {
	msg := &wire.Withdraw{
		OriginToken: originToken,
		Sender:      caller,
		Receiver:    receiver,
		Amount:      amount,
	}
	payload, err := msg.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize withdraw: %w", err)
	}
	if err := b.sender.SendMessage(ctx, payload, caller, fee); err != nil {
		return fmt.Errorf("failed to send withdraw: %w", err)
	}
	return nil
}
