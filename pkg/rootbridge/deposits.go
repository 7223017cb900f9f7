package rootbridge

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/ledger"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

// MapToken announces originToken to the child side. The token's metadata is
// read from the contract and trusted as-is; the whole attached value is
// forwarded to the adaptor as the message fee. Returns the predicted child
// address of the representation.
func (b *Bridge) MapToken(ctx context.Context, caller, originToken wire.Address, value *uint256.Int) (wire.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return wire.ZeroAddress, common.ErrNotInitialized
	}
	if originToken.IsZero() {
		return wire.ZeroAddress, fmt.Errorf("%w: token", common.ErrZeroAddress)
	}
	switch b.config.Classify(originToken) {
	case common.AssetGovernance:
		return wire.ZeroAddress, common.ErrCantMapGovernanceToken
	case common.AssetNative:
		return wire.ZeroAddress, common.ErrCantMapNativeAsset
	}
	if _, mapped := b.registry.Lookup(originToken); mapped {
		return wire.ZeroAddress, common.ErrAlreadyMapped
	}
	if value == nil || value.IsZero() {
		return wire.ZeroAddress, common.ErrNoFeeAttached
	}
	meta, err := b.tokenMetadata(originToken)
	if err != nil {
		return wire.ZeroAddress, err
	}

	snap := b.ledger.Snapshot()

	if err := b.ledger.TransferNative(caller, b.self, value); err != nil {
		b.ledger.RevertTo(snap)
		return wire.ZeroAddress, fmt.Errorf("failed to collect attached value: %w", err)
	}

	local, err := b.sendMapToken(ctx, caller, originToken, meta, value)
	if err != nil {
		b.ledger.RevertTo(snap)
		b.registry.Unregister(originToken)
		return wire.ZeroAddress, err
	}

	b.ledger.Release(snap)
	mappingsCreatedTotal.Inc()
	b.logger.Info("token mapped",
		zap.Stringer("origin", originToken),
		zap.Stringer("local", local),
		zap.String("symbol", meta.Symbol))
	b.reporter.ReportEvent(events.MappingCreated{
		Side:        events.SideRoot,
		OriginToken: originToken,
		LocalToken:  local,
		Name:        meta.Name,
		Symbol:      meta.Symbol,
		Decimals:    meta.Decimals,
	})

	return local, nil
}

// Deposit moves amount of originToken into custody for the caller's own
// child-side account.
func (b *Bridge) Deposit(ctx context.Context, caller, originToken wire.Address, amount, value *uint256.Int) error {
	return b.DepositTo(ctx, caller, originToken, caller, amount, value)
}

// DepositTo moves amount of originToken into custody and instructs the child
// to credit receiver. An unmapped ordinary token is mapped first out of the
// same call, consuming the attached value as the mapping fee.
func (b *Bridge) DepositTo(ctx context.Context, caller, originToken, receiver wire.Address, amount, value *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if originToken.IsZero() {
		return fmt.Errorf("%w: token", common.ErrZeroAddress)
	}
	if receiver.IsZero() {
		return fmt.Errorf("%w: receiver", common.ErrZeroAddress)
	}
	if amount == nil || amount.IsZero() {
		return common.ErrZeroAmount
	}
	if value == nil {
		value = uint256.NewInt(0)
	}

	class := b.config.Classify(originToken)

	var mapMeta ledger.TokenMeta
	needsMap := false
	if class == common.AssetToken {
		if _, mapped := b.registry.Lookup(originToken); !mapped {
			needsMap = true
			if value.IsZero() {
				return common.ErrNoFeeAttached
			}
			var err error
			mapMeta, err = b.tokenMetadata(originToken)
			if err != nil {
				return err
			}
		}
	}

	snap := b.ledger.Snapshot()

	abort := func(err error) error {
		b.ledger.RevertTo(snap)
		if needsMap {
			b.registry.Unregister(originToken)
		}
		return err
	}

	if !value.IsZero() {
		if err := b.ledger.TransferNative(caller, b.self, value); err != nil {
			return abort(fmt.Errorf("failed to collect attached value: %w", err))
		}
	}

	if err := b.custody(caller, originToken, amount); err != nil {
		return abort(err)
	}

	var local wire.Address
	depositFee := value
	if needsMap {
		// The attached value pays for the MAP_TOKEN message; the deposit
		// itself rides for free.
		depositFee = uint256.NewInt(0)
		var err error
		local, err = b.sendMapToken(ctx, caller, originToken, mapMeta, value)
		if err != nil {
			return abort(err)
		}
	}

	deposit := &wire.Deposit{
		OriginToken: originToken,
		Sender:      caller,
		Receiver:    receiver,
		Amount:      amount,
	}
	payload, err := deposit.Serialize()
	if err != nil {
		return abort(fmt.Errorf("failed to serialize deposit: %w", err))
	}
	if err := b.sender.SendMessage(ctx, payload, caller, depositFee); err != nil {
		return abort(fmt.Errorf("failed to send deposit: %w", err))
	}

	b.ledger.Release(snap)
	b.trackCustody(originToken)

	if needsMap {
		mappingsCreatedTotal.Inc()
		b.reporter.ReportEvent(events.MappingCreated{
			Side:        events.SideRoot,
			OriginToken: originToken,
			LocalToken:  local,
			Name:        mapMeta.Name,
			Symbol:      mapMeta.Symbol,
			Decimals:    mapMeta.Decimals,
		})
	}

	depositsTotal.WithLabelValues(class.String()).Inc()
	b.logger.Info("deposit accepted",
		zap.Stringer("origin", originToken),
		zap.String("class", class.String()),
		zap.Stringer("sender", caller),
		zap.Stringer("receiver", receiver),
		zap.Stringer("amount", amount))

	switch class {
	case common.AssetGovernance:
		b.reporter.ReportEvent(events.GovernanceDeposited{
			Side:     events.SideRoot,
			Sender:   caller,
			Receiver: receiver,
			Amount:   new(uint256.Int).Set(amount),
		})
	default:
		b.reporter.ReportEvent(events.TokenDeposited{
			Side:        events.SideRoot,
			OriginToken: originToken,
			LocalToken:  b.registry.PredictLocalAddress(originToken),
			Sender:      caller,
			Receiver:    receiver,
			Amount:      new(uint256.Int).Set(amount),
		})
	}

	return nil
}

// DepositNative moves amount of the root's native currency into custody for
// the caller's own child-side account.
func (b *Bridge) DepositNative(ctx context.Context, caller wire.Address, amount, value *uint256.Int) error {
	return b.DepositNativeTo(ctx, caller, caller, amount, value)
}

// DepositNativeTo custodies amount out of the attached value and instructs
// the child to credit receiver. The remainder of the attached value is the
// message fee.
func (b *Bridge) DepositNativeTo(ctx context.Context, caller, receiver wire.Address, amount, value *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if receiver.IsZero() {
		return fmt.Errorf("%w: receiver", common.ErrZeroAddress)
	}
	if amount == nil || amount.IsZero() {
		return common.ErrZeroAmount
	}
	if value == nil || value.Lt(amount) {
		return common.ErrInsufficientValue
	}

	fee := new(uint256.Int).Sub(value, amount)

	snap := b.ledger.Snapshot()

	if err := b.ledger.TransferNative(caller, b.self, value); err != nil {
		b.ledger.RevertTo(snap)
		return fmt.Errorf("failed to collect attached value: %w", err)
	}

	deposit := &wire.Deposit{
		OriginToken: b.config.NativeAssetAlias,
		Sender:      caller,
		Receiver:    receiver,
		Amount:      amount,
	}
	payload, err := deposit.Serialize()
	if err != nil {
		b.ledger.RevertTo(snap)
		return fmt.Errorf("failed to serialize deposit: %w", err)
	}
	if err := b.sender.SendMessage(ctx, payload, caller, fee); err != nil {
		b.ledger.RevertTo(snap)
		return fmt.Errorf("failed to send deposit: %w", err)
	}

	b.ledger.Release(snap)
	b.trackCustody(b.config.NativeAssetAlias)

	depositsTotal.WithLabelValues(common.AssetNative.String()).Inc()
	b.logger.Info("native deposit accepted",
		zap.Stringer("sender", caller),
		zap.Stringer("receiver", receiver),
		zap.Stringer("amount", amount),
		zap.Stringer("fee", fee))
	b.reporter.ReportEvent(events.NativeDeposited{
		Side:     events.SideRoot,
		Sender:   caller,
		Receiver: receiver,
		Amount:   new(uint256.Int).Set(amount),
	})

	return nil
}

// tokenMetadata reads name/symbol/decimals from the token contract. The
// values are trusted as-is.
func (b *Bridge) tokenMetadata(originToken wire.Address) (ledger.TokenMeta, error) {
	if !b.ledger.HasCode(originToken) {
		return ledger.TokenMeta{}, fmt.Errorf("%w: %s", common.ErrEmptyTokenContract, originToken)
	}
	meta, err := b.ledger.Meta(originToken)
	if err != nil {
		return ledger.TokenMeta{}, fmt.Errorf("failed to read token metadata: %w", err)
	}
	return meta, nil
}

// custody pulls amount of token from the caller into the controller's
// account and verifies the custodied balance grew by exactly amount. A token
// that delivers any other delta fails the whole operation; silently
// under-crediting custody is how a bridge goes insolvent.
func (b *Bridge) custody(caller, token wire.Address, amount *uint256.Int) error {
	before, err := b.ledger.BalanceOf(token, b.self)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
	}
	if err := b.ledger.Transfer(token, caller, b.self, amount); err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
	}
	after, err := b.ledger.BalanceOf(token, b.self)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
	}

	delta := new(uint256.Int).Sub(after, before)
	if !delta.Eq(amount) {
		return fmt.Errorf("%w: custody of %s grew by %s, expected %s",
			common.ErrBalanceInvariantViolated, token, delta, amount)
	}
	return nil
}

// sendMapToken registers the mapping and emits the MAP_TOKEN message. The
// caller owns rollback: on error it must revert the ledger and unregister.
func (b *Bridge) sendMapToken(ctx context.Context, caller, originToken wire.Address, meta ledger.TokenMeta, fee *uint256.Int) (wire.Address, error) {
	local, err := b.registry.RegisterMapping(originToken, meta)
	if err != nil {
		return wire.ZeroAddress, err
	}

	msg := &wire.MapToken{
		OriginToken: originToken,
		Name:        meta.Name,
		Symbol:      meta.Symbol,
		Decimals:    meta.Decimals,
	}
	payload, err := msg.Serialize()
	if err != nil {
		return wire.ZeroAddress, fmt.Errorf("failed to serialize map token: %w", err)
	}
	if err := b.sender.SendMessage(ctx, payload, caller, fee); err != nil {
		return wire.ZeroAddress, fmt.Errorf("failed to send map token: %w", err)
	}

	return local, nil
}
