package childbridge

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/ledger"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

// OnMessageReceive is the child controller's inbound entry point. Only the
// registered adaptor may call it, and only with messages sourced from the
// counterpart bridge. MAP_TOKEN materializes a representation, DEPOSIT mints
// or pays out; WITHDRAW never travels root-to-child.
func (b *Bridge) OnMessageReceive(caller, source wire.Address, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return common.ErrNotInitialized
	}
	if caller != b.config.Adaptor {
		return common.ErrNotBridgeAdaptor
	}
	if source != b.config.CounterpartBridge {
		return fmt.Errorf("%w: message source %s is not the counterpart bridge", common.ErrNotAuthorized, source)
	}
	if b.paused {
		return common.ErrBridgePaused
	}

	action, err := wire.ReadAction(payload)
	if err != nil {
		return err
	}

	switch action {
	case wire.ActionMapToken:
		msg, err := wire.DecodeMapToken(payload)
		if err != nil {
			return err
		}
		return b.materializeMapping(msg)
	case wire.ActionDeposit:
		msg, err := wire.DecodeDeposit(payload)
		if err != nil {
			return err
		}
		return b.executeDeposit(msg)
	default:
		return fmt.Errorf("%w: %s", common.ErrUnsupportedAction, action)
	}
}

// materializeMapping creates the representation token at its predicted
// address and records the mapping. The sentinel identities can never arrive
// here from an honest root, but a compromised counterpart must still bounce
// off the same classification the root enforces.
func (b *Bridge) materializeMapping(msg *wire.MapToken) error {
	if msg.OriginToken.IsZero() {
		return fmt.Errorf("%w: origin token", common.ErrZeroAddress)
	}
	switch b.config.Classify(msg.OriginToken) {
	case common.AssetGovernance:
		return common.ErrCantMapGovernanceToken
	case common.AssetNative:
		return common.ErrCantMapNativeAsset
	}
	if _, mapped := b.registry.Lookup(msg.OriginToken); mapped {
		return common.ErrAlreadyMapped
	}

	local := b.registry.PredictLocalAddress(msg.OriginToken)
	meta := ledger.TokenMeta{Name: msg.Name, Symbol: msg.Symbol, Decimals: msg.Decimals}

	snap := b.ledger.Snapshot()

	if err := b.ledger.CreateToken(local, meta, b.self, msg.OriginToken); err != nil {
		b.ledger.RevertTo(snap)
		return fmt.Errorf("failed to materialize representation: %w", err)
	}
	if _, err := b.registry.RegisterMapping(msg.OriginToken, meta); err != nil {
		b.ledger.RevertTo(snap)
		return err
	}

	b.ledger.Release(snap)
	mappingsCreatedTotal.Inc()
	b.logger.Info("representation materialized",
		zap.Stringer("origin", msg.OriginToken),
		zap.Stringer("local", local),
		zap.String("symbol", msg.Symbol))
	b.reporter.ReportEvent(events.MappingCreated{
		Side:        events.SideChild,
		OriginToken: msg.OriginToken,
		LocalToken:  local,
		Name:        msg.Name,
		Symbol:      msg.Symbol,
		Decimals:    msg.Decimals,
	})
	return nil
}

// executeDeposit credits the receiver per asset class: native treasury value
// for governance, a mint of the pre-mapped representation for the native
// sentinel, a mint of the mapped representation otherwise.
func (b *Bridge) executeDeposit(msg *wire.Deposit) error {
	if msg.Receiver.IsZero() {
		return fmt.Errorf("%w: receiver", common.ErrZeroAddress)
	}
	if msg.Amount == nil || msg.Amount.IsZero() {
		return common.ErrZeroAmount
	}

	class := b.config.Classify(msg.OriginToken)
	switch class {
	case common.AssetGovernance:
		if err := b.ledger.TransferNative(b.self, msg.Receiver, msg.Amount); err != nil {
			return fmt.Errorf("%w: treasury payout: %v", common.ErrTransferFailed, err)
		}
		b.reporter.ReportEvent(events.GovernanceDeposited{
			Side:     events.SideChild,
			Sender:   msg.Sender,
			Receiver: msg.Receiver,
			Amount:   new(uint256.Int).Set(msg.Amount),
		})

	case common.AssetNative:
		if err := b.ledger.Mint(b.config.NativeAssetRepresentation, b.self, msg.Receiver, msg.Amount); err != nil {
			return fmt.Errorf("%w: %v", common.ErrMintFailed, err)
		}
		b.reporter.ReportEvent(events.NativeDeposited{
			Side:     events.SideChild,
			Sender:   msg.Sender,
			Receiver: msg.Receiver,
			Amount:   new(uint256.Int).Set(msg.Amount),
		})

	default:
		local, mapped := b.registry.Lookup(msg.OriginToken)
		if !mapped {
			return fmt.Errorf("%w: %s", common.ErrNotMapped, msg.OriginToken)
		}
		if err := b.ledger.Mint(local, b.self, msg.Receiver, msg.Amount); err != nil {
			return fmt.Errorf("%w: %v", common.ErrMintFailed, err)
		}
		b.reporter.ReportEvent(events.TokenDeposited{
			Side:        events.SideChild,
			OriginToken: msg.OriginToken,
			LocalToken:  local,
			Sender:      msg.Sender,
			Receiver:    msg.Receiver,
			Amount:      new(uint256.Int).Set(msg.Amount),
		})
	}

	depositsTotal.WithLabelValues(class.String()).Inc()
	b.logger.Info("deposit executed",
		zap.Stringer("origin", msg.OriginToken),
		zap.String("class", class.String()),
		zap.Stringer("receiver", msg.Receiver),
		zap.Stringer("amount", msg.Amount))
	return nil
}
