package rootbridge

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

// OnMessageReceive is the root controller's inbound entry point. Only the
// registered adaptor may call it, and only with messages sourced from the
// counterpart bridge. The root accepts WITHDRAW exclusively; the child is the
// only side that materializes mappings and mints.
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

	action, err := wire.ReadAction(payload)
	if err != nil {
		return err
	}

	switch action {
	case wire.ActionWithdraw:
		msg, err := wire.DecodeWithdraw(payload)
		if err != nil {
			return err
		}
		return b.releaseCustody(msg)
	default:
		return fmt.Errorf("%w: %s", common.ErrUnsupportedAction, action)
	}
}

// releaseCustody pays out an inbound withdrawal from the controller's
// custody account. The child already burned (or custodied) the matching
// value before this message was emitted.
func (b *Bridge) releaseCustody(msg *wire.Withdraw) error {
	if msg.OriginToken.IsZero() {
		return fmt.Errorf("%w: origin token", common.ErrZeroAddress)
	}
	if msg.Receiver.IsZero() {
		return fmt.Errorf("%w: receiver", common.ErrZeroAddress)
	}
	if msg.Amount == nil || msg.Amount.IsZero() {
		return common.ErrZeroAmount
	}

	class := b.config.Classify(msg.OriginToken)
	switch class {
	case common.AssetNative:
		if err := b.ledger.TransferNative(b.self, msg.Receiver, msg.Amount); err != nil {
			return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
		}
		b.reporter.ReportEvent(events.NativeWithdrawn{
			Side:     events.SideRoot,
			Sender:   msg.Sender,
			Receiver: msg.Receiver,
			Amount:   new(uint256.Int).Set(msg.Amount),
		})

	case common.AssetGovernance:
		if err := b.ledger.Transfer(b.config.GovernanceToken, b.self, msg.Receiver, msg.Amount); err != nil {
			return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
		}
		b.reporter.ReportEvent(events.GovernanceWithdrawn{
			Side:     events.SideRoot,
			Sender:   msg.Sender,
			Receiver: msg.Receiver,
			Amount:   new(uint256.Int).Set(msg.Amount),
		})

	default:
		local, mapped := b.registry.Lookup(msg.OriginToken)
		if !mapped {
			return fmt.Errorf("%w: %s", common.ErrNotMapped, msg.OriginToken)
		}
		if err := b.ledger.Transfer(msg.OriginToken, b.self, msg.Receiver, msg.Amount); err != nil {
			return fmt.Errorf("%w: %v", common.ErrTransferFailed, err)
		}
		b.reporter.ReportEvent(events.TokenWithdrawn{
			Side:        events.SideRoot,
			OriginToken: msg.OriginToken,
			LocalToken:  local,
			Sender:      msg.Sender,
			Receiver:    msg.Receiver,
			Amount:      new(uint256.Int).Set(msg.Amount),
		})
	}

	withdrawalsReleasedTotal.WithLabelValues(class.String()).Inc()
	b.trackCustody(msg.OriginToken)
	b.logger.Info("custody released",
		zap.Stringer("origin", msg.OriginToken),
		zap.String("class", class.String()),
		zap.Stringer("receiver", msg.Receiver),
		zap.Stringer("amount", msg.Amount))

	return nil
}
