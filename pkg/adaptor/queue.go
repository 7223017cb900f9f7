package adaptor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/ledger"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

var queuedMessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "causeway_adaptor_messages_queued_total",
		Help: "Total number of messages accepted by an adaptor queue",
	}, []string{"queue"})

// Queue is the sending half of the in-process adaptor. It collects the
// message fee from the owning bridge on the local ledger, stamps the
// envelope with a delivery ID and hands it to the relayer feeding the other
// side.
type Queue struct {
	logger *zap.Logger
	name   string
	ledger *ledger.Ledger

	// self is the adaptor's own account, the fee beneficiary. origin is the
	// bridge controller whose messages this queue carries; it is presented
	// as the verified source on delivery and it pays the fee out of the
	// value attached to the originating call.
	self   wire.Address
	origin wire.Address

	outC chan *Envelope
}

func NewQueue(logger *zap.Logger, name string, l *ledger.Ledger, self, origin wire.Address, capacity int) *Queue {
	return &Queue{
		logger: logger.With(zap.String("queue", name)),
		name:   name,
		ledger: l,
		self:   self,
		origin: origin,
		outC:   make(chan *Envelope, capacity),
	}
}

// SendMessage collects fee from the origin bridge and enqueues the payload
// for delivery. The fee transfer happens on the shared ledger, so a caller
// holding a ledger snapshot can revert it together with its own mutations.
func (q *Queue) SendMessage(ctx context.Context, payload []byte, originalCaller wire.Address, fee *uint256.Int) error {
	if fee == nil {
		fee = uint256.NewInt(0)
	}

	if !fee.IsZero() {
		if err := q.ledger.TransferNative(q.origin, q.self, fee); err != nil {
			return fmt.Errorf("failed to collect message fee: %w", err)
		}
	}

	env := &Envelope{
		ID:      uuid.New().String(),
		Source:  q.origin,
		Caller:  originalCaller,
		Payload: payload,
		Fee:     fee.Clone(),
	}

	select {
	case q.outC <- env:
	case <-ctx.Done():
		return ctx.Err()
	}

	queuedMessagesTotal.WithLabelValues(q.name).Inc()
	q.logger.Debug("queued message",
		zap.String("id", env.ID),
		zap.Stringer("caller", originalCaller),
		zap.String("fee", fee.String()),
		zap.Int("payload_bytes", len(payload)))

	return nil
}

// Messages is the channel the paired relayer consumes.
func (q *Queue) Messages() <-chan *Envelope {
	return q.outC
}
