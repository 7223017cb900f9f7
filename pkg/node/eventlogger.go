package node

import (
	"context"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/supervisor"
)

// eventLoggerRunnable drains a reporter subscription into the node log. On a
// devnet this is the primary way to watch the protocol work.
func eventLoggerRunnable(re *events.Reporter) supervisor.Runnable {
	return func(ctx context.Context) error {
		logger := supervisor.Logger(ctx)

		sub := re.Subscribe()
		defer re.Unsubscribe(sub.ClientId)

		supervisor.Signal(ctx, supervisor.SignalHealthy)

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev := <-sub.Channels.EventC:
				logger.Info("lifecycle event",
					zap.String("event", ev.EventName()),
					zap.Any("details", ev))
			case rej := <-sub.Channels.RejectionC:
				logger.Warn("inbound message rejected",
					zap.String("side", string(rej.Side)),
					zap.String("digest", hex.EncodeToString(rej.Digest[:])),
					zap.String("reason", rej.Reason))
			}
		}
	}
}
