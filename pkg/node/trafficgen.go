package node

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/devnet"
	"github.com/causewayprotocol/causeway/pkg/supervisor"
)

// trafficGenerator drives a scripted loop of protocol operations through the
// bridge pair. Individual steps are allowed to fail (a withdrawal may run
// before the mapping it needs has been delivered); failures are logged and
// the loop moves on.
type trafficGenerator struct {
	b        *B
	interval time.Duration
}

func (t *trafficGenerator) run(ctx context.Context) error {
	logger := supervisor.Logger(ctx)
	supervisor.Signal(ctx, supervisor.SignalHealthy)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	step := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.step(ctx, step); err != nil {
				logger.Debug("traffic step failed", zap.Int("step", step), zap.Error(err))
			}
			step++
		}
	}
}

func (t *trafficGenerator) step(ctx context.Context, step int) error {
	b := t.b

	fee := uint256.NewInt(100)
	amount := uint256.NewInt(1_000_000)
	half := uint256.NewInt(500_000)

	switch step % 5 {
	case 0:
		// The first deposit carries the implicit mapping; later rounds are
		// plain deposits.
		return b.rootBridge.DepositTo(ctx, devnet.UserAccount(0), devnet.TestToken, devnet.UserAccount(1), amount, fee)
	case 1:
		value := new(uint256.Int).Add(amount, fee)
		return b.rootBridge.DepositNativeTo(ctx, devnet.UserAccount(0), devnet.UserAccount(2), amount, value)
	case 2:
		return b.rootBridge.DepositTo(ctx, devnet.Owner, devnet.GovernanceToken, devnet.UserAccount(1), amount, fee)
	case 3:
		local, ok := b.childRegistry.Lookup(devnet.TestToken)
		if !ok {
			return fmt.Errorf("test token representation not materialized yet")
		}
		return b.childBridge.WithdrawTo(ctx, devnet.UserAccount(1), local, devnet.UserAccount(0), half, fee)
	case 4:
		value := new(uint256.Int).Add(half, fee)
		return b.childBridge.WithdrawGovernanceTo(ctx, devnet.UserAccount(1), devnet.UserAccount(0), half, value)
	}
	return nil
}
