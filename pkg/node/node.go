package node

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/adaptor"
	"github.com/causewayprotocol/causeway/pkg/childbridge"
	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/db"
	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/ledger"
	"github.com/causewayprotocol/causeway/pkg/readiness"
	"github.com/causewayprotocol/causeway/pkg/registry"
	"github.com/causewayprotocol/causeway/pkg/rootbridge"
	"github.com/causewayprotocol/causeway/pkg/supervisor"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

const (
	// outboundQueueBufferSize is the depth of each adaptor queue. A full
	// queue blocks the sending controller, which is fine on a devnet.
	outboundQueueBufferSize = 512
)

// B is the bridge node. It assembles both sides of the devnet bridge pair in
// one process: two ledgers, the root and child controllers, the adaptor
// queues between them and the relayers that drain them.
type B struct {
	// rootCtxCancel is a context.CancelFunc. It MUST be a root context for
	// any context that is passed to any member function of B. It can be used
	// by components to shut down the entire node if they encounter an
	// unrecoverable state.
	rootCtxCancel context.CancelFunc
	env           common.Environment

	// gk is the root controller's owner key. The owner identity is derived
	// from it.
	gk    *ecdsa.PrivateKey
	owner wire.Address

	// components
	db            *db.Database
	reporter      *events.Reporter
	ready         *readiness.Registry
	rootLedger    *ledger.Ledger
	childLedger   *ledger.Ledger
	rootRegistry  *registry.Registry
	childRegistry *registry.Registry
	rootBridge    *rootbridge.Bridge
	childBridge   *childbridge.Bridge

	// rootQueue carries root outbound traffic; the child relayer drains it
	// into the child controller. childQueue and the root relayer are the
	// mirror image.
	rootQueue    *adaptor.Queue
	childQueue   *adaptor.Queue
	rootRelayer  *adaptor.Relayer
	childRelayer *adaptor.Relayer

	// runnables
	runnablesWithScissors map[string]supervisor.Runnable
	runnables             map[string]supervisor.Runnable
}

func NewBridgeNode(env common.Environment, gk *ecdsa.PrivateKey) *B {
	b := B{
		env: env,
		gk:  gk,
	}
	return &b
}

// initializeBasic sets up everything that every bridge node needs before any
// options can be applied.
func (b *B) initializeBasic(logger *zap.Logger, rootCtxCancel context.CancelFunc) {
	b.rootCtxCancel = rootCtxCancel

	owner, err := wire.BytesToAddress(ethcrypto.PubkeyToAddress(b.gk.PublicKey).Bytes())
	if err != nil {
		panic(err)
	}
	b.owner = owner

	b.reporter = events.NewReporter(logger)
	b.ready = readiness.NewRegistry()

	// allocate maps
	b.runnablesWithScissors = make(map[string]supervisor.Runnable)
	b.runnables = make(map[string]supervisor.Runnable)
}

// applyOptions applies `options` to the bridge node.
// Each option must have a unique option.name.
// If an option has `dependencies`, they must be defined before that option.
func (b *B) applyOptions(ctx context.Context, logger *zap.Logger, options []*BridgeOption) error {
	configuredComponents := make(map[string]struct{}) // using `map[string]struct{}` to implement a set here

	for _, option := range options {
		// check that this component has not been configured yet
		if _, ok := configuredComponents[option.name]; ok {
			return fmt.Errorf("component %s is already configured and cannot be configured a second time", option.name)
		}

		// check that all dependencies have been met
		for _, dep := range option.dependencies {
			if _, ok := configuredComponents[dep]; !ok {
				return fmt.Errorf("component %s requires %s to be configured first, check the order of your options", option.name, dep)
			}
		}

		// run the config
		err := option.f(ctx, logger, b)
		if err != nil {
			return fmt.Errorf("error applying option for component %s: %w", option.name, err)
		}

		// mark the component as configured
		configuredComponents[option.name] = struct{}{}
	}

	return nil
}

// Owner returns the root controller owner identity derived from the node
// key.
func (b *B) Owner() wire.Address {
	return b.owner
}

// Reporter exposes the lifecycle event reporter, mainly for tests that want
// to subscribe before driving traffic.
func (b *B) Reporter() *events.Reporter {
	return b.reporter
}

// RootBridge returns the root controller, nil before BridgeOptionControllers
// ran.
func (b *B) RootBridge() *rootbridge.Bridge {
	return b.rootBridge
}

// ChildBridge returns the child controller, nil before
// BridgeOptionControllers ran.
func (b *B) ChildBridge() *childbridge.Bridge {
	return b.childBridge
}

// RootLedger returns the root-side ledger, nil before BridgeOptionLedgers
// ran.
func (b *B) RootLedger() *ledger.Ledger {
	return b.rootLedger
}

// ChildLedger returns the child-side ledger, nil before BridgeOptionLedgers
// ran.
func (b *B) ChildLedger() *ledger.Ledger {
	return b.childLedger
}

func (b *B) Run(rootCtxCancel context.CancelFunc, options ...*BridgeOption) supervisor.Runnable {
	return func(ctx context.Context) error {
		logger := supervisor.Logger(ctx)

		b.initializeBasic(logger, rootCtxCancel)
		if err := b.applyOptions(ctx, logger, options); err != nil {
			logger.Fatal("failed to initialize bridge node", zap.Error(err))
		}
		logger.Info("bridge node initialization done.") // Do not modify this message, node_test.go relies on it.

		// Start the relayers and any other runnable that launches its own
		// goroutines.
		for runnableName, runnable := range b.runnablesWithScissors {
			logger.Info("starting: " + runnableName)
			if err := supervisor.Run(ctx, runnableName, common.WrapWithScissors(runnable, runnableName)); err != nil {
				logger.Fatal("failed to start runnable", zap.String("name", runnableName), zap.Error(err))
			}
		}

		// Start any other runnables
		for name, runnable := range b.runnables {
			logger.Info("starting: " + name)
			if err := supervisor.Run(ctx, name, runnable); err != nil {
				logger.Fatal("failed to start runnable", zap.String("name", name), zap.Error(err))
			}
		}

		logger.Info("started internal services")
		supervisor.Signal(ctx, supervisor.SignalHealthy)

		<-ctx.Done()

		return nil
	}
}
