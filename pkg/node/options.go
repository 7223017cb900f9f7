package node

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/adaptor"
	"github.com/causewayprotocol/causeway/pkg/childbridge"
	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/db"
	"github.com/causewayprotocol/causeway/pkg/devnet"
	"github.com/causewayprotocol/causeway/pkg/ledger"
	"github.com/causewayprotocol/causeway/pkg/registry"
	"github.com/causewayprotocol/causeway/pkg/rootbridge"
	"github.com/causewayprotocol/causeway/pkg/supervisor"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

type BridgeOption struct {
	name         string
	dependencies []string                                     // Array of other option's `name`. These options need to be configured before this option. Dependencies are enforced at runtime.
	f            func(context.Context, *zap.Logger, *B) error // Function that is run by the constructor to initialize this component.
}

// BridgeOptionDatabase configures the main database.
// Dependencies: none
func BridgeOptionDatabase(database *db.Database) *BridgeOption {
	return &BridgeOption{
		name: "db",
		f: func(ctx context.Context, logger *zap.Logger, b *B) error {
			b.db = database
			b.ready.RegisterComponent(common.ReadinessDatabase)
			b.ready.SetReady(common.ReadinessDatabase)
			return nil
		}}
}

// BridgeOptionLedgers creates the two devnet ledgers and applies the genesis
// state: native balances for the well-known accounts, the governance and
// test token contracts on the root side, and the pre-deployed native
// representation on the child side.
// Dependencies: none
func BridgeOptionLedgers() *BridgeOption {
	return &BridgeOption{
		name: "ledgers",
		f: func(ctx context.Context, logger *zap.Logger, b *B) error {
			b.rootLedger = ledger.New(logger, "root")
			b.childLedger = ledger.New(logger, "child")

			ownerFunded := false
			for _, account := range devnet.FundedAccounts() {
				b.rootLedger.CreditNative(account, devnet.GenesisNativeBalance)
				b.childLedger.CreditNative(account, devnet.GenesisNativeBalance)
				if account == b.owner {
					ownerFunded = true
				}
			}
			// A production owner key is not in the devnet account list.
			if !ownerFunded {
				b.rootLedger.CreditNative(b.owner, devnet.GenesisNativeBalance)
				b.childLedger.CreditNative(b.owner, devnet.GenesisNativeBalance)
			}

			if err := b.rootLedger.CreateToken(devnet.GovernanceToken, devnet.GovernanceTokenMeta, b.owner, wire.ZeroAddress); err != nil {
				return err
			}
			if err := b.rootLedger.CreateToken(devnet.TestToken, devnet.TestTokenMeta, b.owner, wire.ZeroAddress); err != nil {
				return err
			}
			if err := b.rootLedger.CreateWrappedNative(devnet.RootWrappedNative, devnet.RootWrappedNativeMeta); err != nil {
				return err
			}
			for _, account := range devnet.FundedAccounts() {
				if err := b.rootLedger.Mint(devnet.GovernanceToken, b.owner, account, devnet.GenesisNativeBalance); err != nil {
					return err
				}
				if err := b.rootLedger.Mint(devnet.TestToken, b.owner, account, devnet.GenesisNativeBalance); err != nil {
					return err
				}
			}

			// The native representation exists before the bridge comes up
			// and is owned by the child controller identity.
			if err := b.childLedger.CreateToken(devnet.NativeAssetRepresentation, devnet.NativeRepresentationMeta, devnet.ChildBridge, devnet.NativeAssetAlias); err != nil {
				return err
			}
			if err := b.childLedger.CreateWrappedNative(devnet.ChildWrappedNative, devnet.ChildWrappedNativeMeta); err != nil {
				return err
			}

			logger.Info("devnet genesis applied",
				zap.Int("funded_accounts", len(devnet.FundedAccounts())),
				zap.Stringer("owner", b.owner))
			return nil
		}}
}

// BridgeOptionControllers builds the registries, both controllers and their
// outbound queues, initializes the controllers and seeds the child treasury.
// Dependencies: db, ledgers
func BridgeOptionControllers() *BridgeOption {
	return &BridgeOption{
		name:         "controllers",
		dependencies: []string{"db", "ledgers"},
		f: func(ctx context.Context, logger *zap.Logger, b *B) error {
			rootCfg := devnet.RootConfig()
			childCfg := devnet.ChildConfig()

			// Representations are deployed by the child controller, so both
			// sides derive predictions from the child controller identity.
			var err error
			b.rootRegistry, err = registry.New(logger, "root", devnet.ChildBridge, rootCfg.TokenTemplate, b.db)
			if err != nil {
				return err
			}
			b.childRegistry, err = registry.New(logger, "child", devnet.ChildBridge, childCfg.TokenTemplate, b.db)
			if err != nil {
				return err
			}

			b.rootBridge = rootbridge.New(logger, b.rootLedger, b.rootRegistry, b.reporter, devnet.RootBridge, b.owner)
			b.childBridge = childbridge.New(logger, b.childLedger, b.childRegistry, b.reporter, devnet.ChildBridge)

			b.rootQueue = adaptor.NewQueue(logger, "root-out", b.rootLedger, rootCfg.Adaptor, devnet.RootBridge, outboundQueueBufferSize)
			b.childQueue = adaptor.NewQueue(logger, "child-out", b.childLedger, childCfg.Adaptor, devnet.ChildBridge, outboundQueueBufferSize)

			if err := b.rootBridge.Initialize(rootCfg, b.rootQueue); err != nil {
				return err
			}
			if err := b.childBridge.Initialize(childCfg, devnet.Roles(), b.childQueue); err != nil {
				return err
			}

			// Governance deposits are paid out of the child treasury; seed
			// it so they do not bounce on a fresh devnet.
			seed := new(uint256.Int).Div(devnet.GenesisNativeBalance, uint256.NewInt(2))
			if err := b.childBridge.TreasuryDeposit(devnet.TreasuryManager, seed); err != nil {
				return err
			}

			b.ready.RegisterComponent(common.ReadinessRootController)
			b.ready.RegisterComponent(common.ReadinessChildController)
			b.ready.SetReady(common.ReadinessRootController)
			b.ready.SetReady(common.ReadinessChildController)
			return nil
		}}
}

// BridgeOptionRelayers wires a relayer to each outbound queue and registers
// both as supervised runnables. duplicateEvery > 0 turns on duplicate
// injection and jitter > 0 delays deliveries by a random amount, both to
// exercise the at-least-once, unordered nature of the channel on a devnet.
// Dependencies: controllers
func BridgeOptionRelayers(duplicateEvery int, jitter time.Duration) *BridgeOption {
	return &BridgeOption{
		name:         "relayers",
		dependencies: []string{"controllers"},
		f: func(ctx context.Context, logger *zap.Logger, b *B) error {
			b.childRelayer = adaptor.NewRelayer(logger, "into-child", "child", b.rootQueue.Messages(), b.childBridge, devnet.ChildAdaptor, b.db, b.reporter)
			b.rootRelayer = adaptor.NewRelayer(logger, "into-root", "root", b.childQueue.Messages(), b.rootBridge, devnet.RootAdaptor, b.db, b.reporter)

			if duplicateEvery > 0 {
				b.childRelayer.InjectDuplicates(duplicateEvery)
				b.rootRelayer.InjectDuplicates(duplicateEvery)
			}
			if jitter > 0 {
				b.childRelayer.SetJitter(jitter)
				b.rootRelayer.SetJitter(jitter)
			}

			b.ready.RegisterComponent(common.ReadinessRootRelayer)
			b.ready.RegisterComponent(common.ReadinessChildRelayer)

			b.runnablesWithScissors["root-relayer"] = func(ctx context.Context) error {
				supervisor.Signal(ctx, supervisor.SignalHealthy)
				b.ready.SetReady(common.ReadinessRootRelayer)
				return b.rootRelayer.Run(ctx)
			}
			b.runnablesWithScissors["child-relayer"] = func(ctx context.Context) error {
				supervisor.Signal(ctx, supervisor.SignalHealthy)
				b.ready.SetReady(common.ReadinessChildRelayer)
				return b.childRelayer.Run(ctx)
			}
			return nil
		}}
}

// BridgeOptionEventLogger subscribes to the lifecycle event stream and
// writes every event and rejection to the log.
// Dependencies: none
func BridgeOptionEventLogger() *BridgeOption {
	return &BridgeOption{
		name: "event-logger",
		f: func(ctx context.Context, logger *zap.Logger, b *B) error {
			b.runnables["event-logger"] = eventLoggerRunnable(b.reporter)
			return nil
		}}
}

// BridgeOptionStatusServer configures the status server, including /readyz
// and /metrics.
// If b.env == common.UnsafeDevNet || b.env == common.GoTest, pprof will be
// enabled under /debug/pprof/.
// Dependencies: none
func BridgeOptionStatusServer(statusAddr string) *BridgeOption {
	return &BridgeOption{
		name: "status-server",
		f: func(_ context.Context, _ *zap.Logger, b *B) error {
			if statusAddr == "" {
				return nil
			}

			// Use custom routing instead of http.DefaultServeMux directly to
			// avoid accidentally exposing packages that register themselves
			// with it by default (like pprof).
			router := mux.NewRouter()

			// pprof server. NOT necessarily safe to expose publicly - only
			// enable it in dev mode to avoid exposing it by accident.
			if b.env == common.UnsafeDevNet || b.env == common.GoTest {
				// Pass requests to http.DefaultServeMux, which pprof
				// automatically registers with as an import side-effect.
				router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
			}

			// Simple endpoint exposing node readiness (safe to expose to untrusted clients)
			router.HandleFunc("/readyz", b.ready.Handler)

			// Prometheus metrics (safe to expose to untrusted clients)
			router.Handle("/metrics", promhttp.Handler())

			server := &http.Server{
				Handler:           router,
				ReadHeaderTimeout: time.Second, // SECURITY defense against Slowloris Attack
				ReadTimeout:       time.Second,
				WriteTimeout:      time.Second,
			}

			b.runnables["status-server"] = func(ctx context.Context) error {
				logger := supervisor.Logger(ctx)
				lis, err := statusListener(statusAddr)
				if err != nil {
					return err
				}
				logger.Info("status server listening", zap.String("status_addr", statusAddr))
				return supervisor.HTTPServer(server, lis, true)(ctx)
			}
			return nil
		}}
}

// BridgeOptionTrafficGenerator periodically drives scripted protocol traffic
// through both controllers, for devnet demos and soak testing.
// Dependencies: controllers, relayers
func BridgeOptionTrafficGenerator(interval time.Duration) *BridgeOption {
	return &BridgeOption{
		name:         "traffic-generator",
		dependencies: []string{"controllers", "relayers"},
		f: func(ctx context.Context, logger *zap.Logger, b *B) error {
			b.runnablesWithScissors["traffic-generator"] = (&trafficGenerator{b: b, interval: interval}).run
			return nil
		}}
}
