package causewayd

import (
	"context"
	"fmt"
	_ "net/http/pprof" // #nosec G108 only exposed over the status port in dev mode
	"os"
	"path"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/db"
	"github.com/causewayprotocol/causeway/pkg/devnet"
	"github.com/causewayprotocol/causeway/pkg/node"
	"github.com/causewayprotocol/causeway/pkg/supervisor"

	ipfslog "github.com/ipfs/go-log/v2"
)

var (
	dataDir *string

	statusAddr *string

	bridgeKeyPath *string

	logLevel *string

	unsafeDevMode *bool
	testnetMode   *bool
	nodeName      *string

	relayerDuplicateEvery *int
	relayerJitter         *time.Duration
	trafficInterval       *time.Duration

	configFilePath *string
)

func init() {
	dataDir = NodeCmd.Flags().String("dataDir", "", "Data directory")

	statusAddr = NodeCmd.Flags().String("statusAddr", "[::]:6060", "Listen address for status server (disabled if blank). Use the systemd:// prefix to consume a socket-activation listener.")

	bridgeKeyPath = NodeCmd.Flags().String("bridgeKey", "", "Path to the armored bridge owner key (required outside devnet)")

	logLevel = NodeCmd.Flags().String("logLevel", "info", "Logging level (debug, info, warn, error, dpanic, panic, fatal)")

	unsafeDevMode = NodeCmd.Flags().Bool("unsafeDevMode", false, "Launch node in unsafe, deterministic devnet mode")
	testnetMode = NodeCmd.Flags().Bool("testnetMode", false, "Launch node in testnet mode (loosens validity checks)")
	nodeName = NodeCmd.Flags().String("nodeName", "", "Node name to include in log output (devnet only)")

	relayerDuplicateEvery = NodeCmd.Flags().Int("relayerDuplicateEvery", 0, "Deliver every Nth cross-bridge message twice, 0 to disable (devnet only)")
	relayerJitter = NodeCmd.Flags().Duration("relayerJitter", 0, "Upper bound on the random delivery delay added per message (devnet only)")
	trafficInterval = NodeCmd.Flags().Duration("trafficInterval", 0, "Interval between synthetic bridge transfers, 0 to disable (devnet only)")

	configFilePath = NodeCmd.Flags().String("configFile", "", "Path to a node config file, overriding flag defaults")
}

var (
	rootCtx       context.Context
	rootCtxCancel context.CancelFunc
)

// "Why would anyone do this?" are famous last words.
//
// We already forcibly override keys in dev mode to prevent security
// risks from operator error, but an extra warning won't hurt.
const devwarning = `
        +++++++++++++++++++++++++++++++++++++++++++++++++++
        |   NODE IS RUNNING IN INSECURE DEVELOPMENT MODE  |
        |                                                 |
        |      Do not use --unsafeDevMode in prod.        |
        +++++++++++++++++++++++++++++++++++++++++++++++++++

`

// NodeCmd represents the node command
var NodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the causewayd node",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if *configFilePath != "" {
			return node.InitFileConfig(cmd, node.ConfigOptions{
				FilePath:  *configFilePath,
				EnvPrefix: "CAUSEWAYD",
			})
		}
		return nil
	},
	Run: runNode,
}

func runNode(cmd *cobra.Command, args []string) {
	if *unsafeDevMode {
		fmt.Print(devwarning)
	}

	common.LockMemory()
	common.SetRestrictiveUmask()

	// Refuse to run as root in production mode.
	if !*unsafeDevMode && os.Geteuid() == 0 {
		fmt.Println("can't run as uid 0")
		os.Exit(1)
	}

	// Set up logging. The go-log zap wrapper is compatible with our
	// usage of zap in supervisor, which is nice.
	lvl, err := ipfslog.LevelFromString(*logLevel)
	if err != nil {
		fmt.Println("Invalid log level")
		os.Exit(1)
	}

	logger := zap.New(zapcore.NewCore(
		consoleEncoder{zapcore.NewConsoleEncoder(
			zap.NewDevelopmentEncoderConfig())},
		zapcore.AddSync(zapcore.Lock(os.Stderr)),
		zap.NewAtomicLevelAt(zapcore.Level(lvl))))

	if *unsafeDevMode {
		// Use the hostname as nodeName. For production, we don't want to do this to
		// prevent accidentally leaking sensitive hostnames.
		hostname, err := os.Hostname()
		if err != nil {
			panic(err)
		}
		*nodeName = hostname

		// Put node name into the log for development.
		logger = logger.Named(*nodeName)
	}

	// Redirect ipfs logs to plain zap
	ipfslog.SetPrimaryCore(logger.Core())

	// Override the default go-log config, which uses a magic environment variable.
	ipfslog.SetAllLoggers(lvl)

	if *unsafeDevMode && *testnetMode {
		logger.Fatal("Cannot be in unsafeDevMode and testnetMode at the same time.")
	}

	env := common.MainNet
	switch {
	case *unsafeDevMode:
		env = common.UnsafeDevNet
	case *testnetMode:
		env = common.TestNet
	}

	// Verify flags

	if *dataDir == "" {
		logger.Fatal("Please specify --dataDir")
	}
	if !*unsafeDevMode {
		if *bridgeKeyPath == "" {
			logger.Fatal("Please specify --bridgeKey")
		}
		if *relayerDuplicateEvery != 0 || *relayerJitter != 0 {
			logger.Fatal("Chaos injection flags are only available in unsafe dev mode")
		}
		if *trafficInterval != 0 {
			logger.Fatal("--trafficInterval is only available in unsafe dev mode")
		}
	}

	// In devnet mode, we generate a deterministic bridge owner key and write
	// it to disk, unless an earlier run already did.
	if *unsafeDevMode {
		if *bridgeKeyPath == "" {
			*bridgeKeyPath = path.Join(*dataDir, "bridge.key")
		}

		if _, err := os.Stat(*bridgeKeyPath); os.IsNotExist(err) {
			if err := devnet.GenerateAndStoreOwnerKey(*bridgeKeyPath); err != nil {
				logger.Fatal("failed to generate devnet bridge key", zap.Error(err))
			}
		}
	}

	// Database
	db := db.OpenDb(logger, dataDir)
	defer db.Close()

	// Bridge owner key
	gk, err := common.LoadBridgeKey(*bridgeKeyPath, *unsafeDevMode)
	if err != nil {
		logger.Fatal("failed to load bridge key", zap.Error(err))
	}

	logger.Info("Loaded bridge owner key", zap.String(
		"address", ethcrypto.PubkeyToAddress(gk.PublicKey).String()))

	// Node's main lifecycle context.
	rootCtx, rootCtxCancel = context.WithCancel(context.Background())
	defer rootCtxCancel()

	common.ListenSysExit(logger, rootCtxCancel)

	options := []*node.BridgeOption{
		node.BridgeOptionDatabase(db),
		node.BridgeOptionLedgers(),
		node.BridgeOptionControllers(),
		node.BridgeOptionRelayers(*relayerDuplicateEvery, *relayerJitter),
		node.BridgeOptionEventLogger(),
		node.BridgeOptionStatusServer(*statusAddr),
	}

	if *trafficInterval != 0 {
		options = append(options, node.BridgeOptionTrafficGenerator(*trafficInterval))
	}

	b := node.NewBridgeNode(env, gk)

	// Run supervisor.
	supervisor.New(rootCtx, logger, b.Run(rootCtxCancel, options...),
		// It's safer to crash and restart the process in case we encounter a panic,
		// rather than attempting to reschedule the runnable.
		supervisor.WithPropagatePanic)

	<-rootCtx.Done()
	logger.Info("root context cancelled, exiting...")
}
