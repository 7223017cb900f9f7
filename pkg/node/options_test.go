package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/db"
	"github.com/causewayprotocol/causeway/pkg/devnet"
)

func newBareNode(t *testing.T) *B {
	t.Helper()

	_, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := NewBridgeNode(common.GoTest, devnet.InsecureDeterministicKeyByIndex(devnet.KeyIndexOwner))
	b.initializeBasic(zap.NewNop(), cancel)
	return b
}

func TestApplyOptionsEnforcesDependencies(t *testing.T) {
	b := newBareNode(t)

	// Controllers depend on the database and the ledgers.
	err := b.applyOptions(context.Background(), zap.NewNop(), []*BridgeOption{
		BridgeOptionControllers(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires")
}

func TestApplyOptionsRejectsDuplicates(t *testing.T) {
	b := newBareNode(t)

	err := b.applyOptions(context.Background(), zap.NewNop(), []*BridgeOption{
		BridgeOptionLedgers(),
		BridgeOptionLedgers(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already configured")
}

func TestBridgeOptionLedgers(t *testing.T) {
	b := newBareNode(t)

	err := b.applyOptions(context.Background(), zap.NewNop(), []*BridgeOption{
		BridgeOptionLedgers(),
	})
	require.NoError(t, err)

	// Genesis native balances on both sides.
	for _, account := range devnet.FundedAccounts() {
		assert.Equal(t, devnet.GenesisNativeBalance, b.rootLedger.NativeBalanceOf(account))
		assert.Equal(t, devnet.GenesisNativeBalance, b.childLedger.NativeBalanceOf(account))
	}

	// Root-side contracts with supply, child-side pre-deployments.
	bal, err := b.rootLedger.BalanceOf(devnet.GovernanceToken, devnet.UserAccount(0))
	require.NoError(t, err)
	assert.Equal(t, devnet.GenesisNativeBalance, bal)
	assert.True(t, b.rootLedger.HasCode(devnet.TestToken))
	assert.True(t, b.rootLedger.HasCode(devnet.RootWrappedNative))
	assert.True(t, b.childLedger.HasCode(devnet.NativeAssetRepresentation))
	assert.True(t, b.childLedger.HasCode(devnet.ChildWrappedNative))

	owner, err := b.childLedger.Owner(devnet.NativeAssetRepresentation)
	require.NoError(t, err)
	assert.Equal(t, devnet.ChildBridge, owner)
}

func TestBridgeOptionControllers(t *testing.T) {
	b := newBareNode(t)

	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	err = b.applyOptions(context.Background(), zap.NewNop(), []*BridgeOption{
		BridgeOptionDatabase(database),
		BridgeOptionLedgers(),
		BridgeOptionControllers(),
	})
	require.NoError(t, err)

	require.NotNil(t, b.rootBridge)
	require.NotNil(t, b.childBridge)
	assert.Equal(t, devnet.RootBridge, b.rootBridge.Address())
	assert.Equal(t, devnet.ChildBridge, b.childBridge.Address())
	assert.Equal(t, devnet.Owner, b.rootBridge.Owner())
	assert.False(t, b.childBridge.Paused())

	// The treasury seed moved native currency into the child controller.
	assert.False(t, b.childLedger.NativeBalanceOf(devnet.ChildBridge).IsZero())

	// Both controllers registered as ready.
	assert.True(t, b.ready.Ready())
}

func TestBridgeOptionStatusServer(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		b := newBareNode(t)
		require.NoError(t, BridgeOptionStatusServer("").f(context.Background(), zap.NewNop(), b))
		assert.Empty(t, b.runnables)
	})

	t.Run("enabled", func(t *testing.T) {
		b := newBareNode(t)
		require.NoError(t, BridgeOptionStatusServer("127.0.0.1:0").f(context.Background(), zap.NewNop(), b))
		assert.Contains(t, b.runnables, "status-server")
	})
}
