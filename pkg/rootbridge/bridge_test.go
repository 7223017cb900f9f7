package rootbridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/ledger"
	"github.com/causewayprotocol/causeway/pkg/registry"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

var (
	bridgeAddr        = wire.Address{31: 0xb0}
	ownerAddr         = wire.Address{31: 0x0a}
	adaptorAddr       = wire.Address{31: 0xad}
	counterpartBridge = wire.Address{31: 0xcb}
	counterpartAdapt  = wire.Address{31: 0xca}
	templateAddr      = wire.Address{31: 0x0e}
	govToken          = wire.Address{31: 0x60}
	nativeAlias       = wire.Address{31: 0x1e}
	nativeRep         = wire.Address{31: 0x7e}
	wrappedNative     = wire.Address{31: 0x3e}
	tokenOwner        = wire.Address{31: 0x99}
	tokenA            = wire.Address{31: 0xaa}
	alice             = wire.Address{31: 0x01}
	bob               = wire.Address{31: 0x02}
	carol             = wire.Address{31: 0x03}
)

type sentMessage struct {
	payload []byte
	caller  wire.Address
	fee     *uint256.Int
}

// recordingSender captures outbound messages instead of queueing them.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *recordingSender) SendMessage(_ context.Context, payload []byte, caller wire.Address, fee *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	msg := sentMessage{payload: append([]byte(nil), payload...), caller: caller}
	if fee != nil {
		msg.fee = fee.Clone()
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type testEnv struct {
	ledger   *ledger.Ledger
	registry *registry.Registry
	reporter *events.Reporter
	sender   *recordingSender
	bridge   *Bridge
	cfg      common.BridgeConfig
}

func testConfig() common.BridgeConfig {
	return common.BridgeConfig{
		Adaptor:                   adaptorAddr,
		CounterpartBridge:         counterpartBridge,
		CounterpartAdaptor:        counterpartAdapt,
		TokenTemplate:             templateAddr,
		GovernanceToken:           govToken,
		NativeAssetAlias:          nativeAlias,
		NativeAssetRepresentation: nativeRep,
		WrappedNative:             wrappedNative,
	}
}

func newTestBridge(t *testing.T) *testEnv {
	t.Helper()

	l := ledger.New(zap.NewNop(), "root")
	reg, err := registry.New(zap.NewNop(), "root", counterpartBridge, templateAddr, nil)
	require.NoError(t, err)
	rep := events.NewReporter(zap.NewNop())

	require.NoError(t, l.CreateToken(govToken,
		ledger.TokenMeta{Name: "Causeway", Symbol: "CWY", Decimals: 18}, tokenOwner, wire.ZeroAddress))
	require.NoError(t, l.CreateToken(tokenA,
		ledger.TokenMeta{Name: "Token A", Symbol: "TKA", Decimals: 18}, tokenOwner, wire.ZeroAddress))
	require.NoError(t, l.Mint(govToken, tokenOwner, alice, uint256.NewInt(1_000_000)))
	require.NoError(t, l.Mint(tokenA, tokenOwner, alice, uint256.NewInt(1_000_000)))
	l.CreditNative(alice, uint256.NewInt(1_000_000))

	sender := &recordingSender{}
	b := New(zap.NewNop(), l, reg, rep, bridgeAddr, ownerAddr)
	cfg := testConfig()
	require.NoError(t, b.Initialize(cfg, sender))

	return &testEnv{ledger: l, registry: reg, reporter: rep, sender: sender, bridge: b, cfg: cfg}
}

func drainEvents(sub *events.ActiveSubscription) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-sub.Channels.EventC:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func tokenBalance(t *testing.T, l *ledger.Ledger, token, account wire.Address) *uint256.Int {
	t.Helper()
	bal, err := l.BalanceOf(token, account)
	require.NoError(t, err)
	return bal
}

func TestInitializeOnce(t *testing.T) {
	env := newTestBridge(t)
	err := env.bridge.Initialize(env.cfg, env.sender)
	require.ErrorIs(t, err, common.ErrAlreadyInitialized)
}

func TestOperationsRequireInitialize(t *testing.T) {
	l := ledger.New(zap.NewNop(), "root")
	reg, err := registry.New(zap.NewNop(), "root", counterpartBridge, templateAddr, nil)
	require.NoError(t, err)
	b := New(zap.NewNop(), l, reg, events.NewReporter(zap.NewNop()), bridgeAddr, ownerAddr)

	_, err = b.MapToken(context.Background(), alice, tokenA, uint256.NewInt(1))
	require.ErrorIs(t, err, common.ErrNotInitialized)

	err = b.Deposit(context.Background(), alice, tokenA, uint256.NewInt(1), uint256.NewInt(1))
	require.ErrorIs(t, err, common.ErrNotInitialized)

	err = b.OnMessageReceive(adaptorAddr, counterpartBridge, []byte("payload"))
	require.ErrorIs(t, err, common.ErrNotInitialized)
}

func TestInitializeValidation(t *testing.T) {
	l := ledger.New(zap.NewNop(), "root")
	reg, err := registry.New(zap.NewNop(), "root", counterpartBridge, templateAddr, nil)
	require.NoError(t, err)
	b := New(zap.NewNop(), l, reg, events.NewReporter(zap.NewNop()), bridgeAddr, ownerAddr)

	cfg := testConfig()
	cfg.Adaptor = wire.ZeroAddress
	require.ErrorIs(t, b.Initialize(cfg, &recordingSender{}), common.ErrZeroAddress)

	require.ErrorIs(t, b.Initialize(testConfig(), nil), common.ErrZeroAddress)

	// The governance token contract does not exist on this ledger.
	require.ErrorIs(t, b.Initialize(testConfig(), &recordingSender{}), common.ErrEmptyTokenContract)
}

func TestMapToken(t *testing.T) {
	env := newTestBridge(t)
	sub := env.reporter.Subscribe()
	defer env.reporter.Unsubscribe(sub.ClientId)

	local, err := env.bridge.MapToken(context.Background(), alice, tokenA, uint256.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, env.registry.PredictLocalAddress(tokenA), local)

	got, mapped := env.registry.Lookup(tokenA)
	require.True(t, mapped)
	assert.Equal(t, local, got)

	sent := env.sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, alice, sent[0].caller)
	assert.Equal(t, uint256.NewInt(100), sent[0].fee)

	msg, err := wire.Parse(sent[0].payload)
	require.NoError(t, err)
	mapMsg, ok := msg.(*wire.MapToken)
	require.True(t, ok)
	assert.Equal(t, tokenA, mapMsg.OriginToken)
	assert.Equal(t, "Token A", mapMsg.Name)
	assert.Equal(t, "TKA", mapMsg.Symbol)
	assert.Equal(t, uint8(18), mapMsg.Decimals)

	// The attached value moved from the caller to the controller.
	assert.Equal(t, uint256.NewInt(999_900), env.ledger.NativeBalanceOf(alice))
	assert.Equal(t, uint256.NewInt(100), env.ledger.NativeBalanceOf(bridgeAddr))

	evs := drainEvents(sub)
	require.Len(t, evs, 1)
	created, ok := evs[0].(events.MappingCreated)
	require.True(t, ok)
	assert.Equal(t, events.SideRoot, created.Side)
	assert.Equal(t, tokenA, created.OriginToken)
	assert.Equal(t, local, created.LocalToken)
	assert.Equal(t, "TKA", created.Symbol)
}

func TestMapTokenRejections(t *testing.T) {
	env := newTestBridge(t)
	_, err := env.bridge.MapToken(context.Background(), alice, tokenA, uint256.NewInt(1))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token wire.Address
		value *uint256.Int
		want  error
	}{
		{"zero token", wire.ZeroAddress, uint256.NewInt(1), common.ErrZeroAddress},
		{"governance token", govToken, uint256.NewInt(1), common.ErrCantMapGovernanceToken},
		{"native alias", nativeAlias, uint256.NewInt(1), common.ErrCantMapNativeAsset},
		{"already mapped", tokenA, uint256.NewInt(1), common.ErrAlreadyMapped},
		{"no fee", wire.Address{31: 0xab}, uint256.NewInt(0), common.ErrNoFeeAttached},
		{"nil fee", wire.Address{31: 0xab}, nil, common.ErrNoFeeAttached},
		{"no contract", wire.Address{31: 0xdd}, uint256.NewInt(1), common.ErrEmptyTokenContract},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.bridge.MapToken(context.Background(), alice, tc.token, tc.value)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMapTokenSendFailureRollsBack(t *testing.T) {
	env := newTestBridge(t)
	env.sender.err = errors.New("adaptor down")

	_, err := env.bridge.MapToken(context.Background(), alice, tokenA, uint256.NewInt(100))
	require.ErrorContains(t, err, "adaptor down")

	_, mapped := env.registry.Lookup(tokenA)
	assert.False(t, mapped)
	assert.Equal(t, uint256.NewInt(1_000_000), env.ledger.NativeBalanceOf(alice))
	assert.True(t, env.ledger.NativeBalanceOf(bridgeAddr).IsZero())
}

func TestDepositAutoMaps(t *testing.T) {
	env := newTestBridge(t)
	sub := env.reporter.Subscribe()
	defer env.reporter.Unsubscribe(sub.ClientId)

	err := env.bridge.DepositTo(context.Background(), alice, tokenA, bob, uint256.NewInt(500), uint256.NewInt(100))
	require.NoError(t, err)

	// One MAP_TOKEN followed by one DEPOSIT; the fee rides on the mapping.
	sent := env.sender.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, uint256.NewInt(100), sent[0].fee)
	assert.True(t, sent[1].fee.IsZero())

	first, err := wire.Parse(sent[0].payload)
	require.NoError(t, err)
	require.IsType(t, &wire.MapToken{}, first)

	second, err := wire.Parse(sent[1].payload)
	require.NoError(t, err)
	dep, ok := second.(*wire.Deposit)
	require.True(t, ok)
	assert.Equal(t, tokenA, dep.OriginToken)
	assert.Equal(t, alice, dep.Sender)
	assert.Equal(t, bob, dep.Receiver)
	assert.Equal(t, uint256.NewInt(500), dep.Amount)

	assert.Equal(t, 1, env.registry.Count())
	assert.Equal(t, uint256.NewInt(500), tokenBalance(t, env.ledger, tokenA, bridgeAddr))
	assert.Equal(t, uint256.NewInt(999_500), tokenBalance(t, env.ledger, tokenA, alice))
	assert.Equal(t, uint256.NewInt(999_900), env.ledger.NativeBalanceOf(alice))

	evs := drainEvents(sub)
	require.Len(t, evs, 2)
	require.IsType(t, events.MappingCreated{}, evs[0])
	deposited, ok := evs[1].(events.TokenDeposited)
	require.True(t, ok)
	assert.Equal(t, events.SideRoot, deposited.Side)
	assert.Equal(t, uint256.NewInt(500), deposited.Amount)
}

func TestDepositMappedToken(t *testing.T) {
	env := newTestBridge(t)
	_, err := env.bridge.MapToken(context.Background(), alice, tokenA, uint256.NewInt(100))
	require.NoError(t, err)

	err = env.bridge.Deposit(context.Background(), alice, tokenA, uint256.NewInt(500), uint256.NewInt(7))
	require.NoError(t, err)

	sent := env.sender.messages()
	require.Len(t, sent, 2) // the earlier MAP_TOKEN plus this DEPOSIT
	assert.Equal(t, uint256.NewInt(7), sent[1].fee)

	msg, err := wire.Parse(sent[1].payload)
	require.NoError(t, err)
	dep, ok := msg.(*wire.Deposit)
	require.True(t, ok)
	assert.Equal(t, alice, dep.Receiver)
	assert.Equal(t, uint256.NewInt(500), tokenBalance(t, env.ledger, tokenA, bridgeAddr))
}

func TestDepositGovernance(t *testing.T) {
	env := newTestBridge(t)

	err := env.bridge.DepositTo(context.Background(), alice, govToken, bob, uint256.NewInt(500), uint256.NewInt(3))
	require.NoError(t, err)

	sent := env.sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, uint256.NewInt(3), sent[0].fee)

	msg, err := wire.Parse(sent[0].payload)
	require.NoError(t, err)
	dep, ok := msg.(*wire.Deposit)
	require.True(t, ok)
	assert.Equal(t, govToken, dep.OriginToken)

	assert.Equal(t, uint256.NewInt(500), tokenBalance(t, env.ledger, govToken, bridgeAddr))
	assert.Equal(t, 0, env.registry.Count())
}

func TestDepositRejections(t *testing.T) {
	env := newTestBridge(t)

	tests := []struct {
		name     string
		token    wire.Address
		receiver wire.Address
		amount   *uint256.Int
		value    *uint256.Int
		want     error
	}{
		{"zero token", wire.ZeroAddress, bob, uint256.NewInt(1), uint256.NewInt(1), common.ErrZeroAddress},
		{"zero receiver", tokenA, wire.ZeroAddress, uint256.NewInt(1), uint256.NewInt(1), common.ErrZeroAddress},
		{"zero amount", tokenA, bob, uint256.NewInt(0), uint256.NewInt(1), common.ErrZeroAmount},
		{"unmapped without fee", tokenA, bob, uint256.NewInt(1), uint256.NewInt(0), common.ErrNoFeeAttached},
		{"native alias has no contract", nativeAlias, bob, uint256.NewInt(1), uint256.NewInt(1), common.ErrTransferFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := env.bridge.DepositTo(context.Background(), alice, tc.token, tc.receiver, tc.amount, tc.value)
			require.ErrorIs(t, err, tc.want)
		})
	}

	assert.Empty(t, env.sender.messages())
	assert.Equal(t, uint256.NewInt(1_000_000), env.ledger.NativeBalanceOf(alice))
}

func TestDepositTaxTokenRollsBack(t *testing.T) {
	env := newTestBridge(t)
	require.NoError(t, env.ledger.SetTransferTax(tokenA, 100)) // 1%

	err := env.bridge.DepositTo(context.Background(), alice, tokenA, bob, uint256.NewInt(1000), uint256.NewInt(50))
	require.ErrorIs(t, err, common.ErrBalanceInvariantViolated)

	// The whole operation unwound: no custody, no mapping, no messages, and
	// the caller's balances are untouched.
	assert.Empty(t, env.sender.messages())
	assert.Equal(t, 0, env.registry.Count())
	assert.True(t, tokenBalance(t, env.ledger, tokenA, bridgeAddr).IsZero())
	assert.Equal(t, uint256.NewInt(1_000_000), tokenBalance(t, env.ledger, tokenA, alice))
	assert.Equal(t, uint256.NewInt(1_000_000), env.ledger.NativeBalanceOf(alice))
}

func TestDepositNative(t *testing.T) {
	env := newTestBridge(t)
	sub := env.reporter.Subscribe()
	defer env.reporter.Unsubscribe(sub.ClientId)

	err := env.bridge.DepositNativeTo(context.Background(), alice, bob, uint256.NewInt(500), uint256.NewInt(600))
	require.NoError(t, err)

	sent := env.sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, uint256.NewInt(100), sent[0].fee)

	msg, err := wire.Parse(sent[0].payload)
	require.NoError(t, err)
	dep, ok := msg.(*wire.Deposit)
	require.True(t, ok)
	assert.Equal(t, nativeAlias, dep.OriginToken)
	assert.Equal(t, uint256.NewInt(500), dep.Amount)

	assert.Equal(t, uint256.NewInt(600), env.ledger.NativeBalanceOf(bridgeAddr))
	assert.Equal(t, uint256.NewInt(999_400), env.ledger.NativeBalanceOf(alice))

	evs := drainEvents(sub)
	require.Len(t, evs, 1)
	require.IsType(t, events.NativeDeposited{}, evs[0])
}

func TestDepositNativeRejections(t *testing.T) {
	env := newTestBridge(t)

	tests := []struct {
		name   string
		amount *uint256.Int
		value  *uint256.Int
		want   error
	}{
		{"value below amount", uint256.NewInt(500), uint256.NewInt(499), common.ErrInsufficientValue},
		{"nil value", uint256.NewInt(500), nil, common.ErrInsufficientValue},
		{"zero amount", uint256.NewInt(0), uint256.NewInt(1), common.ErrZeroAmount},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := env.bridge.DepositNativeTo(context.Background(), alice, bob, tc.amount, tc.value)
			require.ErrorIs(t, err, tc.want)
		})
	}

	err := env.bridge.DepositNativeTo(context.Background(), alice, wire.ZeroAddress, uint256.NewInt(1), uint256.NewInt(1))
	require.ErrorIs(t, err, common.ErrZeroAddress)

	// More value than the caller holds.
	err = env.bridge.DepositNativeTo(context.Background(), alice, bob, uint256.NewInt(1), uint256.NewInt(2_000_000))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.True(t, env.ledger.NativeBalanceOf(bridgeAddr).IsZero())
}

func TestOnMessageReceiveGates(t *testing.T) {
	env := newTestBridge(t)

	withdraw := &wire.Withdraw{OriginToken: govToken, Sender: bob, Receiver: alice, Amount: uint256.NewInt(1)}
	payload, err := withdraw.Serialize()
	require.NoError(t, err)

	err = env.bridge.OnMessageReceive(alice, counterpartBridge, payload)
	require.ErrorIs(t, err, common.ErrNotBridgeAdaptor)

	err = env.bridge.OnMessageReceive(adaptorAddr, alice, payload)
	require.ErrorIs(t, err, common.ErrNotAuthorized)

	err = env.bridge.OnMessageReceive(adaptorAddr, counterpartBridge, []byte("short"))
	require.ErrorIs(t, err, wire.ErrMalformedMessage)
}

func TestOnMessageReceiveRejectsNonWithdraw(t *testing.T) {
	env := newTestBridge(t)

	mapMsg := &wire.MapToken{OriginToken: tokenA, Name: "Token A", Symbol: "TKA", Decimals: 18}
	payload, err := mapMsg.Serialize()
	require.NoError(t, err)
	err = env.bridge.OnMessageReceive(adaptorAddr, counterpartBridge, payload)
	require.ErrorIs(t, err, common.ErrUnsupportedAction)

	dep := &wire.Deposit{OriginToken: tokenA, Sender: alice, Receiver: bob, Amount: uint256.NewInt(1)}
	payload, err = dep.Serialize()
	require.NoError(t, err)
	err = env.bridge.OnMessageReceive(adaptorAddr, counterpartBridge, payload)
	require.ErrorIs(t, err, common.ErrUnsupportedAction)
}

func TestWithdrawReleasesTokenCustody(t *testing.T) {
	env := newTestBridge(t)
	require.NoError(t, env.bridge.DepositTo(context.Background(), alice, tokenA, bob, uint256.NewInt(500), uint256.NewInt(100)))

	withdraw := &wire.Withdraw{OriginToken: tokenA, Sender: bob, Receiver: carol, Amount: uint256.NewInt(200)}
	payload, err := withdraw.Serialize()
	require.NoError(t, err)

	require.NoError(t, env.bridge.OnMessageReceive(adaptorAddr, counterpartBridge, payload))

	assert.Equal(t, uint256.NewInt(200), tokenBalance(t, env.ledger, tokenA, carol))
	assert.Equal(t, uint256.NewInt(300), tokenBalance(t, env.ledger, tokenA, bridgeAddr))
}

func TestWithdrawReleasesNativeCustody(t *testing.T) {
	env := newTestBridge(t)
	require.NoError(t, env.bridge.DepositNativeTo(context.Background(), alice, bob, uint256.NewInt(500), uint256.NewInt(600)))

	withdraw := &wire.Withdraw{OriginToken: nativeAlias, Sender: bob, Receiver: carol, Amount: uint256.NewInt(500)}
	payload, err := withdraw.Serialize()
	require.NoError(t, err)

	require.NoError(t, env.bridge.OnMessageReceive(adaptorAddr, counterpartBridge, payload))

	assert.Equal(t, uint256.NewInt(500), env.ledger.NativeBalanceOf(carol))
	assert.Equal(t, uint256.NewInt(100), env.ledger.NativeBalanceOf(bridgeAddr))
}

func TestWithdrawReleasesGovernanceCustody(t *testing.T) {
	env := newTestBridge(t)
	require.NoError(t, env.bridge.DepositTo(context.Background(), alice, govToken, bob, uint256.NewInt(500), uint256.NewInt(3)))

	withdraw := &wire.Withdraw{OriginToken: govToken, Sender: bob, Receiver: carol, Amount: uint256.NewInt(500)}
	payload, err := withdraw.Serialize()
	require.NoError(t, err)

	require.NoError(t, env.bridge.OnMessageReceive(adaptorAddr, counterpartBridge, payload))

	assert.Equal(t, uint256.NewInt(500), tokenBalance(t, env.ledger, govToken, carol))
	assert.True(t, tokenBalance(t, env.ledger, govToken, bridgeAddr).IsZero())
}

func TestWithdrawUnmappedToken(t *testing.T) {
	env := newTestBridge(t)

	withdraw := &wire.Withdraw{OriginToken: tokenA, Sender: bob, Receiver: carol, Amount: uint256.NewInt(1)}
	payload, err := withdraw.Serialize()
	require.NoError(t, err)

	err = env.bridge.OnMessageReceive(adaptorAddr, counterpartBridge, payload)
	require.ErrorIs(t, err, common.ErrNotMapped)
}

func TestWithdrawBeyondCustody(t *testing.T) {
	env := newTestBridge(t)
	require.NoError(t, env.bridge.DepositTo(context.Background(), alice, tokenA, bob, uint256.NewInt(500), uint256.NewInt(100)))

	withdraw := &wire.Withdraw{OriginToken: tokenA, Sender: bob, Receiver: carol, Amount: uint256.NewInt(501)}
	payload, err := withdraw.Serialize()
	require.NoError(t, err)

	err = env.bridge.OnMessageReceive(adaptorAddr, counterpartBridge, payload)
	require.ErrorIs(t, err, common.ErrTransferFailed)
	assert.Equal(t, uint256.NewInt(500), tokenBalance(t, env.ledger, tokenA, bridgeAddr))
}

func TestUpdateAdaptor(t *testing.T) {
	env := newTestBridge(t)
	replacement := &recordingSender{}
	newAdaptor := wire.Address{31: 0xae}

	err := env.bridge.UpdateAdaptor(alice, newAdaptor, replacement)
	require.ErrorIs(t, err, common.ErrNotOwner)

	require.NoError(t, env.bridge.UpdateAdaptor(ownerAddr, newAdaptor, replacement))

	// Outbound traffic now goes through the replacement sender, and inbound
	// calls must come from the new adaptor identity.
	_, err = env.bridge.MapToken(context.Background(), alice, tokenA, uint256.NewInt(1))
	require.NoError(t, err)
	assert.Empty(t, env.sender.messages())
	assert.Len(t, replacement.messages(), 1)

	withdraw := &wire.Withdraw{OriginToken: tokenA, Sender: bob, Receiver: carol, Amount: uint256.NewInt(1)}
	payload, err := withdraw.Serialize()
	require.NoError(t, err)
	err = env.bridge.OnMessageReceive(adaptorAddr, counterpartBridge, payload)
	require.ErrorIs(t, err, common.ErrNotBridgeAdaptor)
}

func TestOwnershipHandshake(t *testing.T) {
	env := newTestBridge(t)

	require.ErrorIs(t, env.bridge.ProposeOwner(alice, bob), common.ErrNotOwner)
	require.ErrorIs(t, env.bridge.ProposeOwner(ownerAddr, wire.ZeroAddress), common.ErrZeroAddress)

	require.ErrorIs(t, env.bridge.AcceptOwnership(bob), common.ErrNotProposedOwner)

	require.NoError(t, env.bridge.ProposeOwner(ownerAddr, bob))
	require.ErrorIs(t, env.bridge.AcceptOwnership(carol), common.ErrNotProposedOwner)
	assert.Equal(t, ownerAddr, env.bridge.Owner())

	require.NoError(t, env.bridge.AcceptOwnership(bob))
	assert.Equal(t, bob, env.bridge.Owner())

	// The previous owner lost its administrative rights.
	err := env.bridge.UpdateAdaptor(ownerAddr, wire.Address{31: 0xae}, &recordingSender{})
	require.ErrorIs(t, err, common.ErrNotOwner)

	// A proposal cannot be accepted twice.
	require.ErrorIs(t, env.bridge.AcceptOwnership(bob), common.ErrNotProposedOwner)
}
