package adaptor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/db"
	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

type receivedMessage struct {
	caller  wire.Address
	source  wire.Address
	payload []byte
}

// recordingHandler fails the first failUntil calls with err and accepts
// everything afterwards.
type recordingHandler struct {
	mu        sync.Mutex
	received  []receivedMessage
	attempts  int
	failUntil int
	err       error
}

func (h *recordingHandler) OnMessageReceive(caller, source wire.Address, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.attempts++
	if h.err != nil && h.attempts <= h.failUntil {
		return h.err
	}
	h.received = append(h.received, receivedMessage{caller: caller, source: source, payload: payload})
	return nil
}

func (h *recordingHandler) receivedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func (h *recordingHandler) attemptCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attempts
}

func startRelayer(t *testing.T, r *Relayer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = r.Run(ctx) }()
}

func TestRelayerDeliversWithAdaptorIdentity(t *testing.T) {
	in := make(chan *Envelope, 16)
	handler := &recordingHandler{}

	r := NewRelayer(zap.NewNop(), "root-to-child", "child", in, handler, adaptorAddr, nil, nil)
	startRelayer(t, r)

	payload := []byte{0xca, 0xfe}
	in <- &Envelope{ID: "m1", Source: bridgeAddr, Payload: payload}

	require.Eventually(t, func() bool { return handler.receivedCount() == 1 }, time.Second, time.Millisecond)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, adaptorAddr, handler.received[0].caller)
	assert.Equal(t, bridgeAddr, handler.received[0].source)
	assert.Equal(t, payload, handler.received[0].payload)
}

func TestRelayerRedeliversUntilHealed(t *testing.T) {
	in := make(chan *Envelope, 16)
	handler := &recordingHandler{failUntil: 3, err: common.ErrNotMapped}

	r := NewRelayer(zap.NewNop(), "root-to-child", "child", in, handler, adaptorAddr, nil, nil)
	startRelayer(t, r)

	in <- &Envelope{ID: "m1", Source: bridgeAddr, Payload: []byte{0x01}}

	require.Eventually(t, func() bool { return handler.receivedCount() == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, 4, handler.attemptCount())
}

func TestRelayerRejectsPermanentFailure(t *testing.T) {
	store, err := db.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	reporter := events.NewReporter(zap.NewNop())
	sub := reporter.Subscribe()

	in := make(chan *Envelope, 16)
	handler := &recordingHandler{failUntil: 1000, err: common.ErrUnsupportedAction}

	r := NewRelayer(zap.NewNop(), "root-to-child", "child", in, handler, adaptorAddr, store, reporter)
	startRelayer(t, r)

	env := &Envelope{ID: "m1", Source: bridgeAddr, Payload: []byte{0x01, 0x02}}
	in <- env

	var rejection *events.MessageRejected
	select {
	case rejection = <-sub.Channels.RejectionC:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rejection")
	}

	assert.Equal(t, events.SideChild, rejection.Side)
	assert.Equal(t, env.Digest(), rejection.Digest)
	assert.Contains(t, rejection.Reason, "unsupported")

	// A single attempt, no retries for permanent failures.
	assert.Equal(t, 1, handler.attemptCount())

	records, err := store.GetRejections("child")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, env.Payload, records[0].Payload)
}

func TestRelayerGivesUpAfterMaxAttempts(t *testing.T) {
	reporter := events.NewReporter(zap.NewNop())
	sub := reporter.Subscribe()

	in := make(chan *Envelope, 16)
	handler := &recordingHandler{failUntil: 1000, err: common.ErrNotMapped}

	r := NewRelayer(zap.NewNop(), "root-to-child", "child", in, handler, adaptorAddr, nil, reporter)
	startRelayer(t, r)

	in <- &Envelope{ID: "m1", Source: bridgeAddr, Payload: []byte{0x01}}

	select {
	case <-sub.Channels.RejectionC:
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for rejection")
	}

	assert.Equal(t, maxDeliveryAttempts, handler.attemptCount())
	assert.Equal(t, 0, handler.receivedCount())
}

func TestRelayerSuppressesDuplicateDeliveries(t *testing.T) {
	in := make(chan *Envelope, 16)
	handler := &recordingHandler{}

	r := NewRelayer(zap.NewNop(), "root-to-child", "child", in, handler, adaptorAddr, nil, nil)
	startRelayer(t, r)

	env := Envelope{ID: "m1", Source: bridgeAddr, Payload: []byte{0x01}}
	dup := env
	in <- &env
	in <- &dup

	require.Eventually(t, func() bool { return handler.attemptCount() >= 1 }, time.Second, time.Millisecond)

	// Give the duplicate a chance to be (wrongly) delivered.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, handler.receivedCount())
}

func TestRelayerWithoutSuppressionDeliversDuplicates(t *testing.T) {
	in := make(chan *Envelope, 16)
	handler := &recordingHandler{}

	r := NewRelayer(zap.NewNop(), "root-to-child", "child", in, handler, adaptorAddr, nil, nil)
	r.DisableSuppression()
	startRelayer(t, r)

	env := Envelope{ID: "m1", Source: bridgeAddr, Payload: []byte{0x01}}
	dup := env
	in <- &env
	in <- &dup

	require.Eventually(t, func() bool { return handler.receivedCount() == 2 }, time.Second, time.Millisecond)
}

func TestRelayerInjectedDuplicatesAreSuppressed(t *testing.T) {
	in := make(chan *Envelope, 16)
	handler := &recordingHandler{}

	r := NewRelayer(zap.NewNop(), "root-to-child", "child", in, handler, adaptorAddr, nil, nil)
	r.InjectDuplicates(1)
	startRelayer(t, r)

	in <- &Envelope{ID: "m1", Source: bridgeAddr, Payload: []byte{0x01}}

	require.Eventually(t, func() bool { return handler.attemptCount() >= 1 }, time.Second, time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, handler.receivedCount())
}

func TestRelayerSuppressionSurvivesRestart(t *testing.T) {
	store, err := db.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	in := make(chan *Envelope, 16)
	handler := &recordingHandler{}

	first := NewRelayer(zap.NewNop(), "root-to-child", "child", in, handler, adaptorAddr, store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = first.Run(ctx) }()

	env := Envelope{ID: "m1", Source: bridgeAddr, Payload: []byte{0x01}}
	in <- &env
	require.Eventually(t, func() bool { return handler.receivedCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	// A fresh relayer over the same store sees the persisted mark.
	second := NewRelayer(zap.NewNop(), "root-to-child", "child", in, handler, adaptorAddr, store, nil)
	startRelayer(t, second)

	dup := env
	in <- &dup

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, handler.receivedCount())
}
