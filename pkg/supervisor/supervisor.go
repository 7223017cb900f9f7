// Package supervisor keeps long-running goroutines ("runnables") alive. Each
// runnable is registered under a dotted name, receives a named logger and its
// own context, reports liveness via Signal, and is restarted with exponential
// backoff when it returns an error, returns early, or panics.
//
// Supervision is flat: every runnable is tracked individually, and a child
// started with Run lives under the context its parent was invoked with, so a
// dying parent cancels its children and re-registers them on restart.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var restartsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "causeway_supervisor_restarts_total",
		Help: "Total number of times a supervised runnable died and was restarted",
	}, []string{"runnable"})

// Runnable is a function that will be run by the supervisor, and supervised
// the whole time. It can in turn start more runnables via Run. Runnables
// should respect their context and return when it is canceled.
type Runnable func(ctx context.Context) error

// SignalType is a signal sent by a runnable to the supervisor.
type SignalType int

const (
	// SignalHealthy says the runnable came up and is operating correctly.
	// It resets the restart backoff.
	SignalHealthy SignalType = iota

	// SignalDone says the runnable finished its work on purpose. A runnable
	// that signaled done and then returns nil is not restarted.
	SignalDone
)

type nodeState int

const (
	nodeStateNew nodeState = iota
	nodeStateHealthy
	nodeStateDone
)

func (s nodeState) String() string {
	switch s {
	case nodeStateNew:
		return "NEW"
	case nodeStateHealthy:
		return "HEALTHY"
	case nodeStateDone:
		return "DONE"
	}
	return "UNKNOWN"
}

type contextKey string

const nodeKey contextKey = "supervisor/node"

// node tracks one supervised runnable.
type node struct {
	dn       string
	runnable Runnable
	sup      *Supervisor

	// pCtx is the context the node lives under: the supervisor's root
	// context, or the parent runnable's per-iteration context.
	pCtx context.Context
	bo   *backoff.ExponentialBackOff

	mu    sync.Mutex
	state nodeState
}

func (n *node) setState(s nodeState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = s
}

func (n *node) getState() nodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *node) nextBackOff() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bo.NextBackOff()
}

// signal sequences state changes reported by the runnable. Transitions out
// of order are programmer errors.
func (n *node) signal(signal SignalType) {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch signal {
	case SignalHealthy:
		if n.state != nodeStateNew {
			panic(fmt.Errorf("runnable %s signaled healthy in state %s", n.dn, n.state))
		}
		n.state = nodeStateHealthy
		n.bo.Reset()
	case SignalDone:
		if n.state != nodeStateHealthy {
			panic(fmt.Errorf("runnable %s signaled done in state %s", n.dn, n.state))
		}
		n.state = nodeStateDone
		n.bo.Reset()
	}
}

// Supervisor is the root of a set of supervised runnables.
type Supervisor struct {
	logger         *zap.Logger
	propagatePanic bool

	mu    sync.Mutex
	nodes map[string]*node
}

type SupervisorOpt func(*Supervisor)

// WithPropagatePanic makes runnable panics crash the process instead of being
// converted into restarts. Useful in tests.
func WithPropagatePanic(s *Supervisor) {
	s.propagatePanic = true
}

// New creates a new supervisor and immediately starts the given root
// runnable under the name "root". The supervisor winds down when ctx is
// canceled.
func New(ctx context.Context, logger *zap.Logger, rootRunnable Runnable, opts ...SupervisorOpt) *Supervisor {
	s := &Supervisor{
		logger: logger,
		nodes:  map[string]*node{},
	}
	for _, opt := range opts {
		opt(s)
	}
	// Error is impossible here: the map is empty and "root" is a valid name.
	_ = s.schedule(ctx, "root", rootRunnable)
	return s
}

// reNodeName validates a runnable name.
var reNodeName = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Run starts a runnable as a child of the calling runnable. It must be
// called from within a runnable with the context that runnable received.
func Run(ctx context.Context, name string, runnable Runnable) error {
	parent := nodeFromContext(ctx)
	if !reNodeName.MatchString(name) {
		return fmt.Errorf("runnable name %q is invalid", name)
	}
	return parent.sup.schedule(ctx, parent.dn+"."+name, runnable)
}

// RunGroup starts a set of runnables as children of the calling runnable.
func RunGroup(ctx context.Context, runnables map[string]Runnable) error {
	for name, runnable := range runnables {
		if err := Run(ctx, name, runnable); err != nil {
			return err
		}
	}
	return nil
}

// Signal tells the supervisor that the calling runnable has reached the
// given lifecycle point.
func Signal(ctx context.Context, signal SignalType) {
	nodeFromContext(ctx).signal(signal)
}

// Logger returns a logger scoped to the calling runnable's name.
func Logger(ctx context.Context) *zap.Logger {
	n := nodeFromContext(ctx)
	return n.sup.logger.Named(n.dn)
}

func nodeFromContext(ctx context.Context) *node {
	n, ok := ctx.Value(nodeKey).(*node)
	if !ok {
		panic("supervisor function called from outside a runnable")
	}
	return n
}

func (s *Supervisor) schedule(pCtx context.Context, dn string, runnable Runnable) error {
	// To cap restart delays at MaxInterval instead of giving up, set
	// MaxElapsedTime to 0.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0

	n := &node{
		dn:       dn,
		runnable: runnable,
		sup:      s,
		pCtx:     pCtx,
		bo:       bo,
	}

	s.mu.Lock()
	if _, ok := s.nodes[dn]; ok {
		s.mu.Unlock()
		return fmt.Errorf("runnable %q already exists", dn)
	}
	s.nodes[dn] = n
	s.mu.Unlock()

	go s.supervise(n)
	return nil
}

func (s *Supervisor) remove(n *node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nodes[n.dn] == n {
		delete(s.nodes, n.dn)
	}
}

// supervise runs one node's restart loop until the node completes or its
// parent context is canceled.
func (s *Supervisor) supervise(n *node) {
	defer s.remove(n)

	for {
		ctx, cancel := context.WithCancel(context.WithValue(n.pCtx, nodeKey, n))
		err := s.runOnce(ctx, n)
		// Cancel this iteration's context so children started by the
		// runnable exit before a potential restart re-registers them.
		cancel()

		if n.pCtx.Err() != nil {
			s.logger.Info("supervised runnable exiting", zap.String("dn", n.dn), zap.Error(err))
			return
		}
		if err == nil {
			if n.getState() == nodeStateDone {
				s.logger.Info("supervised runnable completed", zap.String("dn", n.dn))
				return
			}
			err = errors.New("returned without signaling done")
		}

		d := n.nextBackOff()
		restartsTotal.WithLabelValues(n.dn).Inc()
		s.logger.Error("supervised runnable died, restarting",
			zap.String("dn", n.dn),
			zap.Error(err),
			zap.Duration("backoff", d))

		select {
		case <-n.pCtx.Done():
			return
		case <-time.After(d):
		}
		n.setState(nodeStateNew)
	}
}

func (s *Supervisor) runOnce(ctx context.Context, n *node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if s.propagatePanic {
				panic(r)
			}
			err = fmt.Errorf("runnable panicked: %v, stack: %s", r, debug.Stack())
		}
	}()
	return n.runnable(ctx)
}
