package adaptor

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/db"
	"github.com/causewayprotocol/causeway/pkg/events"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

var (
	deliveredMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_relayer_messages_delivered_total",
			Help: "Total number of messages successfully delivered to a bridge controller",
		}, []string{"relayer"})
	deliveryRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_relayer_delivery_retries_total",
			Help: "Total number of delivery attempts that failed with a retryable error",
		}, []string{"relayer"})
	rejectedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_relayer_messages_rejected_total",
			Help: "Total number of messages the destination controller permanently refused",
		}, []string{"relayer"})
	suppressedDuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "causeway_relayer_duplicates_suppressed_total",
			Help: "Total number of duplicate deliveries suppressed by the digest marks",
		}, []string{"relayer"})
)

const (
	// Retryable failures are redelivered at most this many times before the
	// message is written off as rejected.
	maxDeliveryAttempts = 10

	deliveredCacheSize = 1024
)

// Relayer drains a queue and delivers each envelope to the destination
// controller, presenting the configured adaptor identity as the caller. The
// channel it models is at-least-once and unordered: retries and the optional
// chaos knobs reorder and duplicate traffic, and a digest mark (LRU backed
// by a badger record) is what keeps redeliveries from re-executing side
// effects.
type Relayer struct {
	logger *zap.Logger
	name   string
	side   string

	in      <-chan *Envelope
	handler MessageHandler

	// asCaller is the adaptor identity registered with the destination
	// controller; it is the only caller the controller accepts.
	asCaller wire.Address

	store    *db.Database
	reporter *events.Reporter

	delivered *lru.Cache
	retryC    chan *Envelope
	backoffs  map[string]*backoff.ExponentialBackOff

	suppressDuplicates bool
	duplicateEvery     int
	jitter             time.Duration

	duplicateCounter int
}

// NewRelayer wires a relayer between a queue and a destination handler. side
// names the destination for persistence scoping ("root" or "child"); store
// and reporter may be nil in tests.
func NewRelayer(logger *zap.Logger, name, side string, in <-chan *Envelope, handler MessageHandler, asCaller wire.Address, store *db.Database, reporter *events.Reporter) *Relayer {
	delivered, _ := lru.New(deliveredCacheSize)

	return &Relayer{
		logger:             logger.With(zap.String("relayer", name)),
		name:               name,
		side:               side,
		in:                 in,
		handler:            handler,
		asCaller:           asCaller,
		store:              store,
		reporter:           reporter,
		delivered:          delivered,
		retryC:             make(chan *Envelope, 64),
		backoffs:           make(map[string]*backoff.ExponentialBackOff),
		suppressDuplicates: true,
	}
}

// DisableSuppression turns off duplicate-delivery suppression. Only tests
// use this, to demonstrate what an at-least-once channel does to a
// non-idempotent handler.
func (r *Relayer) DisableSuppression() {
	r.suppressDuplicates = false
}

// InjectDuplicates redelivers every nth envelope a second time. Test knob.
func (r *Relayer) InjectDuplicates(every int) {
	r.duplicateEvery = every
}

// SetJitter delays each delivery by a random duration up to d. Test knob.
func (r *Relayer) SetJitter(d time.Duration) {
	r.jitter = d
}

func (r *Relayer) Run(ctx context.Context) error {
	r.logger.Info("relayer starting", zap.String("side", r.side))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-r.retryC:
			r.deliver(ctx, env)
		case env := <-r.in:
			if r.duplicateEvery > 0 {
				r.duplicateCounter++
				if r.duplicateCounter%r.duplicateEvery == 0 {
					dup := *env
					r.scheduleRedelivery(ctx, &dup, 0)
				}
			}
			r.deliver(ctx, env)
		}
	}
}

func (r *Relayer) deliver(ctx context.Context, env *Envelope) {
	if r.jitter > 0 {
		d := time.Duration(rand.Int63n(int64(r.jitter))) //#nosec G404 no CSPRNG needed here for jitter computation
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return
		}
	}

	digest := env.Digest()

	if r.suppressDuplicates && r.alreadyDelivered(digest) {
		suppressedDuplicatesTotal.WithLabelValues(r.name).Inc()
		r.logger.Debug("suppressing duplicate delivery", zap.String("id", env.ID))
		return
	}

	err := r.handler.OnMessageReceive(r.asCaller, env.Source, env.Payload)
	if err == nil {
		r.markDelivered(digest)
		delete(r.backoffs, env.ID)
		deliveredMessagesTotal.WithLabelValues(r.name).Inc()
		r.logger.Debug("delivered message",
			zap.String("id", env.ID),
			zap.Int("attempt", env.Attempt))
		return
	}

	if isRetryable(err) && env.Attempt+1 < maxDeliveryAttempts {
		env.Attempt++
		deliveryRetriesTotal.WithLabelValues(r.name).Inc()
		r.logger.Warn("delivery failed, will redeliver",
			zap.String("id", env.ID),
			zap.Int("attempt", env.Attempt),
			zap.Error(err))
		r.scheduleRedelivery(ctx, env, r.nextBackoff(env.ID))
		return
	}

	delete(r.backoffs, env.ID)
	r.reject(env, digest, err)
}

// alreadyDelivered consults the in-memory cache first and falls back to the
// persisted mark, so suppression survives a restart when a store is
// attached.
func (r *Relayer) alreadyDelivered(digest [32]byte) bool {
	if r.delivered.Contains(digest) {
		return true
	}
	if r.store != nil {
		delivered, err := r.store.IsDelivered(r.side, digest)
		if err != nil {
			r.logger.Error("failed to read delivery mark", zap.Error(err))
			return false
		}
		return delivered
	}
	return false
}

func (r *Relayer) markDelivered(digest [32]byte) {
	r.delivered.Add(digest, true)
	if r.store != nil {
		if err := r.store.MarkDelivered(r.side, digest, time.Now()); err != nil {
			r.logger.Error("failed to persist delivery mark", zap.Error(err))
		}
	}
}

func (r *Relayer) nextBackoff(id string) time.Duration {
	bo, exists := r.backoffs[id]
	if !exists {
		bo = backoff.NewExponentialBackOff()
		bo.InitialInterval = 5 * time.Millisecond
		bo.MaxInterval = 500 * time.Millisecond
		// MaxElapsedTime 0 caps the backoff at MaxInterval instead of
		// giving up; the attempt counter bounds redelivery.
		bo.MaxElapsedTime = 0
		r.backoffs[id] = bo
	}
	return bo.NextBackOff()
}

func (r *Relayer) scheduleRedelivery(ctx context.Context, env *Envelope, after time.Duration) {
	go func() {
		if after > 0 {
			select {
			case <-time.After(after):
			case <-ctx.Done():
				return
			}
		}
		select {
		case r.retryC <- env:
		case <-ctx.Done():
		}
	}()
}

func (r *Relayer) reject(env *Envelope, digest [32]byte, cause error) {
	rejectedMessagesTotal.WithLabelValues(r.name).Inc()
	r.logger.Warn("message rejected",
		zap.String("id", env.ID),
		zap.Int("attempt", env.Attempt),
		zap.Error(cause))

	if r.store != nil {
		rec := &db.RejectionRecord{
			Timestamp: time.Now(),
			Digest:    digest,
			Reason:    cause.Error(),
			Payload:   env.Payload,
		}
		if err := r.store.StoreRejection(r.side, rec); err != nil {
			r.logger.Error("failed to persist rejection record", zap.Error(err))
		}
	}

	if r.reporter != nil {
		r.reporter.ReportRejection(&events.MessageRejected{
			Side:   events.Side(r.side),
			Digest: digest,
			Reason: cause.Error(),
		})
	}
}

// isRetryable separates transient conditions from permanent refusals.
// Arrival order is not guaranteed, so a DEPOSIT can land before the
// MAP_TOKEN that precedes it; redelivery heals that once the mapping
// exists. A paused bridge likewise recovers. Everything else, notably
// malformed payloads, unknown actions and balance-invariant violations,
// will fail the same way every time.
func isRetryable(err error) bool {
	return errors.Is(err, common.ErrNotMapped) || errors.Is(err, common.ErrBridgePaused)
}
