package events

import (
	"math/rand"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const maxClientId = 1e6

var droppedEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "causeway_events_dropped_total",
		Help: "Total number of lifecycle events dropped because a subscriber channel was full",
	}, []string{"event"})

type lifecycleEventChannels struct {
	// channel for protocol lifecycle events
	EventC chan Event
	// channel for the inbound-rejection audit trail
	RejectionC chan *MessageRejected
}

type Reporter struct {
	mu     sync.RWMutex
	logger *zap.Logger

	subs map[int]*lifecycleEventChannels
}

type ActiveSubscription struct {
	ClientId int
	Channels *lifecycleEventChannels
}

func NewReporter(logger *zap.Logger) *Reporter {
	return &Reporter{
		logger: logger.Named("events"),
		subs:   map[int]*lifecycleEventChannels{},
	}
}

// getUniqueClientId loops to generate & test integers for existence as key of map. returns an int that is not a key in map.
func (re *Reporter) getUniqueClientId() int {
	clientId := 0
	found := true
	for found {
		clientId = rand.Intn(maxClientId) //#nosec G404 The clientIds don't need to be unpredictable. They just need to be unique.
		_, found = re.subs[clientId]
	}
	return clientId
}

func (re *Reporter) Subscribe() *ActiveSubscription {
	re.mu.Lock()
	defer re.mu.Unlock()

	clientId := re.getUniqueClientId()
	re.logger.Debug("Subscribe for client", zap.Int("clientId", clientId))
	channels := &lifecycleEventChannels{
		EventC:     make(chan Event, 500),
		RejectionC: make(chan *MessageRejected, 100),
	}
	re.subs[clientId] = channels
	sub := &ActiveSubscription{ClientId: clientId, Channels: channels}
	return sub
}

func (re *Reporter) Unsubscribe(clientId int) {
	re.mu.Lock()
	defer re.mu.Unlock()

	re.logger.Debug("Unsubscribe for client", zap.Int("clientId", clientId))
	delete(re.subs, clientId)
}

// ReportEvent is invoked by a controller after a state-changing operation
// commits.
func (re *Reporter) ReportEvent(ev Event) {
	re.mu.RLock()
	defer re.mu.RUnlock()

	for client, sub := range re.subs {
		select {
		case sub.EventC <- ev:
			re.logger.Debug("published event to client",
				zap.String("event", ev.EventName()), zap.Int("client", client))
		default:
			droppedEventsTotal.WithLabelValues(ev.EventName()).Inc()
			re.logger.Error("channel overflow when attempting to publish event to client",
				zap.String("event", ev.EventName()), zap.Int("client", client))
		}
	}
}

// ReportRejection is invoked when an inbound message is refused.
func (re *Reporter) ReportRejection(rej *MessageRejected) {
	re.mu.RLock()
	defer re.mu.RUnlock()

	for client, sub := range re.subs {
		select {
		case sub.RejectionC <- rej:
			re.logger.Debug("published rejection to client", zap.Int("client", client))
		default:
			droppedEventsTotal.WithLabelValues(rej.EventName()).Inc()
			re.logger.Error("channel overflow when attempting to publish rejection to client",
				zap.Int("client", client))
		}
	}
}
