// Package runtime handles event propagation between the store and the
// live connections. It orchestrates the system without containing
// business logic or domain rules.
package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain/event"
	"chat-hub/observability"
	"chat-hub/runtime/workers"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Orchestrator owns the event channel the store writes into and the
// supervised workers that drain it.
type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       contract.IRegistry
	stats          *observability.Stats
	permanentSinks []contract.EventSink
	domainEvents   chan event.DomainEvent
	sinkTimeout    time.Duration
	sampleInterval time.Duration
}

func NewOrchestrator(
	log *slog.Logger,
	supervisor *workers.Supervisor,
	registry *Registry,
	stats *observability.Stats,
	bufferSize int,
	sinkTimeout time.Duration,
	sampleInterval time.Duration,
) *Orchestrator {
	return &Orchestrator{
		log:            log,
		supervisor:     supervisor,
		registry:       registry,
		stats:          stats,
		domainEvents:   make(chan event.DomainEvent, bufferSize),
		sinkTimeout:    sinkTimeout,
		sampleInterval: sampleInterval,
	}
}

// Events exposes the channel the store emits into.
func (o *Orchestrator) Events() chan event.DomainEvent {
	return o.domainEvents
}

// Add registers permanent sinks. Must be called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Start registers the workers and blocks until the supervisor returns,
// which happens when ctx is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	fanoutWorker := workers.NewEventFanout(o.log, o.domainEvents, o.registry, o.stats).
		Add(o.permanentSinks...).
		WithSinkTimeout(o.sinkTimeout)
	statsWorker := workers.NewProcessStats(o.log, o.stats).
		WithInterval(o.sampleInterval)

	o.supervisor.Add(fanoutWorker)
	o.supervisor.Add(statsWorker)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown. It cancels the supervision context
// to signal workers to stop.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
