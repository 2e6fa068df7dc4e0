// Package ingest decouples click tracking from the redirect hot path.
// The redirect handler enqueues a raw capture and returns; background
// workers enrich and persist the click event.
package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"shortlink/internal/domain"
	"shortlink/internal/enrichment"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	DefaultQueueSize = 4096
	DefaultWorkers   = 4

	insertTimeout = 5 * time.Second
)

// Sink is the producer-side contract the resolver depends on.
type Sink interface {
	// Enqueue hands a capture to the pipeline without blocking.
	Enqueue(capture domain.ClickCapture)
}

// Compile-time interface check
var _ Sink = (*Pipeline)(nil)

// Pipeline is the bounded producer/consumer queue between the redirect
// path and the click-event store. When the queue is full the oldest
// capture is dropped and logged; redirects are never back-pressured.
type Pipeline struct {
	queue      chan domain.ClickCapture
	clicks     domain.ClickRepository
	agents     *enrichment.AgentParser
	traffic    *enrichment.TrafficClassifier
	geo        enrichment.Geolocator
	log        *log.Helper
	workers    int
	dropped    atomic.Int64
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewPipeline creates a pipeline with the given queue capacity and worker
// count; non-positive values fall back to the defaults.
func NewPipeline(
	queueSize, workers int,
	clicks domain.ClickRepository,
	geo enrichment.Geolocator,
	logger log.Logger,
) *Pipeline {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Pipeline{
		queue:   make(chan domain.ClickCapture, queueSize),
		clicks:  clicks,
		agents:  enrichment.NewAgentParser(),
		traffic: enrichment.NewTrafficClassifier(),
		geo:     geo,
		log:     log.NewHelper(logger),
		workers: workers,
	}
}

// Start launches the consumer workers.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	p.log.Infof("click ingestion started: %d workers, queue %d", p.workers, cap(p.queue))
}

// Stop drains in-flight work and stops the workers.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.log.Info("click ingestion stopped")
}

// Enqueue pushes a capture onto the queue and returns immediately.
// On overflow the oldest queued capture is dropped and logged; losing a
// fraction of analytics is preferable to blocking redirects.
func (p *Pipeline) Enqueue(capture domain.ClickCapture) {
	select {
	case p.queue <- capture:
		return
	default:
	}

	select {
	case old := <-p.queue:
		p.dropped.Add(1)
		p.log.Warnf("ingest queue full, dropped oldest click: code=%s clicked_at=%s", old.Code, old.ClickedAt.Format(time.RFC3339))
	default:
	}

	select {
	case p.queue <- capture:
	default:
		p.dropped.Add(1)
		p.log.Warnf("ingest queue full, dropped click: code=%s", capture.Code)
	}
}

// Dropped returns the number of captures dropped due to overflow.
func (p *Pipeline) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Pipeline) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case capture := <-p.queue:
					p.process(ctx, capture)
				default:
					return
				}
			}
		case capture := <-p.queue:
			p.process(ctx, capture)
		}
	}
}

// process enriches a capture and persists the click event. Every
// enrichment step is independently failure-tolerant: a failure degrades
// its fields to Unknown and the event is stored regardless.
func (p *Pipeline) process(ctx context.Context, capture domain.ClickCapture) {
	e := p.enrich(ctx, capture)

	// Persist even when the triggering request context is gone; losing a
	// click record is worse than losing enrichment fidelity.
	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), insertTimeout)
	defer cancel()

	if err := p.clicks.Insert(insertCtx, e); err != nil {
		p.log.Errorf("failed to store click event: code=%s clicked_at=%s stage=insert: %v",
			capture.Code, capture.ClickedAt.Format(time.RFC3339), err)
	}
}

func (p *Pipeline) enrich(ctx context.Context, capture domain.ClickCapture) *domain.ClickEvent {
	e := &domain.ClickEvent{
		LinkID:    capture.LinkID,
		ClickedAt: capture.ClickedAt.UTC(),
		IPAddress: capture.IPAddress,
		SessionID: capture.SessionID,
		UserAgent: capture.UserAgent,
		Referrer:  capture.Referrer,
		UTM:       capture.UTM,
	}

	agent := p.agents.Parse(capture.UserAgent)
	e.Browser = agent.Browser
	e.OS = agent.OS
	e.Device = agent.Device
	e.DeviceType = agent.DeviceType

	loc := p.locate(ctx, capture.IPAddress)
	e.Country = loc.Country
	e.City = loc.City

	e.TrafficSource, e.ReferrerDomain = p.traffic.Classify(capture.Referrer, capture.UTM)
	return e
}

// locate shields the pipeline from a panicking or failing geolocator.
func (p *Pipeline) locate(ctx context.Context, ip string) (loc enrichment.Location) {
	loc = enrichment.Location{Country: domain.Unknown, City: domain.Unknown}
	defer func() {
		if r := recover(); r != nil {
			p.log.Warnf("geo lookup panic for %s: %v", ip, r)
			loc = enrichment.Location{Country: domain.Unknown, City: domain.Unknown}
		}
	}()
	loc = p.geo.Locate(ctx, ip)
	return loc
}
