// Package monitor implements the monitoring engine: per-domain scan
// scheduling, CT-log query execution with retry/backoff, subdomain-set
// diffing against persisted state, and the resulting alert/error
// notifications.
package monitor

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"certwatch/internal/config"
	"certwatch/pkg/ctlog"
	"certwatch/pkg/domain"
	"certwatch/pkg/logger"
	"certwatch/pkg/notify"
	"certwatch/pkg/serrors"
	"certwatch/pkg/storage"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configure the scheduling and retry behavior of the Monitor.
type Options struct {
	// Interval is the sleep between two full scan passes.
	Interval time.Duration
	// Attempts is the total number of query attempts per domain scan.
	Attempts int
	// BackoffBase is the delay before the first retry; doubled per retry.
	BackoffBase time.Duration
	// DomainDelay spaces consecutive CT-log queries; zero disables pacing.
	DomainDelay time.Duration
	// InitialDomains seeds the monitored list, e.g. from existing storage
	// entries after a restart.
	InitialDomains []string
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Interval:    cfg.Monitor.Interval,
		Attempts:    cfg.Monitor.Attempts,
		BackoffBase: cfg.Monitor.BackoffBase,
		DomainDelay: cfg.Monitor.DomainDelay,
	}
}

// Monitor owns the monitored-domain list and the running flag, and drives
// the scan loop over them. The command surface (bot, CLI) and the loop run
// concurrently; both shared fields are guarded by a single mutex and the
// loop works on a snapshot of the list taken at the start of each pass.
type Monitor struct {
	opts       Options
	store      storage.Store
	executor   *Executor
	differ     *Differ
	dispatcher *Dispatcher
	inst       *instruments

	mu      sync.Mutex
	domains []string
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// scanMu serializes scans so a probe cannot interleave its
	// load-union-save sequence with the loop scanning the same domain.
	scanMu sync.Mutex
}

// New constructs a Monitor wired to the given CT-log client, store and
// notification sink. Instruments are registered on meter.
func New(client ctlog.Client,
	store storage.Store,
	notifier notify.Notifier,
	meter metric.Meter,
	opts Options) (*Monitor, error) {
	inst, err := newInstruments(meter)
	if err != nil {
		return nil, fmt.Errorf("could not create instruments: %w", err)
	}

	var limiter *rate.Limiter
	if opts.DomainDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.DomainDelay), 1)
	}

	domains := slices.Clone(opts.InitialDomains)
	slices.Sort(domains)
	domains = slices.Compact(domains)

	return &Monitor{
		opts:       opts,
		store:      store,
		executor:   NewExecutor(client, limiter, opts.Attempts, opts.BackoffBase),
		differ:     NewDiffer(store),
		dispatcher: NewDispatcher(notifier, inst.notifyFailures),
		inst:       inst,
		domains:    domains,
	}, nil
}

// AddDomain validates raw and adds its canonical form to the monitored list.
// It reports the canonical name and whether the domain was actually added;
// duplicates are a no-op, not an error. A newly added domain is picked up at
// the start of the next pass.
func (m *Monitor) AddDomain(raw string) (string, bool, error) {
	name, err := domain.ValidateName(raw)
	if err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.Contains(m.domains, name) {
		return name, false, nil
	}
	m.domains = append(m.domains, name)
	slices.Sort(m.domains)

	return name, true, nil
}

// RemoveDomain removes raw's canonical form from the monitored list and
// deletes its stored subdomain set. Removing an unknown domain returns
// ErrNotFound.
func (m *Monitor) RemoveDomain(ctx context.Context, raw string) error {
	name, err := domain.ValidateName(raw)
	if err != nil {
		return err
	}

	m.mu.Lock()
	idx := slices.Index(m.domains, name)
	if idx < 0 {
		m.mu.Unlock()

		return serrors.With(serrors.ErrNotFound, "domain %q is not monitored", name)
	}
	m.domains = slices.Delete(m.domains, idx, idx+1)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("could not delete stored set: %w", err)
	}

	return nil
}

// Domains returns a sorted snapshot of the monitored list.
func (m *Monitor) Domains() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.domains)
}

// Running reports whether the scan loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.running
}

// Start launches the scan loop; ctx must outlive the monitoring session.
// Starting an already-running monitor is a no-op and returns false.
func (m *Monitor) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(loopCtx, m.done)

	return true
}

// Stop requests the loop to exit and returns immediately. An in-flight
// domain scan finishes, remaining domains of the pass are skipped and the
// inter-pass sleep is interrupted. Stopping a stopped monitor is a no-op
// and returns false. Use Wait to block until the loop has exited.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return false
	}

	m.running = false
	m.cancel()

	return true
}

// Wait blocks until the scan loop has fully exited or ctx is done.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint: wrapcheck
	}
}

// Probe scans a single domain immediately, independent of the running loop,
// and returns the scan result plus the new subdomains it alerted on. The
// scan goes through the full executor → diff → dispatch path, so storage is
// updated and notifications fire exactly as in a scheduled pass.
func (m *Monitor) Probe(ctx context.Context, raw string) (domain.ScanResult, []string, error) {
	name, err := domain.ValidateName(raw)
	if err != nil {
		return domain.ScanResult{}, nil, err
	}

	_, res, newSubdomains := m.scanDomain(ctx, name)
	if res.Err != nil {
		return res, nil, fmt.Errorf("scan failed: %w", res.Err)
	}

	return res, newSubdomains, nil
}

// loop runs scan passes separated by the configured interval until ctx is
// canceled. The interval wait is interrupted promptly by cancellation.
func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	logger.Info(ctx, "monitoring loop started", zap.Duration("interval", m.opts.Interval))

	for {
		m.runPass(ctx)

		select {
		case <-ctx.Done():
			logger.Info(ctx, "monitoring loop stopped")

			return
		case <-time.After(m.opts.Interval):
		}
	}
}

// runPass scans every monitored domain once, working on a snapshot of the
// list so concurrent add/remove commands cannot mutate the iteration. When
// a full pass over a non-empty list produces no alert, an all-quiet summary
// is dispatched.
func (m *Monitor) runPass(ctx context.Context) {
	domains := m.Domains()

	alerted := false
	scanned := 0
	for _, name := range domains {
		if ctx.Err() != nil {
			return
		}

		a, _, _ := m.scanDomain(ctx, name)
		alerted = alerted || a
		scanned++
	}

	if ctx.Err() == nil && scanned > 0 && !alerted {
		m.dispatcher.QuietPass(ctx, domains, m.opts.Interval)
	}
}

// scanDomain executes one scan and routes its outcome: successful fetches go
// through the diff engine and may raise an alert; terminal failures raise an
// error notification. Events are not dispatched once ctx is canceled, so a
// stop request never produces noise for an aborted scan. Scans run one at a
// time; the diff and write-back for a domain never interleave with another
// scan of it.
func (m *Monitor) scanDomain(ctx context.Context, name string) (bool, domain.ScanResult, []string) {
	m.scanMu.Lock()
	defer m.scanMu.Unlock()

	res := m.executor.Execute(ctx, name)

	m.inst.scans.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", string(res.Outcome))))
	m.inst.scanDuration.Record(ctx, res.FinishedAt.Sub(res.StartedAt).Seconds())

	if ctx.Err() != nil {
		return false, res, nil
	}

	if res.Outcome != domain.ScanOutcomeSuccess {
		m.dispatcher.Error(ctx, domain.ErrorEvent{
			Domain: name,
			Kind:   errorKind(res.Err),
			Cause:  res.Err.Error(),
			At:     time.Now().UTC(),
		})

		return false, res, nil
	}

	newSubdomains, firstScan, err := m.differ.Apply(ctx, name, res.Subdomains)
	if err != nil {
		// The alert (if any) is suppressed: without the store update it
		// would fire again next pass.
		logger.Error(ctx, "could not update stored set",
			zap.String("domain", name), zap.Error(err))
		m.dispatcher.Error(ctx, domain.ErrorEvent{
			Domain: name,
			Kind:   errorKind(err),
			Cause:  err.Error(),
			At:     time.Now().UTC(),
		})
		res.Err = err

		return false, res, nil
	}

	if firstScan {
		logger.Info(ctx, "seeded stored set on first scan",
			zap.String("domain", name), zap.Int("subdomains", res.Subdomains.Len()))

		return false, res, nil
	}
	if len(newSubdomains) == 0 {
		return false, res, nil
	}

	m.inst.newSubdomains.Add(ctx, int64(len(newSubdomains)))
	m.dispatcher.Alert(ctx, domain.AlertEvent{
		Domain:        name,
		NewSubdomains: newSubdomains,
		At:            time.Now().UTC(),
	})

	return true, res, newSubdomains
}

// errorKind extracts the semantic kind name from err for operator-facing
// notifications.
func errorKind(err error) string {
	if k := serrors.KindOf(err); k != nil {
		return k.Error()
	}

	return serrors.ErrInternal.Error()
}
