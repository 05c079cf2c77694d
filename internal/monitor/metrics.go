package monitor

import (
	"go.opentelemetry.io/otel/metric"

	"certwatch/pkg/metrics"
)

// instruments bundles the monitor's OpenTelemetry instruments. All of them
// are exported through the Prometheus endpoint of the operational server.
type instruments struct {
	// scans counts finished domain scans, attributed by outcome.
	scans metric.Int64Counter
	// newSubdomains counts subdomains that triggered an alert.
	newSubdomains metric.Int64Counter
	// scanDuration observes the wall time of one scan including backoff.
	scanDuration metric.Float64Histogram
	// notifyFailures counts notification deliveries that failed.
	notifyFailures metric.Int64Counter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	scans, err := meter.Int64Counter("certwatch.scans",
		metric.WithDescription("Finished domain scans by outcome."))
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	newSubdomains, err := meter.Int64Counter("certwatch.subdomains.new",
		metric.WithDescription("Newly discovered subdomains."))
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	scanDuration, err := meter.Float64Histogram("certwatch.scan.duration",
		metric.WithDescription("Duration of one domain scan in seconds."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DefaultBuckets...))
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	notifyFailures, err := meter.Int64Counter("certwatch.notify.failures",
		metric.WithDescription("Notification deliveries that failed."))
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	return &instruments{
		scans:          scans,
		newSubdomains:  newSubdomains,
		scanDuration:   scanDuration,
		notifyFailures: notifyFailures,
	}, nil
}
