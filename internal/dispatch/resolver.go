// Package dispatch selects the responder responsible for a new report. It is
// the single policy point for routing: radius, role eligibility, and
// tie-breaking all live behind Resolve.
package dispatch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"vigil/internal/account/models"
	"vigil/internal/geo"
	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
)

// DefaultRadiusMeters is the coverage radius when none is configured.
const DefaultRadiusMeters = 50_000.0

var resolveDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "vigil_dispatch_resolve_duration_ms",
	Help:    "Latency of nearest-responder resolution in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 100},
})

var tracer = otel.Tracer("vigil/dispatch")

// Resolver routes report locations to responders via the geo index.
type Resolver struct {
	index        geo.Index
	radiusMeters float64
}

func NewResolver(index geo.Index, radiusMeters float64) *Resolver {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return &Resolver{index: index, radiusMeters: radiusMeters}
}

// Resolve returns the responder assigned to a report at the given location.
// It fails with a no_coverage error when no approved responder lies within
// the configured radius; the caller must not persist anything in that case.
func (r *Resolver) Resolve(ctx context.Context, location geo.Point) (id.AccountID, error) {
	ctx, span := tracer.Start(ctx, "dispatch.Resolve", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	start := time.Now()
	defer func() {
		resolveDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	candidate, err := r.index.NearestApproved(ctx, models.RoleResponder, location, r.radiusMeters)
	if err != nil {
		return id.AccountID{}, err
	}
	if candidate == nil {
		return id.AccountID{}, dErrors.New(dErrors.CodeNoCoverage, "no approved responder covers this location")
	}
	return candidate.AccountID, nil
}
