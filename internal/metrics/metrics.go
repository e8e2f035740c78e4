// SPDX-License-Identifier: MPL-2.0

// Package metrics holds the prometheus collectors updated by the resolver and
// the shared archive cache. Collectors are always updated; exposing them is
// opt-in through Register.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "appmodel"

// Outcome labels for ResolutionsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	// ResolutionsTotal counts application model resolutions by build mode and outcome.
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Number of application model resolutions by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	// ResolutionDuration observes the wall time of application model resolutions.
	ResolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "Time taken to resolve an application model.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// ArtifactCacheTotal counts single artifact lookups by cache result ("hit" or "miss").
	ArtifactCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_cache_total",
			Help:      "Single artifact resolutions served from or added to the resolver cache.",
		},
		[]string{"result"},
	)

	// SharedArchivesOpen is the number of shared archives currently holding an open reader.
	SharedArchivesOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shared_archives_open",
			Help:      "Number of shared archive path trees with an open underlying reader.",
		},
	)

	// SharedArchiveOpensTotal counts transitions of a shared archive from unopened to open.
	SharedArchiveOpensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shared_archive_opens_total",
			Help:      "Number of times a shared archive reader was opened.",
		},
	)
)

// Register adds every collector to reg. Collectors that are already
// registered with reg are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		ResolutionsTotal,
		ResolutionDuration,
		ArtifactCacheTotal,
		SharedArchivesOpen,
		SharedArchiveOpensTotal,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveResolution records the outcome and duration of one resolution.
func ObserveResolution(mode string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	ResolutionsTotal.WithLabelValues(mode, outcome).Inc()
	ResolutionDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

// ArchiveOpened records a shared archive reader being opened.
func ArchiveOpened() {
	SharedArchiveOpensTotal.Inc()
	SharedArchivesOpen.Inc()
}

// ArchiveClosed records a shared archive reader being closed.
func ArchiveClosed() {
	SharedArchivesOpen.Dec()
}

// ArtifactCacheResult records a single artifact lookup served from the
// resolver cache (hit) or resolved from the repository (miss).
func ArtifactCacheResult(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ArtifactCacheTotal.WithLabelValues(result).Inc()
}
