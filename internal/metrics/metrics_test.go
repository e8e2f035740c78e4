// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister_Idempotent(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register should skip registered collectors: %v", err)
	}
}

func TestObserveResolution(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(ResolutionsTotal.WithLabelValues("metrics-test", OutcomeError))
	ObserveResolution("metrics-test", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(ResolutionsTotal.WithLabelValues("metrics-test", OutcomeError))

	if after-before != 1 {
		t.Errorf("error outcome counter advanced by %v, want 1", after-before)
	}
}

func TestArtifactCacheResult(t *testing.T) {
	t.Parallel()

	hits := ArtifactCacheTotal.WithLabelValues("hit")
	before := testutil.ToFloat64(hits)
	ArtifactCacheResult(true)
	if got := testutil.ToFloat64(hits) - before; got != 1 {
		t.Errorf("hit counter advanced by %v, want 1", got)
	}
}
