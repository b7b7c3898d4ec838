package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.PageFetched()
	r.EntryQualified()
	r.EntryMatched()
	r.EntryMalformed()
	r.UpstreamRetry("audio features")
	r.UpstreamFailure("audio features")
	r.AggregationDone("ok", time.Second)
	r.GenreCacheLookup("hit")
}

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.PageFetched()
	r.PageFetched()
	r.UpstreamRetry("artist genres")
	r.AggregationDone("error", 2*time.Second)
	r.GenreCacheLookup("miss")

	if got := testutil.ToFloat64(r.pagesFetched); got != 2 {
		t.Errorf("pages fetched = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.upstreamRetries.WithLabelValues("artist genres")); got != 1 {
		t.Errorf("retries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.aggregations.WithLabelValues("error")); got != 1 {
		t.Errorf("aggregations{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.genreCache.WithLabelValues("miss")); got != 1 {
		t.Errorf("genre cache misses = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New(WithNamespace("test"))
	r.EntryMatched()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "test_library_entries_matched_total 1") {
		t.Errorf("metrics output missing matched counter:\n%s", body)
	}
}
