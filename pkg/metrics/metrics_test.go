package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry and options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("recon"),
				WithHistogramBuckets([]float64{0.1, 1}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithMetricsEnabled(true),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every metric is registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.recordsRead.Add(3)
				So(testutil.ToFloat64(manager.recordsRead), ShouldEqual, 3)
				n, err := testutil.GatherAndCount(registry, "test_recon_records_read_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When the same registry is reused", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then registering twice panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		readBefore := testutil.ToFloat64(globalManager.recordsRead)
		rejectedBefore := testutil.ToFloat64(globalManager.recordsRejected.WithLabelValues("invalid_quarter"))

		Convey("When recording pipeline events", func() {
			RecordRecordsRead(10)
			RecordRecordsAccepted(8)
			RecordRecordsRejected("invalid_quarter", 2)
			RecordChunkProcessed()
			RecordIssues("invalid_amount", 2)
			RecordIssues("invalid_amount", 0)
			RecordFlag("CNPJConflict", 4)
			UpdateConflicts(3)
			UpdateUnmatchedRegistrations(2)
			UpdateInvalidTaxIDs(1)
			UpdateAggregatedRows(20)
			UpdateOperatorsRanked(5, 2)
			RecordRowsLoaded("metricas_operadoras", 5)
			RecordStageDuration(StageEnrich, 250*time.Millisecond)

			Convey("Then counters and gauges reflect them", func() {
				So(testutil.ToFloat64(globalManager.recordsRead)-readBefore, ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.recordsRejected.WithLabelValues("invalid_quarter"))-rejectedBefore, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.conflicts), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.operatorsRanked), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.highVariability), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.aggregatedRows), ShouldEqual, 20)
			})
		})

		Convey("When a run finishes", func() {
			at := time.Unix(1_700_000_000, 0)
			RecordRun(true, 2*time.Second, at)

			Convey("Then status and timestamp are set", func() {
				So(testutil.ToFloat64(globalManager.runStatus), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.lastSuccess), ShouldEqual, 1_700_000_000)
				So(testutil.ToFloat64(globalManager.runDuration), ShouldEqual, 2)
			})

			Convey("And a failed run keeps the last success time", func() {
				RecordRun(false, time.Second, at.Add(time.Hour))
				So(testutil.ToFloat64(globalManager.runStatus), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.lastSuccess), ShouldEqual, 1_700_000_000)
			})
		})
	})
}

func TestExport(t *testing.T) {
	Convey("Given recorded metrics", t, func() {
		RecordChunkProcessed()

		Convey("When writing a textfile", func() {
			path := filepath.Join(t.TempDir(), "recon.prom")
			So(WriteTextfile(path), ShouldBeNil)
			data, err := os.ReadFile(path)

			Convey("Then it contains the pipeline metrics", func() {
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "recon_pipeline_chunks_processed_total")
			})
		})

		Convey("When the textfile directory does not exist", func() {
			err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "recon.prom"))
			So(err, ShouldNotBeNil)
		})

		Convey("When pushing to a gateway", func() {
			var method, path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			err := Push(context.Background(), srv.URL, "recon")

			Convey("Then the job group is replaced", func() {
				So(err, ShouldBeNil)
				So(method, ShouldEqual, http.MethodPut)
				So(path, ShouldEqual, "/metrics/job/recon")
			})
		})

		Convey("When the gateway rejects the push", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			So(Push(context.Background(), srv.URL, "recon"), ShouldNotBeNil)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the package registry", t, func() {
		So(GetRegistry(), ShouldEqual, customRegistry)
	})
}
