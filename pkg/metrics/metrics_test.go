package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// sampleValue returns the value of the first sample of a family in reg.
func sampleValue(reg prometheus.Gatherer, name string) (float64, bool) {
	families, err := reg.Gather()
	if err != nil {
		return 0, false
	}
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue(), true
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue(), true
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount()), true
		}
	}
	return 0, false
}

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("pre"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(m.namespace, ShouldEqual, "test")
				So(m.subsystem, ShouldEqual, "unit")
				So(m.histogramBuckets, ShouldResemble, []float64{1, 5, 10})
				So(m.RefreshInterval(), ShouldEqual, 5*time.Second)
				So(m.customLabels["env"], ShouldEqual, "test")
			})

			Convey("Then collectors are registered under the prefixed names", func() {
				m.gamesIndexed.Inc()
				v, ok := sampleValue(registry, "test_unit_pre_games_indexed_total")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, 1)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "explorer")
				So(m.subsystem, ShouldEqual, "index")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(m.enabled, ShouldBeTrue)
				So(m.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})

			Convey("Then a non-positive refresh interval is ignored", func() {
				m := NewManager(WithRefreshInterval(0), WithPrometheusRegistry(prometheus.NewRegistry()))
				So(m.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(RefreshInterval(), ShouldEqual, globalManager.RefreshInterval())
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		reg := GetRegistry()
		So(reg, ShouldNotBeNil)

		Convey("When ingestion events are recorded", func() {
			before, _ := sampleValue(reg, "explorer_index_games_received_total")
			RecordGameReceived()
			RecordGameReceived()
			RecordGameSkipped("casual")
			RecordCellMerge("blitz", "2000")
			UpdatePositionsTotal(42)

			Convey("Then the counters move", func() {
				after, ok := sampleValue(reg, "explorer_index_games_received_total")
				So(ok, ShouldBeTrue)
				So(after-before, ShouldEqual, 2)

				positions, ok := sampleValue(reg, "explorer_index_positions")
				So(ok, ShouldBeTrue)
				So(positions, ShouldEqual, 42)

				_, ok = sampleValue(reg, "explorer_index_games_skipped_total")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When a snapshot save is recorded", func() {
			RecordSnapshot("save", 12, 2048)

			Convey("Then the size gauge and last save time are set", func() {
				size, ok := sampleValue(reg, "explorer_index_snapshot_bytes")
				So(ok, ShouldBeTrue)
				So(size, ShouldEqual, 2048)

				last, ok := sampleValue(reg, "explorer_index_snapshot_last_unixtime")
				So(ok, ShouldBeTrue)
				So(last, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the remaining recorders are called", func() {
			So(func() {
				RecordGameDuplicate()
				RecordGameIndexed()
				RecordEntryEncoded(64)
				RecordEntryDecoded()
				RecordEntryDecodeError()
				RecordStoreMergeLatency(0.2)
				RecordStoreLookupLatency(0.1)
				RecordLilaGameStreamed()
				RecordLilaRequestFailure()
				UpdateQueueSize(3)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("full")
				UpdateWorkerCount(4)
				RecordWorkerProcessingLatency(1.5)
				RecordWorkerError()
				RecordHTTPRequest("/games", "POST", "202")
				RecordHTTPRequestDuration("/games", "POST", "202", 3)
				RecordErrorByComponent("worker", "store")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})
	})
}

func TestDisabledManager(t *testing.T) {
	Convey("Given metrics are disabled globally", t, func() {
		saved := globalManager
		globalManager = NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))
		defer func() { globalManager = saved }()

		Convey("Then recorders are no-ops", func() {
			RecordGameIndexed()
			v, _ := sampleValue(GetRegistry(), "explorer_index_games_indexed_total")
			before := v
			RecordGameIndexed()
			v, _ = sampleValue(GetRegistry(), "explorer_index_games_indexed_total")
			So(v, ShouldEqual, before)
		})
	})
}
