package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating a manager with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("test_prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithJobBuckets([]float64{100, 1000}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.metricPrefix, ShouldEqual, "test_prefix")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.jobBuckets, ShouldResemble, []float64{100, 1000})
			})

			Convey("Then metric names and labels should follow them", func() {
				manager.jobsSubmitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var env string
				for _, f := range families {
					if f.GetName() != "test_namespace_test_subsystem_test_prefix_submitted_total" {
						continue
					}
					for _, l := range f.GetMetric()[0].GetLabel() {
						if l.GetName() == "env" {
							env = l.GetValue()
						}
					}
				}
				So(env, ShouldEqual, "test")
			})
		})

		Convey("When options carry empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithJobBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "simuq")
				So(manager.subsystem, ShouldEqual, "jobs")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.jobBuckets, ShouldHaveLength, 10)
				So(manager.constLabels, ShouldBeEmpty)
			})
		})
	})
}

func TestJobMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording job lifecycle metrics", func() {
			submitted := testutil.ToFloat64(globalManager.jobsSubmitted)
			completed := testutil.ToFloat64(globalManager.jobsCompleted.WithLabelValues("uncertainty"))
			failed := testutil.ToFloat64(globalManager.jobsFailed.WithLabelValues("evaluation"))

			RecordJobSubmitted()
			RecordJobSubmitted()
			RecordJobCompleted("uncertainty")
			RecordJobFailed("evaluation")

			Convey("Then the counters should advance", func() {
				So(testutil.ToFloat64(globalManager.jobsSubmitted), ShouldEqual, submitted+2)
				So(testutil.ToFloat64(globalManager.jobsCompleted.WithLabelValues("uncertainty")), ShouldEqual, completed+1)
				So(testutil.ToFloat64(globalManager.jobsFailed.WithLabelValues("evaluation")), ShouldEqual, failed+1)
			})
		})

		Convey("When recording sample counts", func() {
			samples := testutil.ToFloat64(globalManager.samplesEvaluated)
			nan := testutil.ToFloat64(globalManager.nanRows)

			RecordSamplesEvaluated(100)
			RecordNaNRows(3)

			Convey("Then they should be added", func() {
				So(testutil.ToFloat64(globalManager.samplesEvaluated), ShouldEqual, samples+100)
				So(testutil.ToFloat64(globalManager.nanRows), ShouldEqual, nan+3)
			})
		})

		Convey("When recording lookups and restorations", func() {
			miss := testutil.ToFloat64(globalManager.lookups.WithLabelValues("miss"))
			restores := testutil.ToFloat64(globalManager.binderRestores)

			RecordLookup("miss")
			RecordParameterRestore()

			Convey("Then they should be counted", func() {
				So(testutil.ToFloat64(globalManager.lookups.WithLabelValues("miss")), ShouldEqual, miss+1)
				So(testutil.ToFloat64(globalManager.binderRestores), ShouldEqual, restores+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdateWorkerCount(4)
			UpdateModelCount(2)

			Convey("Then they should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.modelCount), ShouldEqual, 2)
			})
		})

		Convey("When a worker becomes busy and then idle", func() {
			before := testutil.ToFloat64(globalManager.workerBusyCount)
			AddWorkerBusy(1)
			during := testutil.ToFloat64(globalManager.workerBusyCount)
			AddWorkerBusy(-1)

			Convey("Then the busy gauge should return to its prior value", func() {
				So(during, ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.workerBusyCount), ShouldEqual, before)
			})
		})
	})
}

func TestSupportingMetrics(t *testing.T) {
	Convey("Given supporting metrics", t, func() {
		Convey("When recording store, queue and HTTP observations", func() {
			Convey("Then no call should panic", func() {
				So(func() {
					RecordJobDuration("single", 12)
					RecordEvaluationLatency(250)
					RecordStoreWriteLatency(1.5)
					RecordStoreReadLatency(0.5)
					RecordStoreError("redis", "put")
					UpdateQueueCapacity(1024)
					UpdateQueueUtilization(0.25)
					RecordQueueEnqueue()
					RecordQueueDequeue()
					RecordQueueEnqueueError()
					RecordQueueProcessingLatency(0.1)
					UpdateWorkerActiveCount(4)
					UpdateWorkerJobsPerSecond(1.5)
					RecordWorkerProcessingLatency(30)
					RecordWorkerError()
					RecordHTTPRequest("/jobs", "POST", "200")
					RecordHTTPRequestDuration("/jobs", "POST", "200", 3)
					RecordErrorByComponent("worker", "evaluation")
					RecordErrorByType("evaluation", "error")
					RecordErrorByEndpoint("/jobs", "POST", "validation")
					RecordErrorLatency("worker", "store", 10)
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})

		Convey("When store errors are recorded per backend", func() {
			before := testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("postgres", "get"))
			RecordStoreError("postgres", "get")

			Convey("Then only that label set should move", func() {
				So(testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("postgres", "get")), ShouldEqual, before+1)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.jobsSubmitted)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					RecordJobSubmitted()
					RecordQueueEnqueue()
				}
			}()
		}
		wg.Wait()

		Convey("Then every increment should be counted", func() {
			So(testutil.ToFloat64(globalManager.jobsSubmitted), ShouldEqual, before+1000)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordJobSubmitted()
		families, err := GetRegistry().Gather()

		Convey("Then it should expose simuq metrics", func() {
			So(err, ShouldBeNil)
			var found bool
			for _, f := range families {
				if f.GetName() == "simuq_jobs_submitted_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
