package metrics_test

import (
	"testing"

	"github.com/okian/triboard/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("Then the package helpers do not panic", func() {
			So(func() {
				metrics.RecordSessionStarted()
				metrics.RecordSessionFinalized()
				metrics.RecordFinalizeFailure("already_finalized")
				metrics.RecordRankInsert("score")
				metrics.RecordPruneDeletions("score", 2)
				metrics.RecordPruneDeletions("streak", 0)
				metrics.UpdateBoardSize("accuracy", 10)
				metrics.RecordStatEvent()
				metrics.RecordStatDuplicate()
				metrics.UpdateQueueSize(5)
				metrics.UpdateQueueCapacity(100)
				metrics.UpdateWorkerCount(4)
				metrics.RecordWorkerError()
				metrics.RecordStoreWriteLatency(1.5)
				metrics.RecordStoreQueryLatency(0.5)
				metrics.RecordHTTPRequest("leaderboard", "GET", "200")
				metrics.RecordHTTPRequestDuration("leaderboard", "GET", "200", 3.0)
			}, ShouldNotPanic)
		})

		Convey("Then the registry gathers the registered families", func() {
			families, err := metrics.GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}

func TestNewManagerWithOptions(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		m := metrics.NewManager(
			metrics.WithNamespace("testns"),
			metrics.WithSubsystem("testsub"),
			metrics.WithHistogramBuckets([]float64{1, 5, 10}),
			metrics.WithPrometheusRegistry(prometheus.NewRegistry()),
		)

		Convey("Then it is constructed without panicking", func() {
			So(m, ShouldNotBeNil)
		})
	})
}
