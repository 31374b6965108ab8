package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("auction"),
				WithResolveBuckets([]float64{1, 10}),
				WithSweepBuckets([]float64{100, 1000}),
				WithInstance("engine-a"),
				WithConstLabels(map[string]string{"region": "eu", "zone": ""}),
				WithRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.bidsAccepted.WithLabelValues("first_bid").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_auction_bids_accepted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})

			Convey("Then instance and extra labels are merged and empty values dropped", func() {
				So(m.constLabels, ShouldResemble, prometheus.Labels{"instance": "engine-a", "region": "eu"})
			})

			Convey("Then sweeps and bids use their own buckets", func() {
				So(m.resolveBuckets, ShouldResemble, []float64{1, 10})
				So(m.sweepBuckets, ShouldResemble, []float64{100, 1000})
			})
		})

		Convey("When empty option values are passed", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithResolveBuckets(nil), WithSweepBuckets(nil), WithRegistry(registry))

			Convey("Then the defaults are kept", func() {
				So(m.namespace, ShouldEqual, DefaultNamespace)
				So(m.subsystem, ShouldEqual, DefaultSubsystem)
				So(m.resolveBuckets, ShouldResemble, DefaultResolveBuckets())
				So(m.sweepBuckets, ShouldResemble, DefaultSweepBuckets())
				So(m.constLabels, ShouldBeNil)
			})
		})
	})
}

func TestRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording bid outcomes", func() {
			before := testutil.ToFloat64(globalManager.bidsAccepted.WithLabelValues("new_leader"))
			RecordBidAccepted("new_leader")
			RecordBidRejected("bid_too_low")
			RecordResolveLatency(1.5)
			RecordLedgerConflict()

			Convey("Then counters advance", func() {
				So(testutil.ToFloat64(globalManager.bidsAccepted.WithLabelValues("new_leader")), ShouldEqual, before+1)
			})
		})

		Convey("When recording lifecycle and fan-out activity", func() {
			RecordSweep(3)
			RecordAuctionClosed("sold")
			UpdateActiveSubscribers(4)
			UpdateDispatchQueueDepth(2)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.activeSubscribers), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.dispatchQueueDepth), ShouldEqual, 2)
			})
		})

		Convey("When gathering the custom registry", func() {
			RecordHTTPRequest("bids", "POST", "201")
			families, err := GetRegistry().Gather()

			Convey("Then only engine metrics are exported", func() {
				So(err, ShouldBeNil)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "bidcycle_engine_"), ShouldBeTrue)
				}
			})
		})
	})
}
