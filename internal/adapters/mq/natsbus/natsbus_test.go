package natsbus

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSubject(t *testing.T) {
	Convey("Given item ids", t, func() {
		Convey("When building subjects", func() {
			Convey("Then plain ids are appended as one token", func() {
				So(Subject("auction.events", "item42"), ShouldEqual, "auction.events.item42")
			})
			Convey("Then reserved characters cannot split or widen the subject", func() {
				So(Subject("auction.events", "a.b*>c d"), ShouldEqual, "auction.events.a_b__c_d")
			})
		})
	})
}
