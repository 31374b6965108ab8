package service

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKeyLock(t *testing.T) {
	Convey("Given a key lock", t, func() {
		k := newKeyLock()

		Convey("When many goroutines mutate under the same key", func() {
			var wg sync.WaitGroup
			counter := 0
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock := k.lock("item")
					counter++
					unlock()
				}()
			}
			wg.Wait()

			Convey("Then no update is lost and the entry is released", func() {
				So(counter, ShouldEqual, 100)
				So(k.size(), ShouldEqual, 0)
			})
		})

		Convey("When different keys are held", func() {
			a := k.lock("a")
			b := k.lock("b")

			Convey("Then both are tracked until released", func() {
				So(k.size(), ShouldEqual, 2)
				a()
				b()
				So(k.size(), ShouldEqual, 0)
			})
		})
	})
}
