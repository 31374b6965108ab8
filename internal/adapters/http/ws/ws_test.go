package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/fanout"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/http/ws"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/mq/worker"
	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/repository"
	service "github.com/Yuvrajsinh007/BidCycle/internal/app"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func readMessage(conn *websocket.Conn, v any) error {
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func TestWatchItem(t *testing.T) {
	Convey("Given a websocket endpoint in front of the engine", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		now := time.Now()
		store := repository.NewMemoryStore(ctx)
		So(store.Create(ctx, auction.Item{
			ID: "lot", SellerID: "seller", BasePrice: decimal.NewFromInt(5),
			StartTime: now.Add(-time.Minute), EndTime: now.Add(time.Hour),
		}), ShouldBeNil)

		hub := fanout.NewHub(fanout.WithLogger(logger.Nop()))
		dispatcher := worker.NewDispatcher([]worker.Sink{hub}, worker.WithShards(2), worker.WithLogger(logger.Nop()))
		dispatcher.Start(ctx)
		defer func() { _ = dispatcher.Shutdown(context.Background()) }()

		svc := service.New(service.WithStore(store), service.WithPublisher(dispatcher), service.WithLogger(logger.Nop()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		router := mux.NewRouter()
		ws.NewHandler(hub, svc, logger.Nop()).Register(router)
		srv := httptest.NewServer(router)
		defer srv.Close()
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/items/lot"

		Convey("When a watcher connects", func() {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			var snap ws.Snapshot
			So(readMessage(conn, &snap), ShouldBeNil)

			Convey("Then the first message is a snapshot of the item", func() {
				So(snap.Type, ShouldEqual, ws.MessageSnapshot)
				So(snap.Item.ID, ShouldEqual, "lot")
				So(snap.Seq, ShouldEqual, int64(1))
			})

			Convey("Then committed bids stream in order and the close ends the stream", func() {
				_, err := svc.PlaceBid(ctx, "lot", auction.Bidder{ID: "alice", Name: "Alice"}, decimal.NewFromInt(50))
				So(err, ShouldBeNil)

				var update model.Event
				So(readMessage(conn, &update), ShouldBeNil)
				So(update.Type, ShouldEqual, model.EventBidUpdate)
				So(update.Seq, ShouldBeGreaterThan, snap.Seq)
				So(update.BidUpdate.LeaderName, ShouldEqual, "Alice")

				report := service.NewSweeper(svc).SweepOnce(ctx, now.Add(2*time.Hour))
				So(report.Sold, ShouldEqual, 1)

				var ended model.Event
				So(readMessage(conn, &ended), ShouldBeNil)
				So(ended.Type, ShouldEqual, model.EventAuctionEnded)
				So(ended.AuctionEnded.Winner.Name, ShouldEqual, "Alice")

				_, _, err = conn.ReadMessage()
				So(websocket.IsCloseError(err, websocket.CloseNormalClosure), ShouldBeTrue)
			})
		})

		Convey("When watching an unknown item", func() {
			_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/items/none", nil)

			Convey("Then the upgrade is refused with not found", func() {
				So(err, ShouldNotBeNil)
				So(resp, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(hub.Total(), ShouldEqual, 0)
			})
		})
	})
}
