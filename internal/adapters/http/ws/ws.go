// Package ws streams live item events to browsers over websockets.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Yuvrajsinh007/BidCycle/internal/adapters/fanout"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/auction"
	"github.com/Yuvrajsinh007/BidCycle/internal/domain/model"
	"github.com/Yuvrajsinh007/BidCycle/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 512

	// MessageSnapshot is the type of the first message on every stream.
	MessageSnapshot = "snapshot"
)

// ItemReader loads the current public view of an item.
type ItemReader interface {
	Item(ctx context.Context, id string) (auction.View, error)
}

// Snapshot is sent once, right after subscribing. Events with a sequence at
// or below Seq are already reflected in Item and are skipped.
type Snapshot struct {
	Type   string       `json:"type"`
	ItemID string       `json:"itemId"`
	Seq    int64        `json:"seq"`
	Item   auction.View `json:"item"`
}

// Handler upgrades item watchers and pumps hub events to them.
type Handler struct {
	hub      *fanout.Hub
	items    ItemReader
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHandler creates a websocket handler. Origins are not checked; the
// engine is expected to sit behind a gateway that does.
func NewHandler(hub *fanout.Hub, items ItemReader, l logger.Logger) *Handler {
	if l == nil {
		l = logger.Named("ws")
	}
	return &Handler{
		hub:   hub,
		items: items,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: l,
	}
}

// Register attaches GET /ws/items/{id}.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/ws/items/{id}", h.HandleWatch).Methods(http.MethodGet)
}

// HandleWatch subscribes before reading the snapshot so no committed event
// can fall between the two.
func (h *Handler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]
	ctx := logger.ContextWith(r.Context(), logger.String("item_id", itemID))

	sub, err := h.hub.Subscribe(itemID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	view, err := h.items.Item(ctx, itemID)
	if err != nil {
		sub.Close()
		if errors.Is(err, auction.ErrNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		h.logger.Warn(ctx, "websocket upgrade failed", logger.Error(err))
		return
	}
	h.logger.Debug(ctx, "watcher connected", logger.String("subscription_id", sub.ID))

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(ctx, conn, sub, view, done)
}

// readPump consumes control frames until the peer goes away.
func (h *Handler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, sub *fanout.Subscription, view auction.View, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		_ = conn.Close()
		h.logger.Debug(ctx, "watcher disconnected", logger.String("subscription_id", sub.ID))
	}()

	snap := Snapshot{Type: MessageSnapshot, ItemID: view.ID, Seq: view.Version, Item: view}
	if err := writeJSON(conn, snap); err != nil {
		return
	}
	if view.Status.IsClosed() {
		closeWith(conn, websocket.CloseNormalClosure, "auction ended")
		return
	}

	for {
		select {
		case <-done:
			return
		case e, ok := <-sub.Events():
			if !ok {
				if sub.Evicted() {
					closeWith(conn, websocket.CloseTryAgainLater, "too slow")
				} else {
					closeWith(conn, websocket.CloseGoingAway, "shutting down")
				}
				return
			}
			if e.Seq != 0 && e.Seq <= snap.Seq {
				continue
			}
			if err := writeJSON(conn, e); err != nil {
				return
			}
			if e.Type == model.EventAuctionEnded {
				closeWith(conn, websocket.CloseNormalClosure, "auction ended")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
}
