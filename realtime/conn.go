package realtime

import (
	"context"
	"net/http"
	"time"

	"taskhub/logging"
	"taskhub/middleware"
	"taskhub/utils"

	fiberws "github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 15 * time.Second
)

// EventConnected is the first frame a client receives.
const EventConnected = "connected"

// inbound is the only shape clients may send; anything but "ping" is ignored.
type inbound struct {
	Type string `json:"type"`
}

func connectedMessage(userID string) Message {
	return Message{Type: EventConnected, Payload: map[string]string{"userId": userID}}
}

// HTTPHandler serves the standalone websocket endpoint. It must sit behind
// middleware.HTTPAuth, which supplies the user id.
func HTTPHandler(hub *Hub, originPatterns []string, log *zap.Logger) http.Handler {
	log = logging.OrNop(log)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			utils.JSONError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		client := hub.Register(userID)
		defer hub.Unregister(client)
		client.send <- connectedMessage(userID)

		go readLoop(ctx, cancel, conn, hub, client, log)
		go pingLoop(ctx, conn, log)
		writeLoop(ctx, conn, client, log)
		conn.Close(websocket.StatusNormalClosure, "")
	})
}

func readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, hub *Hub, c *Client, log *zap.Logger) {
	defer cancel()
	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				log.Debug("websocket read ended", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}
		if msg.Type == "ping" {
			hub.reply(c, Message{Type: "pong"})
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, c *Client, log *zap.Logger) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(wctx, conn, msg)
			cancel()
			if err != nil {
				log.Debug("websocket write failed", zap.String("user_id", c.UserID), zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug("websocket ping failed", zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// FiberHandler serves /ws on the main API port. The route must run
// middleware.Auth first so the user id is in Locals.
func FiberHandler(hub *Hub, log *zap.Logger) func(*fiberws.Conn) {
	log = logging.OrNop(log)
	return func(conn *fiberws.Conn) {
		userID, _ := conn.Locals(middleware.LocalUserID).(string)
		if userID == "" {
			_ = conn.WriteJSON(Message{Type: "error", Payload: "Authentication required"})
			return
		}

		client := hub.Register(userID)
		defer hub.Unregister(client)
		client.send <- connectedMessage(userID)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var msg inbound
				if err := conn.ReadJSON(&msg); err != nil {
					return
				}
				if msg.Type == "ping" {
					hub.reply(client, Message{Type: "pong"})
				}
			}
		}()

		for {
			select {
			case msg, ok := <-client.Messages():
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					log.Debug("websocket write failed", zap.String("user_id", userID), zap.Error(err))
					return
				}
			case <-done:
				return
			}
		}
	}
}
