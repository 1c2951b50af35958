package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DoyleJ11/stage-quiz-backend/internal/apperr"
	"github.com/DoyleJ11/stage-quiz-backend/internal/controller"
	"github.com/DoyleJ11/stage-quiz-backend/internal/peer"
	"github.com/DoyleJ11/stage-quiz-backend/internal/types"
	pub "github.com/DoyleJ11/stage-quiz-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 3 * time.Second

type Options struct {
	OutboxSize  int
	ReadTimeout time.Duration
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*" in dev.
	OriginPatterns []string
}

func Handler(ctl *controller.Controller, opts Options, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			log.Info("websocket accept failed", zap.Error(err))
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "bye")

		conn := peer.NewConn(uuid.NewString(), opts.OutboxSize)
		defer conn.Close()

		log := log.With(zap.String("conn", conn.ID))
		log.Info("client connected", zap.String("remote", r.RemoteAddr))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writeLoop(writeCtx, c, conn, log)

		// Reader loop
		for {
			data, err := read(r.Context(), c, opts.ReadTimeout)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("client disconnected")
				default:
					log.Info("client dropped", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				log.Debug("malformed frame", zap.Error(err))
				conn.Send(pub.ErrorMessage("", apperr.CodeUnknownRequest))
				continue
			}

			ctl.Handle(r.Context(), conn, cm)
		}
	}
}

func read(ctx context.Context, c *websocket.Conn, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	typ, data, err := c.Read(ctx)
	if err != nil {
		return nil, err
	}
	if typ != websocket.MessageText {
		return nil, errors.New("binary frames are not supported")
	}
	return data, nil
}

// writeLoop drains the connection's outbox until the client goes away. A
// failed write ends the connection; rooms and the hub just see drops after.
func writeLoop(ctx context.Context, c *websocket.Conn, conn *peer.Conn, log *zap.Logger) {
	defer conn.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case msg := <-conn.Out():
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c, msg)
			cancel()
			if err != nil {
				log.Info("write failed", zap.String("type", string(msg.Type)), zap.Error(err))
				c.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}
