package network

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"nhooyr.io/websocket"

	"github.com/banshee-data/teleop.bridge/internal/monitoring"
)

// wsReadLimit caps a single frame. Control packets are tiny, so anything
// larger is a misbehaving client.
const wsReadLimit = 4096

// WebSocketIngressConfig configures a WebSocketIngress.
type WebSocketIngressConfig struct {
	Pipeline *Pipeline
	// OriginPatterns lists the browser origins allowed to connect, in the
	// host-pattern syntax of nhooyr.io/websocket. Empty allows same-origin
	// only.
	OriginPatterns []string
	Log            monitoring.Sink
}

// WebSocketIngress accepts VR control packets as binary WebSocket frames,
// for headset browsers that cannot send raw UDP. Each frame is handled
// exactly like one datagram.
type WebSocketIngress struct {
	pipeline       *Pipeline
	originPatterns []string
	log            monitoring.Sink
	baseCtx        context.Context

	clients atomic.Int64
}

var _ http.Handler = (*WebSocketIngress)(nil)

// NewWebSocketIngress creates a WebSocketIngress.
func NewWebSocketIngress(cfg WebSocketIngressConfig) (*WebSocketIngress, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("websocket ingress requires a pipeline")
	}
	if cfg.Log == nil {
		cfg.Log = monitoring.Discard()
	}
	return &WebSocketIngress{
		pipeline:       cfg.Pipeline,
		originPatterns: cfg.OriginPatterns,
		log:            cfg.Log,
		baseCtx:        context.Background(),
	}, nil
}

// WithContext returns a copy of w whose connections close when ctx is done.
func (w *WebSocketIngress) WithContext(ctx context.Context) *WebSocketIngress {
	return &WebSocketIngress{
		pipeline:       w.pipeline,
		originPatterns: w.originPatterns,
		log:            w.log,
		baseCtx:        ctx,
	}
}

// Clients returns the number of connected clients.
func (w *WebSocketIngress) Clients() int64 { return w.clients.Load() }

// ServeHTTP upgrades the request and reads frames until the client leaves.
func (w *WebSocketIngress) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(rw, r, &websocket.AcceptOptions{
		OriginPatterns: w.originPatterns,
	})
	if err != nil {
		w.log.Opsf("websocket accept from %s: %v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(wsReadLimit)

	w.clients.Add(1)
	defer w.clients.Add(-1)
	w.log.Diagf("websocket client connected from %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(w.baseCtx)
	defer cancel()
	stop := context.AfterFunc(r.Context(), cancel)
	defer stop()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				w.log.Diagf("websocket client %s disconnected", r.RemoteAddr)
			default:
				if ctx.Err() != nil {
					_ = conn.Close(websocket.StatusGoingAway, "bridge shutting down")
					return
				}
				w.log.Opsf("websocket read from %s: %v", r.RemoteAddr, err)
			}
			_ = conn.CloseNow()
			return
		}

		if typ != websocket.MessageBinary {
			w.log.Opsf("websocket client %s sent a text frame; closing", r.RemoteAddr)
			_ = conn.Close(websocket.StatusUnsupportedData, "control packets must be binary frames")
			return
		}

		if err := w.pipeline.HandlePacket(data); err != nil {
			w.log.Tracef("dropped packet from %s: %v", r.RemoteAddr, err)
		}
	}
}
