package wsserver

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/Josef1981/EngineersCafe/modules/relay"
)

// sendBufferSize is the per-session outbound queue. A session that falls this
// far behind starts losing frames (best-effort delivery).
const sendBufferSize = 256

// wsSession adapts one websocket connection to the coordinator's Session
// interface. Writes go through a buffered channel drained by a single writer
// goroutine, so a slow consumer never blocks a broadcast.
type wsSession struct {
	id     string
	conn   *websocket.Conn
	out    chan []byte
	done   chan struct{}
	closer sync.Once
	logger *slog.Logger
}

// Compile-time interface check.
var _ relay.Session = (*wsSession)(nil)

func newSession(id string, conn *websocket.Conn, logger *slog.Logger) *wsSession {
	return &wsSession{
		id:     id,
		conn:   conn,
		out:    make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// ID returns the opaque session identifier.
func (s *wsSession) ID() string {
	return s.id
}

// Send queues one event envelope for delivery. Never blocks: if the buffer is
// full the frame is dropped.
func (s *wsSession) Send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal payload", "sessionID", s.id, "event", event, "error", err)
		return
	}
	s.enqueue(Envelope{Type: event, Payload: data})
}

// SendError queues an error envelope.
func (s *wsSession) SendError(message string) {
	s.enqueue(Envelope{Type: "error", Error: message})
}

func (s *wsSession) enqueue(env Envelope) {
	frame, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("Failed to marshal envelope", "sessionID", s.id, "error", err)
		return
	}

	select {
	case s.out <- frame:
	case <-s.done:
	default:
		s.logger.Warn("Dropping frame for slow session", "sessionID", s.id, "event", env.Type)
	}
}

// writePump drains the outbound queue onto the connection. It exits on the
// first write error or when the session is closed.
func (s *wsSession) writePump() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.out:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Warn("Write failed, closing session", "sessionID", s.id, "error", err)
				_ = s.Close()
				return
			}
		}
	}
}

// Close tears the session down. Safe to call more than once.
func (s *wsSession) Close() error {
	s.closer.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
	return nil
}
