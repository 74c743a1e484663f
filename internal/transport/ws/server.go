package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tickbot.ai/internal/protocol"
)

// Handler is the bot side of a client connection. Obs is called from the
// connection's reader goroutine, one message at a time, in tick order.
type Handler interface {
	// Hello admits a client. An error is reported to the client as ERROR
	// with the code from Code(err) and the connection is closed.
	Hello(hello protocol.HelloMsg) (protocol.WelcomeMsg, error)
	Obs(obs *protocol.ObsMsg) protocol.ActMsg
	Disconnected(sessionID string)
}

// CodedError carries a protocol error code through Handler.Hello.
type CodedError struct {
	Code string
	Msg  string
}

func (e *CodedError) Error() string { return e.Code + ": " + e.Msg }

// Code returns the protocol code for err, E_INTERNAL when it has none.
func Code(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return protocol.ErrInternal
}

type Server struct {
	h   Handler
	log *log.Logger

	// ReadTimeout closes a connection that sends nothing for this long.
	ReadTimeout time.Duration

	upgrader websocket.Upgrader
}

func NewServer(h Handler, logger *log.Logger) *Server {
	return &Server{
		h:           h,
		log:         logger,
		ReadTimeout: 30 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // local client only
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		welcome, ok := s.handshake(conn)
		if !ok {
			return
		}
		defer s.h.Disconnected(welcome.SessionID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan []byte, 8)

		// Writer goroutine. It drains out until the reader closes it, so a
		// final ERROR is written before the connection closes.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for b := range out {
				if ctx.Err() != nil {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
				}
			}
		}()
		defer func() {
			close(out)
			<-writerDone
		}()

		send := func(v any) bool {
			b, err := protocol.Encode(v)
			if err != nil {
				s.logf("encode: %v", err)
				return true
			}
			select {
			case out <- b:
				return true
			case <-ctx.Done():
				return false
			}
		}

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logf("session %s read: %v", welcome.SessionID, err)
				}
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				if !send(protocol.NewError(protocol.ErrProtoBadRequest, "malformed message")) {
					return
				}
				continue
			}
			if base.Type != protocol.TypeObs {
				if !send(protocol.NewError(protocol.ErrProtoBadRequest, "unexpected "+base.Type)) {
					return
				}
				continue
			}
			var obs protocol.ObsMsg
			if err := protocol.Decode(msg, &obs); err != nil {
				if !send(protocol.NewError(protocol.ErrProtoBadRequest, "bad OBS")) {
					return
				}
				continue
			}
			if obs.ProtocolVersion != protocol.Version {
				send(protocol.NewError(protocol.ErrProtoVersion, "protocol_version must be "+protocol.Version))
				return
			}
			if !send(s.h.Obs(&obs)) {
				return
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (protocol.WelcomeMsg, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return protocol.WelcomeMsg{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		s.reject(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return protocol.WelcomeMsg{}, false
	}
	var hello protocol.HelloMsg
	if err := protocol.Decode(msg, &hello); err != nil {
		s.reject(conn, protocol.ErrProtoBadRequest, "bad HELLO")
		return protocol.WelcomeMsg{}, false
	}
	if hello.ProtocolVersion != protocol.Version {
		s.reject(conn, protocol.ErrProtoVersion, "protocol_version must be "+protocol.Version)
		return protocol.WelcomeMsg{}, false
	}

	welcome, err := s.h.Hello(hello)
	if err != nil {
		s.reject(conn, Code(err), err.Error())
		return protocol.WelcomeMsg{}, false
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.h.Disconnected(welcome.SessionID)
		return protocol.WelcomeMsg{}, false
	}
	s.logf("client %q attached as session %s", hello.ClientName, welcome.SessionID)
	return welcome, true
}

func (s *Server) reject(conn *websocket.Conn, code, msg string) {
	_ = writeJSON(conn, protocol.NewError(code, msg))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code), time.Now().Add(time.Second))
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := protocol.Encode(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
