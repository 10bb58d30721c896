package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
)

// Chain is the part of *chain.Chain the transport needs.
type Chain interface {
	Submit(ctx context.Context, req protocol.ExecRequest) (protocol.ExecResponse, uint64, error)
	Metrics() chain.ChainMetrics
}

type Server struct {
	chain     Chain
	validator *protocol.Validator
	log       *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(c Chain, v *protocol.Validator, logger *log.Logger) *Server {
	return &Server{
		chain:     c,
		validator: v,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
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

		client, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, 32)
		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. EXECs from one connection are applied in arrival order.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res, ok := s.handleExec(ctx, msg)
			if !ok {
				continue
			}
			b, err := json.Marshal(res)
			if err != nil {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-done
		s.printf("ws client=%q disconnected", client)
	}
}

// handleExec turns one inbound frame into a RESULT. Frames that are not EXEC are ignored;
// malformed EXECs are answered with InvalidArgument.
func (s *Server) handleExec(ctx context.Context, msg []byte) (protocol.ResultMsg, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeExec {
		return protocol.ResultMsg{}, false
	}
	var exec protocol.ExecMsg
	if err := json.Unmarshal(msg, &exec); err != nil {
		return protocol.NewResult("", s.chain.Metrics().Height, protocol.Fail(protocol.CodeInvalidArgument)), true
	}
	if s.validator != nil {
		if err := s.validator.ValidateExec(msg); err != nil {
			return protocol.NewResult(exec.ID, s.chain.Metrics().Height, protocol.Fail(protocol.CodeInvalidArgument)), true
		}
	}
	if exec.ProtocolVersion != "" && exec.ProtocolVersion != protocol.Version {
		return protocol.NewResult(exec.ID, s.chain.Metrics().Height, protocol.Fail(protocol.CodeInvalidArgument)), true
	}
	resp, height, err := s.chain.Submit(ctx, exec.Request())
	if err != nil {
		s.printf("ws submit failed: %v", err)
		return protocol.ResultMsg{}, false
	}
	return protocol.NewResult(exec.ID, height, resp), true
}

func (s *Server) handshake(conn *websocket.Conn) (client string, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", false
	}
	if s.validator != nil {
		if err := s.validator.ValidateHello(msg); err != nil {
			closeWith(conn, "invalid HELLO")
			return "", false
		}
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", false
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	m := s.chain.Metrics()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ChainID:         m.ChainID,
		Height:          m.Height,
		Components:      m.ComponentInfo(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	s.printf("ws client=%q connected", hello.ClientName)
	return hello.ClientName, true
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Server) printf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}
