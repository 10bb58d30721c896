package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
)

func newTestServer(t *testing.T) (*httptest.Server, *chain.Chain) {
	t.Helper()
	c := chain.New(chain.Config{})
	c.DeployAll()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = c.Run(ctx)
		close(done)
	}()

	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	srv := httptest.NewServer(NewServer(c, v, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv, c
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readResult(t *testing.T, conn *websocket.Conn) protocol.ResultMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var res protocol.ResultMsg
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read result: %v", err)
	}
	if res.Type != protocol.TypeResult {
		t.Fatalf("expected RESULT, got %q", res.Type)
	}
	return res
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var w protocol.WelcomeMsg
	if err := conn.ReadJSON(&w); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	return w
}

func TestHandshakeAndExec(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	w := hello(t, conn)
	if w.Type != protocol.TypeWelcome || w.Height != chain.DefaultGenesisHeight {
		t.Fatalf("welcome=%+v", w)
	}
	if len(w.Components) != len(protocol.Components) {
		t.Fatalf("components=%+v", w.Components)
	}
	for _, ci := range w.Components {
		if !ci.Deployed {
			t.Fatalf("component %s not deployed", ci.Name)
		}
	}

	send(t, conn, protocol.ExecMsg{
		Type:      protocol.TypeExec,
		ID:        "1",
		Component: "tender-board",
		Method:    "create-tender",
		Args:      []string{"tender123", "Road", "Resurface", "10010"},
		Sender:    chain.DefaultAdmin,
	})
	res := readResult(t, conn)
	if res.ID != "1" || !res.Success {
		t.Fatalf("create-tender result=%+v", res)
	}

	send(t, conn, protocol.ExecMsg{
		Type:      protocol.TypeExec,
		ID:        "2",
		Component: "tender-board",
		Method:    "create-tender",
		Args:      []string{"tender123", "Road", "Resurface", "10010"},
		Sender:    chain.DefaultAdmin,
	})
	res = readResult(t, conn)
	if res.Success || res.Error == nil || *res.Error != protocol.CodeDuplicateID {
		t.Fatalf("duplicate result=%+v", res)
	}

	send(t, conn, protocol.ExecMsg{
		Type:      protocol.TypeExec,
		ID:        "3",
		Component: "tender-board",
		Method:    "get-tender",
		Args:      []string{"tender123"},
		Sender:    "ST2ANYONE",
	})
	res = readResult(t, conn)
	if !res.Success {
		t.Fatalf("get-tender result=%+v", res)
	}
	b, _ := json.Marshal(res.Result)
	if !strings.Contains(string(b), `"title":"Road"`) {
		t.Fatalf("get-tender payload=%s", b)
	}
}

func TestExecFailingSchemaIsInvalidArgument(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)
	hello(t, conn)

	// sender is required by the EXEC schema.
	send(t, conn, map[string]any{
		"type":      "EXEC",
		"id":        "x",
		"component": "vendor-registry",
		"method":    "get-vendor",
		"args":      []string{"v1"},
	})
	res := readResult(t, conn)
	if res.ID != "x" || res.Error == nil || *res.Error != protocol.CodeInvalidArgument {
		t.Fatalf("result=%+v", res)
	}
}

func TestHandshakeRejectsWrongFirstMessage(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv)

	send(t, conn, protocol.ExecMsg{Type: protocol.TypeExec, Component: "x", Method: "y", Args: []string{}, Sender: "s"})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}
