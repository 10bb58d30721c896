package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

// bot drives one full procurement lifecycle over the websocket endpoint:
// vendor registration, tender, bid, evaluation, award, contract, milestone.
func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name   = flag.String("name", "bot", "client name")
		admin  = flag.String("admin", "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", "component admin principal")
		vendor = flag.String("vendor", "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG", "vendor principal")
		prefix = flag.String("prefix", "", "id prefix (default: unix time)")
		rounds = flag.Int("rounds", 1, "lifecycles to run")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	w, err := handshake(conn, *name)
	if err != nil {
		logger.Fatalf("handshake: %v", err)
	}
	logger.Printf("WELCOME chain=%s height=%d components=%d", w.ChainID, w.Height, len(w.Components))

	p := *prefix
	if p == "" {
		p = strconv.FormatInt(time.Now().Unix(), 10)
	}
	failed := 0
	for i := 0; i < *rounds; i++ {
		steps := lifecycle(fmt.Sprintf("%s-%d", p, i), protocol.Principal(*admin), protocol.Principal(*vendor), w.Height)
		n, err := run(conn, steps, logger)
		if err != nil {
			logger.Printf("round %d: %v", i, err)
			failed++
			continue
		}
		logger.Printf("round %d: %d steps ok", i, n)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func handshake(conn *websocket.Conn, name string) (protocol.WelcomeMsg, error) {
	var w protocol.WelcomeMsg
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: name}
	if err := conn.WriteJSON(hello); err != nil {
		return w, fmt.Errorf("send HELLO: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ReadJSON(&w); err != nil {
		return w, fmt.Errorf("read WELCOME: %w", err)
	}
	if w.Type != protocol.TypeWelcome {
		return w, fmt.Errorf("expected WELCOME, got %q", w.Type)
	}
	return w, nil
}

type step struct {
	msg  protocol.ExecMsg
	want protocol.Code
}

func exec(id string, sender protocol.Principal, comp protocol.Component, method string, args ...string) protocol.ExecMsg {
	return protocol.ExecMsg{
		Type:            protocol.TypeExec,
		ProtocolVersion: protocol.Version,
		ID:              id,
		Component:       string(comp),
		Method:          method,
		Args:            args,
		Sender:          sender,
	}
}

// lifecycle builds the EXEC sequence for one tender. Ids are derived from tag.
func lifecycle(tag string, admin, vendor protocol.Principal, height uint64) []step {
	vendorID := "vendor-" + tag
	tenderID := "tender-" + tag
	contractID := "contract-" + tag
	deadline := strconv.FormatUint(height+100, 10)
	due := strconv.FormatUint(height+50, 10)

	return []step{
		{msg: exec(tag+"/1", vendor, protocol.VendorRegistry, protocol.MethodRegisterVendor, vendorID, "Bot Supplies "+tag, "Construction")},
		{msg: exec(tag+"/2", admin, protocol.TenderBoard, protocol.MethodCreateTender, tenderID, "Road repair "+tag, "Resurface district roads", deadline)},
		{msg: exec(tag+"/3", vendor, protocol.BidLedger, protocol.MethodSubmitBid, tenderID, "5000", "0x"+tag)},
		{msg: exec(tag+"/4", vendor, protocol.BidLedger, protocol.MethodSubmitBid, tenderID, "4500", "0x"+tag), want: protocol.CodeDuplicateBid},
		{msg: exec(tag+"/5", admin, protocol.Evaluation, protocol.MethodCloseTender, tenderID)},
		{msg: exec(tag+"/6", admin, protocol.Evaluation, protocol.MethodScoreBid, tenderID, string(vendor), "90")},
		{msg: exec(tag+"/7", admin, protocol.Evaluation, protocol.MethodAwardTender, tenderID, string(vendor))},
		{msg: exec(tag+"/8", admin, protocol.FulfillmentTracker, protocol.MethodCreateContract, contractID, tenderID, string(vendor), "5000", deadline)},
		{msg: exec(tag+"/9", admin, protocol.FulfillmentTracker, protocol.MethodAddMilestone, contractID, "1", "Phase one", "2500", due)},
		{msg: exec(tag+"/10", vendor, protocol.FulfillmentTracker, protocol.MethodCompleteMilestone, contractID, "1")},
		{msg: exec(tag+"/11", vendor, protocol.FulfillmentTracker, protocol.MethodCompleteMilestone, contractID, "1"), want: protocol.CodeAlreadyCompleted},
		{msg: exec(tag+"/12", vendor, protocol.FulfillmentTracker, protocol.MethodGetMilestone, contractID, "1")},
	}
}

// run sends steps one at a time and checks each RESULT code against the expectation.
func run(conn *websocket.Conn, steps []step, logger *log.Logger) (int, error) {
	for i, s := range steps {
		if err := conn.WriteJSON(s.msg); err != nil {
			return i, fmt.Errorf("send %s: %w", s.msg.ID, err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var res protocol.ResultMsg
		if err := conn.ReadJSON(&res); err != nil {
			return i, fmt.Errorf("read %s: %w", s.msg.ID, err)
		}
		got := protocol.OK
		if res.Error != nil {
			got = *res.Error
		}
		if res.ID != s.msg.ID || got != s.want {
			return i, fmt.Errorf("%s %s.%s: id=%q code=%d want %d", s.msg.ID, s.msg.Component, s.msg.Method, res.ID, got, s.want)
		}
		if logger != nil {
			logger.Printf("%s %s.%s ok height=%d", s.msg.ID, s.msg.Component, s.msg.Method, res.Height)
		}
	}
	return len(steps), nil
}
