package protocol

import "testing"

func TestDecode_TypedCalls(t *testing.T) {
	call, code := Decode(BidLedger, MethodSubmitBid, []string{"tender123", "50000", "0xabc"})
	if code != OK {
		t.Fatalf("decode submit-bid: code=%d", code)
	}
	sb, ok := call.(SubmitBid)
	if !ok {
		t.Fatalf("expected SubmitBid, got %T", call)
	}
	if sb.TenderID != "tender123" || sb.Amount != 50000 || sb.ProposalHash != "0xabc" {
		t.Fatalf("unexpected submit-bid decode: %+v", sb)
	}

	call, code = Decode(FulfillmentTracker, MethodAddMilestone, []string{"contract123", "1", "Initial delivery of supplies", "150000", "300000"})
	if code != OK {
		t.Fatalf("decode add-milestone: code=%d", code)
	}
	am := call.(AddMilestone)
	if am.Number != 1 || am.Amount != 150000 || am.DueHeight != 300000 {
		t.Fatalf("unexpected add-milestone decode: %+v", am)
	}
	if am.Component() != FulfillmentTracker || am.Method() != MethodAddMilestone {
		t.Fatalf("call routing mismatch: %s/%s", am.Component(), am.Method())
	}
}

func TestDecode_VendorStatusText(t *testing.T) {
	call, _ := Decode(VendorRegistry, MethodUpdateVendorStatus, []string{"v1", "true"})
	if !call.(UpdateVendorStatus).Active {
		t.Fatalf("expected true to activate")
	}
	call, _ = Decode(VendorRegistry, MethodUpdateVendorStatus, []string{"v1", "TRUE"})
	if call.(UpdateVendorStatus).Active {
		t.Fatalf("expected only exact \"true\" to activate")
	}
}

func TestDecode_Failures(t *testing.T) {
	if _, code := Decode(TenderBoard, MethodCreateTender, []string{"t1", "title", "desc", "soon"}); code != CodeInvalidArgument {
		t.Fatalf("expected invalid argument for malformed deadline, got %d", code)
	}
	if _, code := Decode(BidLedger, MethodSubmitBid, []string{"t1", "-5", "h"}); code != CodeInvalidArgument {
		t.Fatalf("expected invalid argument for negative amount, got %d", code)
	}
	if _, code := Decode(VendorRegistry, MethodRegisterVendor, []string{"only-id"}); code != CodeInvalidArgument {
		t.Fatalf("expected invalid argument for arity, got %d", code)
	}
	if _, code := Decode(VendorRegistry, "drop-vendor", nil); code != CodeUnknownMethod {
		t.Fatalf("expected unknown method, got %d", code)
	}
	if _, code := Decode(Component("ghost"), MethodGetVendor, []string{"x"}); code != CodeUnknownComponent {
		t.Fatalf("expected unknown component, got %d", code)
	}
}

func TestResolve_LegacyNames(t *testing.T) {
	cases := []struct {
		name, method string
		want         Component
	}{
		{"vendor-registration", MethodRegisterVendor, VendorRegistry},
		{"bid-submission", MethodCreateTender, TenderBoard},
		{"bid-submission", MethodGetTender, TenderBoard},
		{"bid-submission", MethodSubmitBid, BidLedger},
		{"bid-submission", MethodGetBid, BidLedger},
		{"contract-fulfillment", MethodCreateContract, FulfillmentTracker},
		{"evaluation", MethodScoreBid, Evaluation},
		{"tender-board", MethodCreateTender, TenderBoard},
	}
	for _, c := range cases {
		got, ok := Resolve(c.name, c.method)
		if !ok || got != c.want {
			t.Fatalf("Resolve(%q,%q)=%q,%v want %q", c.name, c.method, got, ok, c.want)
		}
	}
	if _, ok := Resolve("evaluation-v2", MethodScoreBid); ok {
		t.Fatalf("expected unknown component")
	}
}

func TestDeployTargets_ExpandsLegacyNames(t *testing.T) {
	cases := map[string][]Component{
		"bid-submission":       {TenderBoard, BidLedger},
		"vendor-registration":  {VendorRegistry},
		"contract-fulfillment": {FulfillmentTracker},
		" evaluation ":         {Evaluation},
	}
	for name, want := range cases {
		got, ok := DeployTargets(name)
		if !ok || len(got) != len(want) {
			t.Fatalf("DeployTargets(%q)=%v,%v", name, got, ok)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("DeployTargets(%q)=%v want %v", name, got, want)
			}
		}
	}
	if _, ok := DeployTargets("bid-submission-v2"); ok {
		t.Fatalf("expected unknown deploy target")
	}
}

func TestMethods_EveryComponentHasDecoders(t *testing.T) {
	for _, c := range Components {
		if len(Methods(c)) == 0 {
			t.Fatalf("no methods for %s", c)
		}
	}
}
