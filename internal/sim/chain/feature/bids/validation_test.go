package bids

import (
	"testing"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
)

func TestValidateSubmit_Precedence(t *testing.T) {
	// Missing tender wins even when every other check would also fail.
	if code := ValidateSubmit(SubmitValidationInput{HasTender: false, NowHeight: 500, Deadline: 10, AlreadyBid: true}); code != protocol.CodeTenderNotFound {
		t.Fatalf("expected tender-not-found, got %d", code)
	}
	if code := ValidateSubmit(SubmitValidationInput{HasTender: true, Active: false, NowHeight: 500, Deadline: 10, AlreadyBid: true}); code != protocol.CodeTenderInactive {
		t.Fatalf("expected tender-inactive, got %d", code)
	}
	if code := ValidateSubmit(SubmitValidationInput{HasTender: true, Active: true, NowHeight: 11, Deadline: 10, AlreadyBid: true}); code != protocol.CodeDeadlinePassed {
		t.Fatalf("expected deadline-passed, got %d", code)
	}
	if code := ValidateSubmit(SubmitValidationInput{HasTender: true, Active: true, NowHeight: 10, Deadline: 10, AlreadyBid: true}); code != protocol.CodeDuplicateBid {
		t.Fatalf("expected duplicate-bid at the deadline height, got %d", code)
	}
	if code := ValidateSubmit(SubmitValidationInput{HasTender: true, Active: true, NowHeight: 10, Deadline: 10}); code != protocol.OK {
		t.Fatalf("expected ok at the deadline height, got %d", code)
	}
}
