package bids

import "github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"

type SubmitValidationInput struct {
	HasTender  bool
	Active     bool
	NowHeight  uint64
	Deadline   uint64
	AlreadyBid bool
}

// ValidateSubmit applies the submission checks in their fixed precedence:
// missing tender, inactive tender, passed deadline, duplicate bid.
func ValidateSubmit(in SubmitValidationInput) protocol.Code {
	if !in.HasTender {
		return protocol.CodeTenderNotFound
	}
	if !in.Active {
		return protocol.CodeTenderInactive
	}
	if in.NowHeight > in.Deadline {
		return protocol.CodeDeadlinePassed
	}
	if in.AlreadyBid {
		return protocol.CodeDuplicateBid
	}
	return protocol.OK
}
