package protocol

import "strings"

// Principal is an opaque caller identity.
type Principal string

type Component string

const (
	VendorRegistry     Component = "vendor-registry"
	TenderBoard        Component = "tender-board"
	BidLedger          Component = "bid-ledger"
	FulfillmentTracker Component = "fulfillment-tracker"
	Evaluation         Component = "evaluation"
)

// Components lists every deployable component in a stable order.
var Components = []Component{
	VendorRegistry,
	TenderBoard,
	BidLedger,
	FulfillmentTracker,
	Evaluation,
}

// Method names.
const (
	MethodRegisterVendor     = "register-vendor"
	MethodUpdateVendorStatus = "update-vendor-status"
	MethodGetVendor          = "get-vendor"

	MethodCreateTender = "create-tender"
	MethodGetTender    = "get-tender"

	MethodSubmitBid = "submit-bid"
	MethodGetBid    = "get-bid"
	MethodListBids  = "list-bids"

	MethodCreateContract    = "create-contract"
	MethodAddMilestone      = "add-milestone"
	MethodCompleteMilestone = "complete-milestone"
	MethodGetContract       = "get-contract"
	MethodGetMilestone      = "get-milestone"

	MethodCloseTender   = "close-tender"
	MethodScoreBid      = "score-bid"
	MethodAwardTender   = "award-tender"
	MethodGetEvaluation = "get-evaluation"
	MethodGetAward      = "get-award"
)

// Legacy contract names.
const (
	legacyVendorRegistration  = "vendor-registration"
	legacyBidSubmission       = "bid-submission"
	legacyContractFulfillment = "contract-fulfillment"
)

// ParseComponent maps a component name (canonical or legacy alias) to a Component.
// The legacy bid-submission contract spans two components; use Resolve for it.
func ParseComponent(name string) (Component, bool) {
	switch Component(strings.TrimSpace(name)) {
	case VendorRegistry, legacyVendorRegistration:
		return VendorRegistry, true
	case TenderBoard:
		return TenderBoard, true
	case BidLedger:
		return BidLedger, true
	case FulfillmentTracker, legacyContractFulfillment:
		return FulfillmentTracker, true
	case Evaluation:
		return Evaluation, true
	default:
		return "", false
	}
}

// DeployTargets maps a deployable name to the components it installs. The legacy
// bid-submission contract installs both the tender board and the bid ledger.
func DeployTargets(name string) ([]Component, bool) {
	if strings.TrimSpace(name) == legacyBidSubmission {
		return []Component{TenderBoard, BidLedger}, true
	}
	c, ok := ParseComponent(name)
	if !ok {
		return nil, false
	}
	return []Component{c}, true
}

// Resolve picks the component that owns method when called through name.
func Resolve(name, method string) (Component, bool) {
	if strings.TrimSpace(name) == legacyBidSubmission {
		switch method {
		case MethodCreateTender, MethodGetTender:
			return TenderBoard, true
		default:
			return BidLedger, true
		}
	}
	return ParseComponent(name)
}

var readOnlyMethods = map[string]bool{
	MethodGetVendor:     true,
	MethodGetTender:     true,
	MethodGetBid:        true,
	MethodListBids:      true,
	MethodGetContract:   true,
	MethodGetMilestone:  true,
	MethodGetEvaluation: true,
	MethodGetAward:      true,
}

// ReadOnly reports whether method never mutates state.
func ReadOnly(method string) bool { return readOnlyMethods[method] }
