package protocol

// Code is a stable numeric outcome. Meaning is fixed per (component, method).
type Code int

const OK Code = 0

// Vendor Registry.
const (
	CodeVendorExists       Code = 1
	CodeVendorNotFound     Code = 2
	CodeVendorUnauthorized Code = 3
)

// Tender Board, Bid Ledger and Evaluation share one code space.
const (
	CodeUnauthorized    Code = 1
	CodeDuplicateID     Code = 2
	CodeDeadlineInPast  Code = 3
	CodeTenderNotFound  Code = 4
	CodeTenderInactive  Code = 5
	CodeDeadlinePassed  Code = 6
	CodeDuplicateBid    Code = 7
	CodeBidNotFound     Code = 8
	CodeTenderStillOpen Code = 9
	CodeAlreadyAwarded  Code = 10
	CodeBidNotEvaluated Code = 11
)

// Fulfillment Tracker (1 and 2 are CodeUnauthorized and CodeDuplicateID).
const (
	CodeContractNotFound   Code = 3
	CodeDuplicateMilestone Code = 4
	CodeMilestoneNotFound  Code = 5
	CodeAlreadyCompleted   Code = 6
	CodeNotAwarded         Code = 7
)

// Boundary codes, valid for every component.
const (
	CodeInvalidArgument  Code = 100
	CodeUnknownMethod    Code = 101
	CodeNotDeployed      Code = 102
	CodeUnknownComponent Code = 103
)

var boundaryCodes = map[Code]string{
	CodeInvalidArgument:  "InvalidArgument",
	CodeUnknownMethod:    "UnknownMethod",
	CodeNotDeployed:      "NotDeployed",
	CodeUnknownComponent: "UnknownComponent",
}

var knownCodes = map[Component]map[Code]string{
	VendorRegistry: {
		CodeVendorExists:       "DuplicateId",
		CodeVendorNotFound:     "NotFound",
		CodeVendorUnauthorized: "Unauthorized",
	},
	TenderBoard: {
		CodeUnauthorized:   "Unauthorized",
		CodeDuplicateID:    "DuplicateId",
		CodeDeadlineInPast: "DeadlineInPast",
	},
	BidLedger: {
		CodeTenderNotFound: "TenderNotFound",
		CodeTenderInactive: "TenderInactive",
		CodeDeadlinePassed: "DeadlinePassed",
		CodeDuplicateBid:   "DuplicateBid",
	},
	FulfillmentTracker: {
		CodeUnauthorized:       "Unauthorized",
		CodeDuplicateID:        "DuplicateId",
		CodeContractNotFound:   "ContractNotFound",
		CodeDuplicateMilestone: "DuplicateMilestone",
		CodeMilestoneNotFound:  "MilestoneNotFound",
		CodeAlreadyCompleted:   "AlreadyCompleted",
		CodeNotAwarded:         "NotAwarded",
	},
	Evaluation: {
		CodeUnauthorized:    "Unauthorized",
		CodeTenderNotFound:  "TenderNotFound",
		CodeTenderInactive:  "TenderInactive",
		CodeBidNotFound:     "BidNotFound",
		CodeTenderStillOpen: "TenderStillOpen",
		CodeAlreadyAwarded:  "AlreadyAwarded",
		CodeBidNotEvaluated: "BidNotEvaluated",
	},
}

// IsKnownCode reports whether code can be returned by component.
func IsKnownCode(c Component, code Code) bool {
	if code == OK {
		return true
	}
	return CodeName(c, code) != ""
}

// CodeName returns the symbolic name of code for component, or "".
func CodeName(c Component, code Code) string {
	if code == OK {
		return "OK"
	}
	if n, ok := boundaryCodes[code]; ok {
		return n
	}
	return knownCodes[c][code]
}
