package protocol

// ExecRequest is the single request contract accepted by the chain.
// Component is the raw component name as sent by the caller (aliases allowed).
type ExecRequest struct {
	Component string    `json:"component"`
	Method    string    `json:"method"`
	Args      []string  `json:"args"`
	Sender    Principal `json:"sender"`
}

// ExecResponse carries either a result (possibly null) or a stable error code.
type ExecResponse struct {
	Success bool  `json:"success"`
	Result  any   `json:"result"`
	Error   *Code `json:"error,omitempty"`
}

func Succeed(result any) ExecResponse {
	return ExecResponse{Success: true, Result: result}
}

func Fail(code Code) ExecResponse {
	c := code
	return ExecResponse{Success: false, Error: &c}
}

// Code returns OK for successful responses.
func (r ExecResponse) Code() Code {
	if r.Success || r.Error == nil {
		return OK
	}
	return *r.Error
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ChainID         string          `json:"chain_id"`
	Height          uint64          `json:"height"`
	Components      []ComponentInfo `json:"components"`
}

type ComponentInfo struct {
	Name     Component `json:"name"`
	Deployed bool      `json:"deployed"`
	Admin    Principal `json:"admin,omitempty"`
}

// EXEC (client -> server)
type ExecMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version,omitempty"`
	ID              string    `json:"id,omitempty"`
	Component       string    `json:"component"`
	Method          string    `json:"method"`
	Args            []string  `json:"args"`
	Sender          Principal `json:"sender"`
}

func (m ExecMsg) Request() ExecRequest {
	return ExecRequest{
		Component: m.Component,
		Method:    m.Method,
		Args:      append([]string(nil), m.Args...),
		Sender:    m.Sender,
	}
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Height          uint64 `json:"height"`
	Success         bool   `json:"success"`
	Result          any    `json:"result"`
	Error           *Code  `json:"error,omitempty"`
}

func NewResult(id string, height uint64, resp ExecResponse) ResultMsg {
	return ResultMsg{
		Type:            TypeResult,
		ProtocolVersion: Version,
		ID:              id,
		Height:          height,
		Success:         resp.Success,
		Result:          resp.Result,
		Error:           resp.Error,
	}
}
