package jsonrpc

import (
	"encoding/json"

	"github.com/taskmill/taskmill-go/pkg/errors"
)

// Version is the only JSON-RPC protocol version this server speaks.
const Version = "2.0"

/*
Request is the inbound envelope.  ID and Params stay raw so handlers decode
their own parameter shapes; Method stays raw so a non-string method can be
rejected with an Invalid Request error instead of a parse failure.
*/
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"` // accepts string | number | null
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MethodName decodes the method field, failing when it is not a JSON string.
func (req *Request) MethodName() (string, *errors.RpcError) {
	var name string

	if err := json.Unmarshal(req.Method, &name); err != nil {
		return "", errors.ErrInvalidRequest.WithMessagef("Method must be a string")
	}

	return name, nil
}

// NormalizedID returns the request id, or JSON null when the request
// carried none.  Responses always echo an id, null included.
func (req *Request) NormalizedID() json.RawMessage {
	if len(req.ID) == 0 {
		return json.RawMessage("null")
	}

	return req.ID
}

// NewRequest builds an outbound request envelope.
func NewRequest(id json.RawMessage, method string, params any) (Request, error) {
	rawMethod, err := json.Marshal(method)

	if err != nil {
		return Request{}, err
	}

	rawParams, err := json.Marshal(params)

	if err != nil {
		return Request{}, err
	}

	return Request{
		JSONRPC: Version,
		ID:      id,
		Method:  rawMethod,
		Params:  rawParams,
	}, nil
}
