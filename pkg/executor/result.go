package executor

import (
	"encoding/json"
	"fmt"
)

// Result is the envelope returned for every operation: either
// {"success": true, ...payload} or {"error": "message"}, never both.
type Result struct {
	errMsg  string
	payload map[string]interface{}
}

// Succeeded wraps an operation payload
func Succeeded(payload map[string]interface{}) Result {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return Result{payload: payload}
}

// Failed builds the error envelope for an operation
func Failed(operation string, err error) Result {
	return Result{errMsg: fmt.Sprintf("%s failed: %s", operation, err)}
}

// Errorf builds an error envelope with a free-form message
func Errorf(format string, args ...interface{}) Result {
	return Result{errMsg: fmt.Sprintf(format, args...)}
}

// OK reports whether the result is a success envelope
func (r Result) OK() bool {
	return r.errMsg == ""
}

// Error returns the error message, empty for a success envelope
func (r Result) Error() string {
	return r.errMsg
}

// Get returns a payload field of a success envelope
func (r Result) Get(key string) (interface{}, bool) {
	v, ok := r.payload[key]
	return v, ok
}

// MarshalJSON renders the tagged union
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.OK() {
		return json.Marshal(map[string]string{"error": r.errMsg})
	}
	out := make(map[string]interface{}, len(r.payload)+1)
	for k, v := range r.payload {
		out[k] = v
	}
	out["success"] = true
	return json.Marshal(out)
}

// String renders the envelope as the JSON text placed in a tool turn
func (r Result) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, "failed to encode result: "+err.Error())
	}
	return string(data)
}
