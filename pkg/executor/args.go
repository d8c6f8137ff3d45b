package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// arguments is the decoded argument object of one tool request
type arguments map[string]interface{}

func decodeArguments(raw json.RawMessage) (arguments, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return arguments{}, nil
	}

	var args arguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if args == nil {
		args = arguments{}
	}
	return args, nil
}

// str returns a trimmed string argument; non-string values yield ""
func (a arguments) str(key string) string {
	v, ok := a[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// integer returns an integer argument given as a JSON number or numeric string
func (a arguments) integer(key string) (int, bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false, nil
	}

	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false, fmt.Errorf("%s must be an integer, got %v", key, n)
		}
		if n >= math.MaxInt32 || n <= math.MinInt32 {
			return 0, false, fmt.Errorf("%s is out of range: %v", key, n)
		}
		return int(n), true, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false, nil
		}
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a 32-bit integer, got %q", key, n)
		}
		return int(i), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be an integer, got %T", key, v)
	}
}

// identifier returns a string or numeric argument rendered as a string
func (a arguments) identifier(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
