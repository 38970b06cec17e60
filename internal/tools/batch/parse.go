package batch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports an unusable ID argument. Param names the argument or
// the offending element, e.g. "messageIds[2]".
type ParseError struct {
	Param  string
	Reason string
}

func (e *ParseError) Error() string {
	return e.Param + " " + e.Reason
}

// ParseStringOrArray parses a parameter that can be a single string, an array
// of strings or a string holding a JSON array of strings.
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, &ParseError{Param: paramName, Reason: "is required"}
	}

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, &ParseError{Param: paramName, Reason: "cannot be empty"}
		}
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var arr []interface{}
			if err := json.Unmarshal([]byte(v), &arr); err == nil {
				return parseArray(arr, paramName)
			}
		}
		return []string{v}, nil
	case []string:
		arr := make([]interface{}, len(v))
		for i, s := range v {
			arr[i] = s
		}
		return parseArray(arr, paramName)
	case []interface{}:
		return parseArray(v, paramName)
	default:
		return nil, &ParseError{Param: paramName, Reason: "must be a string or array of strings"}
	}
}

func parseArray(v []interface{}, paramName string) ([]string, error) {
	if len(v) == 0 {
		return nil, &ParseError{Param: paramName, Reason: "cannot be empty"}
	}
	result := make([]string, 0, len(v))
	for i, item := range v {
		str, ok := item.(string)
		if !ok {
			return nil, &ParseError{Param: fmt.Sprintf("%s[%d]", paramName, i), Reason: "must be a string"}
		}
		if str == "" {
			return nil, &ParseError{Param: fmt.Sprintf("%s[%d]", paramName, i), Reason: "cannot be empty"}
		}
		result = append(result, str)
	}
	return result, nil
}
