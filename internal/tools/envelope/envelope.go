package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/xtrn-google-mcp/internal/google"
)

// MessageType is the value of the xtrn_message_type header field.
type MessageType string

const (
	// TypeError is an error the host application must handle.
	TypeError MessageType = "ERROR"
	// TypeResponse is a successful tool result.
	TypeResponse MessageType = "RESPONSE"
	// TypeLLMError is an error the model can act on, such as a bad argument.
	TypeLLMError MessageType = "LLM_ERROR_RESPONSE"
)

// ErrorType classifies ERROR envelopes.
type ErrorType string

const (
	ErrorTypeAuth             ErrorType = "AUTH_ERROR"
	ErrorTypeAuthInvalidGrant ErrorType = "AUTH_INVALID_GRANT"
	ErrorTypeAuthMissing      ErrorType = "AUTH_MISSING_FIELDS"
	ErrorTypeAuthUnknown      ErrorType = "AUTH_UNKNOWN_ERROR"
	ErrorTypeUnknown          ErrorType = "UNKNOWN_ERROR"
)

// UnknownErrorMessage is used when a failure carries no usable message.
const UnknownErrorMessage = "An unknown error occurred"

// Header is the first content entry of every envelope.
type Header struct {
	MessageType MessageType `json:"xtrn_message_type"`
	ErrorType   ErrorType   `json:"error_type,omitempty"`
	Message     string      `json:"message,omitempty"`
}

func (h Header) text() string {
	// Header only holds strings; Marshal cannot fail.
	b, _ := json.Marshal(h)
	return string(b)
}

func result(isError bool, h Header, payload ...string) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, 1+len(payload))
	content = append(content, mcp.NewTextContent(h.text()))
	for _, p := range payload {
		content = append(content, mcp.NewTextContent(p))
	}
	return &mcp.CallToolResult{
		IsError: isError,
		Content: content,
	}
}

// Error returns an ERROR envelope with only the header entry.
func Error(errorType ErrorType, message string) *mcp.CallToolResult {
	return result(true, Header{MessageType: TypeError, ErrorType: errorType, Message: message})
}

// Response returns a RESPONSE envelope carrying text as its payload.
func Response(text string) *mcp.CallToolResult {
	return result(false, Header{MessageType: TypeResponse}, text)
}

// JSON returns a RESPONSE envelope carrying v serialized as JSON. A value that
// cannot be serialized yields an UNKNOWN_ERROR envelope.
func JSON(v interface{}) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return Error(ErrorTypeUnknown, fmt.Sprintf("failed to encode response: %v", err))
	}
	return Response(string(b))
}

// LLMError returns an LLM_ERROR_RESPONSE envelope carrying text.
func LLMError(text string) *mcp.CallToolResult {
	return result(true, Header{MessageType: TypeLLMError}, text)
}

// FromError converts a tool failure into an envelope.
// Token refresh failures become auth ERROR envelopes; anything with a message
// is reported to the model; nil or empty errors become UNKNOWN_ERROR.
func FromError(err error) *mcp.CallToolResult {
	if err == nil {
		return Error(ErrorTypeUnknown, UnknownErrorMessage)
	}

	if authErr, ok := google.AsAuthError(err); ok {
		return Error(AuthErrorType(authErr.Kind), authErr.Error())
	}

	msg := err.Error()
	if msg == "" {
		return Error(ErrorTypeUnknown, UnknownErrorMessage)
	}
	return LLMError(msg)
}

// FromErrorWithPrefix is FromError with msgPrefix prepended to LLM-facing
// messages. Auth failures keep their canonical message.
func FromErrorWithPrefix(msgPrefix string, err error) *mcp.CallToolResult {
	if err == nil {
		return FromError(nil)
	}
	if _, ok := google.AsAuthError(err); ok {
		return FromError(err)
	}
	if err.Error() == "" {
		return FromError(err)
	}
	return LLMError(msgPrefix + err.Error())
}

// AuthErrorType maps a refresh failure kind to its envelope error type.
func AuthErrorType(kind google.ErrorKind) ErrorType {
	switch kind {
	case google.KindInvalidGrant:
		return ErrorTypeAuthInvalidGrant
	case google.KindMissingTokenFields:
		return ErrorTypeAuthMissing
	default:
		return ErrorTypeAuthUnknown
	}
}

// ErrNoHeader is returned by ParseHeader for results without a header entry.
var ErrNoHeader = errors.New("envelope: result has no header")

// ParseHeader decodes the header of a tool result.
func ParseHeader(res *mcp.CallToolResult) (Header, error) {
	var h Header
	if res == nil || len(res.Content) == 0 {
		return h, ErrNoHeader
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		return h, ErrNoHeader
	}
	if err := json.Unmarshal([]byte(tc.Text), &h); err != nil {
		return h, fmt.Errorf("envelope: decode header: %w", err)
	}
	if h.MessageType == "" {
		return h, ErrNoHeader
	}
	return h, nil
}

// PayloadText returns the payload entry of a result, or "" when absent.
func PayloadText(res *mcp.CallToolResult) string {
	if res == nil || len(res.Content) < 2 {
		return ""
	}
	tc, ok := res.Content[1].(mcp.TextContent)
	if !ok {
		return ""
	}
	return tc.Text
}
