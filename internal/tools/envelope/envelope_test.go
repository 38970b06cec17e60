package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/xtrn-google-mcp/internal/google"
)

func contentText(t *testing.T, res *mcp.CallToolResult, i int) string {
	t.Helper()
	require.Greater(t, len(res.Content), i)
	tc, ok := res.Content[i].(mcp.TextContent)
	require.True(t, ok, "content %d is not text", i)
	assert.Equal(t, "text", tc.Type)
	return tc.Text
}

func TestError(t *testing.T) {
	res := Error(ErrorTypeAuthInvalidGrant, "Refresh token is invalid or revoked")

	assert.True(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.JSONEq(t,
		`{"xtrn_message_type":"ERROR","error_type":"AUTH_INVALID_GRANT","message":"Refresh token is invalid or revoked"}`,
		contentText(t, res, 0))
}

func TestResponse(t *testing.T) {
	res := Response("hello")

	assert.False(t, res.IsError)
	require.Len(t, res.Content, 2)
	assert.JSONEq(t, `{"xtrn_message_type":"RESPONSE"}`, contentText(t, res, 0))
	assert.Equal(t, "hello", contentText(t, res, 1))
}

func TestJSON(t *testing.T) {
	res := JSON(map[string]interface{}{"success": true, "id": "abc"})

	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"success":true,"id":"abc"}`, PayloadText(res))

	bad := JSON(map[string]interface{}{"ch": make(chan int)})
	assert.True(t, bad.IsError)
	h, err := ParseHeader(bad)
	require.NoError(t, err)
	assert.Equal(t, ErrorTypeUnknown, h.ErrorType)
}

func TestLLMError(t *testing.T) {
	res := LLMError("At least one of addLabelIds or removeLabelIds must be provided")

	assert.True(t, res.IsError)
	require.Len(t, res.Content, 2)
	assert.JSONEq(t, `{"xtrn_message_type":"LLM_ERROR_RESPONSE"}`, contentText(t, res, 0))
	assert.Equal(t, "At least one of addLabelIds or removeLabelIds must be provided", contentText(t, res, 1))
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantType    MessageType
		wantErrType ErrorType
		wantMessage string
		wantPayload string
	}{
		{
			name:        "nil",
			err:         nil,
			wantType:    TypeError,
			wantErrType: ErrorTypeUnknown,
			wantMessage: UnknownErrorMessage,
		},
		{
			name:        "invalid grant",
			err:         &google.AuthError{Kind: google.KindInvalidGrant},
			wantType:    TypeError,
			wantErrType: ErrorTypeAuthInvalidGrant,
			wantMessage: "Refresh token is invalid or revoked",
		},
		{
			name:        "missing fields wrapped",
			err:         fmt.Errorf("get client: %w", &google.AuthError{Kind: google.KindMissingTokenFields}),
			wantType:    TypeError,
			wantErrType: ErrorTypeAuthMissing,
			wantMessage: "Missing access token or expiry date from Google",
		},
		{
			name:        "unknown auth",
			err:         &google.AuthError{Kind: google.KindUnknown, Err: errors.New("dial tcp: timeout")},
			wantType:    TypeError,
			wantErrType: ErrorTypeAuthUnknown,
			wantMessage: "Unknown error during token refresh: dial tcp: timeout",
		},
		{
			name:        "upstream error",
			err:         errors.New("googleapi: Error 404: Requested entity was not found., notFound"),
			wantType:    TypeLLMError,
			wantPayload: "googleapi: Error 404: Requested entity was not found., notFound",
		},
		{
			name:        "empty message",
			err:         errors.New(""),
			wantType:    TypeError,
			wantErrType: ErrorTypeUnknown,
			wantMessage: UnknownErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FromError(tt.err)
			assert.True(t, res.IsError)

			h, err := ParseHeader(res)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, h.MessageType)
			assert.Equal(t, tt.wantErrType, h.ErrorType)
			assert.Equal(t, tt.wantMessage, h.Message)
			assert.Equal(t, tt.wantPayload, PayloadText(res))
		})
	}
}

func TestFromErrorWithPrefix(t *testing.T) {
	res := FromErrorWithPrefix("Failed to download attachment: ", errors.New("not found"))
	assert.Equal(t, "Failed to download attachment: not found", PayloadText(res))

	auth := FromErrorWithPrefix("Failed: ", &google.AuthError{Kind: google.KindInvalidGrant})
	h, err := ParseHeader(auth)
	require.NoError(t, err)
	assert.Equal(t, ErrorTypeAuthInvalidGrant, h.ErrorType)
}

func TestParseHeader_Invalid(t *testing.T) {
	_, err := ParseHeader(nil)
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = ParseHeader(&mcp.CallToolResult{})
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = ParseHeader(mcp.NewToolResultText("not json"))
	assert.Error(t, err)

	_, err = ParseHeader(mcp.NewToolResultText(`{"other":1}`))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestHeaderOmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(Header{MessageType: TypeResponse})
	require.NoError(t, err)
	assert.Equal(t, `{"xtrn_message_type":"RESPONSE"}`, string(b))
}
