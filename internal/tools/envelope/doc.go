// Package envelope builds the xtrn response envelope returned by every tool.
//
// The first content entry of every result is a JSON header:
//
//	{"xtrn_message_type":"RESPONSE"}
//	{"xtrn_message_type":"ERROR","error_type":"AUTH_INVALID_GRANT","message":"..."}
//	{"xtrn_message_type":"LLM_ERROR_RESPONSE"}
//
// Successful results and LLM-facing errors append a second text entry holding
// the payload. ERROR results are meant for the host application and carry no
// payload.
package envelope
