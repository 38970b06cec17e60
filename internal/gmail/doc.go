// Package gmail wraps the Gmail v1 API for the tool handlers.
//
// A Client is bound to one authorized *http.Client, normally obtained from a
// google.TokenCache, and always acts on the authenticated user ("me"). Every
// method takes a context that is passed to the underlying API call.
//
// The package also builds the raw RFC 822 text used by send_email and
// draft_email (EmailMessage.Raw) and locates attachment metadata inside a
// message payload.
package gmail
