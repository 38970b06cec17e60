// Package gmail_tools provides MCP (Model Context Protocol) tools for interacting with Gmail.
//
// The tools are registered by RegisterGmailTools when the server runs with
// --service gmail. Every tool answers with an envelope (see package envelope):
// upstream results are returned as a RESPONSE carrying the Gmail API JSON,
// argument problems and upstream errors as an LLM_ERROR_RESPONSE, and token
// refresh failures as an ERROR with one of the AUTH_* error types.
//
// Messages:
//   - list_emails, search_emails: messages.list with query and label filters
//   - get_email: messages.get in minimal, full, raw or metadata format
//   - send_email, draft_email: compose a plain text message and send or draft it
//   - modify_email, delete_email: label changes and permanent deletion
//
// Batches:
//   - batch_modify_emails, batch_delete_emails: up to 1000 messages processed
//     in chunks of batchSize. Items of a chunk run concurrently, chunks run one
//     after another, and a failed item never affects the others.
//
// Labels:
//   - list_labels, create_label, update_label, delete_label, get_or_create_label
//
// Attachments:
//   - download_attachment: saves an attachment below savePath, ATTACHMENT_DIR
//     or the working directory
//
// Write tools are not registered in read-only mode.
package gmail_tools
