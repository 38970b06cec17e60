package instrumentation

// Known HTTP routes. Any other path is recorded as PathOther.
const (
	PathMCP             = "/mcp"
	PathHealthz         = "/healthz"
	PathReadyz          = "/readyz"
	PathHealthzDetailed = "/healthz/detailed"
	PathOther           = "other"
)

var knownPaths = map[string]struct{}{
	PathMCP:             {},
	PathHealthz:         {},
	PathReadyz:          {},
	PathHealthzDetailed: {},
}

// NormalizeHTTPPath maps a request path to a bounded label value.
func NormalizeHTTPPath(path string) string {
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return PathOther
}

// Operation label values for google_api_operations_total and batch_items_total.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationSend   = "send"
	OperationDraft  = "draft"
	OperationSearch = "search"
	OperationModify = "modify"
	OperationBatch  = "batch"
	OperationGreet  = "greet"
)
