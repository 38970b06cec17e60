package batch

import (
	"fmt"
	"strings"
)

// truncatedIDLength is the number of identifier characters shown per failure
// line in a summary.
const truncatedIDLength = 16

// Failure is a single failed item.
type Failure struct {
	ID    string `json:"messageId"`
	Error string `json:"error"`
}

// Report is the aggregate outcome of Run. Every input identifier appears
// exactly once across Successes and Failures.
type Report struct {
	Total     int
	Successes []string
	Failures  []Failure

	// Chunks is the number of chunks that were executed.
	Chunks int
	// Fallbacks counts chunks whose unresolved items were re-run sequentially.
	Fallbacks int
}

// Successful returns the number of succeeded items.
func (r *Report) Successful() int {
	return len(r.Successes)
}

// Failed returns the number of failed items.
func (r *Report) Failed() int {
	return len(r.Failures)
}

// SummaryLabels holds the wording of a human-readable summary.
type SummaryLabels struct {
	Title        string
	SuccessLabel string
	FailureLabel string
}

var (
	// ModifySummary labels the summary of a batch label modification.
	ModifySummary = SummaryLabels{
		Title:        "Batch label modification complete.",
		SuccessLabel: "Successfully processed",
		FailureLabel: "Failed to process",
	}

	// DeleteSummary labels the summary of a batch delete.
	DeleteSummary = SummaryLabels{
		Title:        "Batch delete operation complete.",
		SuccessLabel: "Successfully deleted",
		FailureLabel: "Failed to delete",
	}
)

// Summary renders the report as multi-line text. Failed identifiers are
// truncated to their first 16 characters.
func (r *Report) Summary(labels SummaryLabels) string {
	var b strings.Builder
	b.WriteString(labels.Title)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s: %d messages\n", labels.SuccessLabel, r.Successful())

	if r.Failed() > 0 {
		fmt.Fprintf(&b, "%s: %d messages\n\n", labels.FailureLabel, r.Failed())
		b.WriteString("Failed message IDs:\n")
		lines := make([]string, 0, len(r.Failures))
		for _, f := range r.Failures {
			lines = append(lines, fmt.Sprintf("- %s... (%s)", truncateID(f.ID), f.Error))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	return b.String()
}

func truncateID(id string) string {
	runes := []rune(id)
	if len(runes) <= truncatedIDLength {
		return id
	}
	return string(runes[:truncatedIDLength])
}

// Payload is the JSON result returned by the batch tools.
type Payload struct {
	Success        bool      `json:"success"`
	Summary        string    `json:"summary"`
	TotalProcessed int       `json:"totalProcessed"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
	SuccessfulIDs  []string  `json:"successfulIds"`
	FailedIDs      []Failure `json:"failedIds"`
}

// Payload converts the report into the batch tool result. Partial failures
// still produce Success true; callers inspect Failed and FailedIDs.
func (r *Report) Payload(labels SummaryLabels) Payload {
	successes := r.Successes
	if successes == nil {
		successes = []string{}
	}
	failures := r.Failures
	if failures == nil {
		failures = []Failure{}
	}
	return Payload{
		Success:        true,
		Summary:        r.Summary(labels),
		TotalProcessed: r.Total,
		Successful:     r.Successful(),
		Failed:         r.Failed(),
		SuccessfulIDs:  successes,
		FailedIDs:      failures,
	}
}
