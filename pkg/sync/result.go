package sync

import (
	"fmt"
	"strings"
)

// Action is what the engine did (or, in a dry run, would do) for a document.
type Action string

const (
	// ActionCreated means a new remote page was created for the document.
	ActionCreated Action = "created"

	// ActionUpdated means the document's existing remote page was replaced.
	ActionUpdated Action = "updated"
)

// RootFolderLabel is the folder label reported for root-level documents.
const RootFolderLabel = "(root)"

// Result records the outcome for one processed document.
type Result struct {
	Action Action `json:"action" yaml:"action"`
	Title  string `json:"title" yaml:"title"`
	Path   string `json:"path" yaml:"path"`
	Folder string `json:"folder" yaml:"folder"`
	PageID string `json:"page_id,omitempty" yaml:"page_id,omitempty"`
}

// Summary is the audit trail of one run: per-document results in candidate
// order plus a count. It is never persisted.
type Summary struct {
	Results []Result `json:"results" yaml:"results"`
	Count   int      `json:"count" yaml:"count"`
	DryRun  bool     `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// String returns a human-readable one-line summary.
func (s *Summary) String() string {
	var created, updated int
	for _, r := range s.Results {
		switch r.Action {
		case ActionCreated:
			created++
		case ActionUpdated:
			updated++
		}
	}

	var parts []string
	if s.DryRun {
		parts = append(parts, "(dry run)")
	}
	parts = append(parts, fmt.Sprintf("%d synced", s.Count))
	if created > 0 {
		parts = append(parts, fmt.Sprintf("%d created", created))
	}
	if updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", updated))
	}
	return strings.Join(parts, ", ")
}
