// Package sync reconciles a tree of Markdown documents on disk with a
// mirrored tree of Notion pages. Folder structure becomes grouping pages,
// and each document's page id is persisted back into its frontmatter so
// repeated runs update rather than duplicate remote pages.
package sync

import (
	"context"

	"github.com/agentstation/notesync/internal/changeset"
	"github.com/agentstation/notesync/pkg/errors"
	"github.com/agentstation/notesync/pkg/notion"
)

// DefaultConcurrency bounds in-flight remote operations when none is set.
const DefaultConcurrency = 3

// RemoteClient is the capability surface the engine needs from the remote
// document store.
type RemoteClient interface {
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
	CreatePage(ctx context.Context, parentID, title string, blocks []notion.Block) (string, error)
	ListChildren(ctx context.Context, blockID, cursor string) (notion.Children, error)
	Trash(ctx context.Context, pageID string) error
}

// BlockConverter turns a document body into remote content blocks. It must
// not fail; conversion errors degrade to fallback content.
type BlockConverter interface {
	ToBlocks(body string) []notion.Block
}

// Options configures one reconciliation run.
type Options struct {
	// Root is the directory holding the Markdown tree.
	Root string

	// ParentPageID is the Notion page all folder and root-level document
	// pages are created under.
	ParentPageID string

	// Mode selects the working set: every document, or only changed ones.
	Mode changeset.Mode

	// Before and After are the git references compared in changed mode.
	Before string
	After  string

	// Concurrency bounds in-flight remote operations. Values below 1 are
	// raised to 1; zero means DefaultConcurrency.
	Concurrency int

	// DryRun reports the planned action per document without touching the
	// remote store or rewriting files.
	DryRun bool
}

// normalize applies defaults and validates required fields.
func (o *Options) normalize() error {
	if o.Root == "" {
		return &errors.ConfigError{Component: "sync", Message: "root directory is required"}
	}
	if o.ParentPageID == "" && !o.DryRun {
		return errors.ErrParentRequired
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.Mode == "" {
		o.Mode = changeset.ModeAll
	}
	return nil
}
