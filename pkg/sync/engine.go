package sync

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/agentstation/notesync/internal/changeset"
	"github.com/agentstation/notesync/internal/gitdiff"
	"github.com/agentstation/notesync/internal/runner"
	"github.com/agentstation/notesync/pkg/convert"
	"github.com/agentstation/notesync/pkg/docpath"
	"github.com/agentstation/notesync/pkg/errors"
	"github.com/agentstation/notesync/pkg/frontmatter"
	"github.com/agentstation/notesync/pkg/logging"
)

// Engine reconciles the local Markdown tree with the remote page tree. One
// Engine performs one run; the folder cache and validated-identifier memo
// are per-run state.
type Engine struct {
	client    RemoteClient
	converter BlockConverter
	diff      changeset.DiffSource
	opts      Options

	folders   *folderCache
	validated *idSet
}

// Option customizes an Engine.
type Option func(*Engine)

// WithConverter replaces the default Markdown converter.
func WithConverter(c BlockConverter) Option {
	return func(e *Engine) { e.converter = c }
}

// WithDiffSource replaces the git diff collaborator, primarily for tests.
func WithDiffSource(d changeset.DiffSource) Option {
	return func(e *Engine) { e.diff = d }
}

// New creates an Engine. The client may be nil only for dry runs.
func New(client RemoteClient, opts Options, optFns ...Option) (*Engine, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if client == nil && !opts.DryRun {
		return nil, &errors.ConfigError{Component: "sync", Message: "remote client is required"}
	}

	e := &Engine{
		client:    client,
		converter: convert.New(),
		diff:      gitdiff.New(""),
		opts:      opts,
		folders:   newFolderCache(),
		validated: newIDSet(),
	}
	for _, fn := range optFns {
		fn(e)
	}
	return e, nil
}

// candidate is one document in the working set.
type candidate struct {
	relPath string
	absPath string
	info    docpath.Info
}

// Run executes the reconciliation: change selection, identifier validation
// pre-pass, folder resolution, then the bounded per-document pass. The run
// either processes every selected document or stops at the first remote
// failure.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	ctx = logging.WithRunID(ctx, uuid.NewString())

	candidates, err := e.discover(ctx)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Int("documents", len(candidates)).
		Str("mode", string(e.opts.Mode)).
		Bool("dry_run", e.opts.DryRun).
		Msg("Starting sync")

	if len(candidates) == 0 {
		return &Summary{Results: []Result{}, DryRun: e.opts.DryRun}, nil
	}

	if e.opts.DryRun {
		return e.plan(candidates)
	}

	if err := e.prePass(ctx, candidates); err != nil {
		return nil, err
	}
	if err := e.resolveFolders(ctx, candidates); err != nil {
		return nil, err
	}

	tasks := make([]runner.Task[Result], len(candidates))
	for i, cand := range candidates {
		cand := cand
		tasks[i] = func(ctx context.Context) (Result, error) {
			return e.syncDocument(ctx, cand)
		}
	}
	results, err := runner.Run(ctx, e.opts.Concurrency, tasks)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Results: results, Count: len(results)}
	logging.Ctx(ctx).Info().Str("summary", summary.String()).Msg("Sync complete")
	return summary, nil
}

// discover computes the candidate list: the change selection, plus every
// document that has never been synced regardless of change status.
func (e *Engine) discover(ctx context.Context) ([]candidate, error) {
	all, err := e.listDocuments()
	if err != nil {
		return nil, err
	}

	selector := &changeset.Selector{Diff: e.diff}
	selected, err := selector.Select(ctx, e.opts.Root, e.opts.Mode, e.opts.Before, e.opts.After)
	if err != nil {
		return nil, err
	}

	var included []string
	if selected == nil {
		included = all
	} else {
		changed := make(map[string]struct{}, len(selected))
		for _, rel := range selected {
			changed[rel] = struct{}{}
		}
		for _, rel := range all {
			if _, ok := changed[rel]; ok {
				included = append(included, rel)
				continue
			}
			// First-sync documents are never skipped.
			raw, err := os.ReadFile(e.absPath(rel))
			if err != nil {
				return nil, errors.WrapIO("read", rel, err)
			}
			if frontmatter.Parse(string(raw)).PageID == "" {
				included = append(included, rel)
			}
		}
	}

	candidates := make([]candidate, len(included))
	for i, rel := range included {
		candidates[i] = candidate{
			relPath: rel,
			absPath: e.absPath(rel),
			info:    docpath.Classify(rel),
		}
	}
	return candidates, nil
}

// listDocuments walks the root for .md files, returning root-relative
// slash paths in walk order.
func (e *Engine) listDocuments() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(e.opts.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != e.opts.Root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), ".md") {
			return nil
		}
		rel, err := filepath.Rel(e.opts.Root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapIO("walk", e.opts.Root, err)
	}
	return paths, nil
}

func (e *Engine) absPath(rel string) string {
	return filepath.Join(e.opts.Root, filepath.FromSlash(rel))
}

// plan reports the action each candidate would take, without remote calls
// or file mutation.
func (e *Engine) plan(candidates []candidate) (*Summary, error) {
	results := make([]Result, len(candidates))
	for i, cand := range candidates {
		raw, err := os.ReadFile(cand.absPath)
		if err != nil {
			return nil, errors.WrapIO("read", cand.relPath, err)
		}
		doc := frontmatter.Parse(string(raw))

		action := ActionCreated
		if doc.PageID != "" {
			action = ActionUpdated
		}
		results[i] = Result{
			Action: action,
			Title:  cand.info.Title,
			Path:   cand.relPath,
			Folder: folderLabel(cand.info),
			PageID: doc.PageID,
		}
	}
	return &Summary{Results: results, Count: len(results), DryRun: true}, nil
}

// prePass validates recorded identifiers concurrently and seeds the folder
// cache from validated pages' parents. It is awaited in full before folder
// resolution, so later stages read the caches without coordination.
func (e *Engine) prePass(ctx context.Context, candidates []candidate) error {
	tasks := make([]runner.Task[struct{}], len(candidates))
	for i, cand := range candidates {
		cand := cand
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			raw, err := os.ReadFile(cand.absPath)
			if err != nil {
				return struct{}{}, errors.WrapIO("read", cand.relPath, err)
			}
			doc := frontmatter.Parse(string(raw))
			if doc.PageID == "" {
				return struct{}{}, nil
			}

			page, err := e.client.RetrievePage(ctx, doc.PageID)
			if err != nil {
				if errors.Is(err, errors.ErrNotFound) {
					logging.Ctx(ctx).Debug().
						Str("path", cand.relPath).
						Str("page_id", doc.PageID).
						Msg("Recorded page no longer resolves, will recreate")
					return struct{}{}, nil
				}
				return struct{}{}, errors.WrapSync(cand.relPath, err)
			}
			if page.Archived || page.InTrash {
				return struct{}{}, nil
			}

			e.validated.add(doc.PageID)
			if cand.info.Folder != "" && page.Parent.IsPage() {
				e.folders.setIfAbsent(docpath.Normalize(cand.info.Folder), page.Parent.PageID)
			}
			return struct{}{}, nil
		}
	}
	_, err := runner.Run(ctx, e.opts.Concurrency, tasks)
	return err
}

// resolveFolders ensures one remote folder page per unique folder title,
// reusing an existing direct child of the root when its normalized title
// matches and creating one otherwise. Folder pages are never trashed.
func (e *Engine) resolveFolders(ctx context.Context, candidates []candidate) error {
	type folder struct {
		normalized string
		display    string
	}
	seen := make(map[string]struct{})
	var folders []folder
	for _, cand := range candidates {
		if cand.info.Folder == "" {
			continue
		}
		norm := docpath.Normalize(cand.info.Folder)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		folders = append(folders, folder{normalized: norm, display: cand.info.Folder})
	}

	for _, f := range folders {
		if _, ok := e.folders.get(f.normalized); ok {
			continue
		}

		id, err := e.findFolderPage(ctx, f.normalized)
		if err != nil {
			return err
		}
		if id == "" {
			id, err = e.client.CreatePage(ctx, e.opts.ParentPageID, f.display, nil)
			if err != nil {
				return err
			}
			logging.Ctx(ctx).Info().Str("folder", f.display).Str("page_id", id).Msg("Created folder page")
		} else {
			logging.Ctx(ctx).Debug().Str("folder", f.display).Str("page_id", id).Msg("Reusing folder page")
		}
		e.folders.setIfAbsent(f.normalized, id)
	}
	return nil
}

// findFolderPage scans the root's direct children for a child page whose
// normalized title matches, paginating until found or exhausted.
func (e *Engine) findFolderPage(ctx context.Context, normalized string) (string, error) {
	cursor := ""
	for {
		children, err := e.client.ListChildren(ctx, e.opts.ParentPageID, cursor)
		if err != nil {
			return "", err
		}
		for _, block := range children.Results {
			if block.Type != "child_page" || block.ChildPage == nil {
				continue
			}
			if docpath.Normalize(block.ChildPage.Title) == normalized {
				return block.ID, nil
			}
		}
		if !children.HasMore || children.NextCursor == "" {
			return "", nil
		}
		cursor = children.NextCursor
	}
}

// syncDocument reconciles one document: fresh decode, create-or-replace on
// the remote store, then persist the returned id into the file in place.
func (e *Engine) syncDocument(ctx context.Context, cand candidate) (Result, error) {
	ctx = logging.WithDocument(ctx, cand.relPath)

	raw, err := os.ReadFile(cand.absPath)
	if err != nil {
		return Result{}, errors.WrapIO("read", cand.relPath, err)
	}
	doc := frontmatter.Parse(string(raw))

	parentID := e.opts.ParentPageID
	if cand.info.Folder != "" {
		if id, ok := e.folders.get(docpath.Normalize(cand.info.Folder)); ok {
			parentID = id
		}
	}

	blocks := e.converter.ToBlocks(doc.Body)

	action := ActionCreated
	if doc.PageID != "" {
		valid, err := e.validateID(ctx, doc.PageID)
		if err != nil {
			return Result{}, errors.WrapSync(cand.relPath, err)
		}
		if valid {
			// Replace is trash-then-create: the old page is gone before the
			// new one exists. A failure in between leaves a stale id on
			// disk, which the next run detects and recreates.
			if err := e.client.Trash(ctx, doc.PageID); err != nil {
				return Result{}, errors.WrapSync(cand.relPath, err)
			}
			action = ActionUpdated
		}
	}

	pageID, err := e.client.CreatePage(ctx, parentID, cand.info.Title, blocks)
	if err != nil {
		return Result{}, errors.WrapSync(cand.relPath, err)
	}

	rewritten := frontmatter.Compose(doc.Body, doc.Fields, pageID)
	if err := os.WriteFile(cand.absPath, []byte(rewritten), 0644); err != nil {
		return Result{}, errors.WrapIO("write", cand.relPath, err)
	}

	logging.Ctx(ctx).Info().
		Str("action", string(action)).
		Str("title", cand.info.Title).
		Str("page_id", pageID).
		Msg("Synced document")

	return Result{
		Action: action,
		Title:  cand.info.Title,
		Path:   cand.relPath,
		Folder: folderLabel(cand.info),
		PageID: pageID,
	}, nil
}

// validateID reports whether a recorded identifier still resolves to a
// live page, consulting the per-run memo before calling out.
func (e *Engine) validateID(ctx context.Context, pageID string) (bool, error) {
	if e.validated.has(pageID) {
		return true, nil
	}
	page, err := e.client.RetrievePage(ctx, pageID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if page.Archived || page.InTrash {
		return false, nil
	}
	e.validated.add(pageID)
	return true, nil
}

func folderLabel(info docpath.Info) string {
	if info.Folder == "" {
		return RootFolderLabel
	}
	return info.Folder
}
