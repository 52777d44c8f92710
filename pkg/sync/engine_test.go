package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/notesync/internal/changeset"
	"github.com/agentstation/notesync/pkg/errors"
	"github.com/agentstation/notesync/pkg/frontmatter"
	"github.com/agentstation/notesync/pkg/notion"
)

const testRootID = "root-page"

type createdPage struct {
	parentID string
	title    string
	blocks   []notion.Block
}

// fakeRemote is an in-memory page store. Pages created under the root
// appear as child_page blocks in the root's children listing, paginated
// when pageSize is set.
type fakeRemote struct {
	mu       sync.Mutex
	nextID   int
	pages    map[string]*notion.Page
	children map[string][]notion.Block
	created  []createdPage
	trashed  []string
	calls    int
	pageSize int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		pages:    make(map[string]*notion.Page),
		children: make(map[string][]notion.Block),
	}
}

// seedPage registers an existing live page under the given parent.
func (f *fakeRemote) seedPage(id, parentID, title string) {
	f.pages[id] = &notion.Page{
		ID:     id,
		Parent: notion.Parent{Type: "page_id", PageID: parentID},
	}
	f.children[parentID] = append(f.children[parentID], notion.Block{
		ID:        id,
		Type:      "child_page",
		ChildPage: &notion.ChildPage{Title: title},
	})
}

func (f *fakeRemote) RetrievePage(_ context.Context, pageID string) (*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	page, ok := f.pages[pageID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *page
	return &copied, nil
}

func (f *fakeRemote) CreatePage(_ context.Context, parentID, title string, blocks []notion.Block) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.nextID++
	id := fmt.Sprintf("page-%d", f.nextID)
	f.pages[id] = &notion.Page{
		ID:     id,
		Parent: notion.Parent{Type: "page_id", PageID: parentID},
	}
	f.children[parentID] = append(f.children[parentID], notion.Block{
		ID:        id,
		Type:      "child_page",
		ChildPage: &notion.ChildPage{Title: title},
	})
	f.created = append(f.created, createdPage{parentID: parentID, title: title, blocks: blocks})
	return id, nil
}

func (f *fakeRemote) ListChildren(_ context.Context, blockID, cursor string) (notion.Children, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	all := f.children[blockID]
	if f.pageSize <= 0 {
		return notion.Children{Results: all}, nil
	}
	start := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "%d", &start)
	}
	end := start + f.pageSize
	if end >= len(all) {
		return notion.Children{Results: all[start:]}, nil
	}
	return notion.Children{
		Results:    all[start:end],
		HasMore:    true,
		NextCursor: fmt.Sprintf("%d", end),
	}, nil
}

func (f *fakeRemote) Trash(_ context.Context, pageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if page, ok := f.pages[pageID]; ok {
		page.Archived = true
	}
	f.trashed = append(f.trashed, pageID)
	return nil
}

func (f *fakeRemote) createdTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	titles := make([]string, len(f.created))
	for i, c := range f.created {
		titles[i] = c.title
	}
	return titles
}

type fakeDiff struct {
	paths []string
	err   error
}

func (f *fakeDiff) Changed(context.Context, string, string, string) ([]string, error) {
	return f.paths, f.err
}

func writeDoc(t *testing.T, root, rel, content string) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	return abs
}

func readDoc(t *testing.T, path string) frontmatter.Document {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return frontmatter.Parse(string(raw))
}

func TestEngineRunFirstSync(t *testing.T) {
	root := t.TempDir()
	aPath := writeDoc(t, root, "a.md", "# Alpha\n\nHello.\n")
	bPath := writeDoc(t, root, "guides/setup.md", "# Setup\n\nSteps.\n")

	remote := newFakeRemote()
	engine, err := New(remote, Options{Root: root, ParentPageID: testRootID})
	require.NoError(t, err)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.False(t, summary.DryRun)
	assert.Equal(t, 2, summary.Count)

	byPath := make(map[string]Result)
	for _, r := range summary.Results {
		byPath[r.Path] = r
	}

	a := byPath["a.md"]
	assert.Equal(t, ActionCreated, a.Action)
	assert.Equal(t, "A", a.Title)
	assert.Equal(t, "(root)", a.Folder)

	b := byPath["guides/setup.md"]
	assert.Equal(t, ActionCreated, b.Action)
	assert.Equal(t, "Setup", b.Title)
	assert.Equal(t, "Guides", b.Folder)

	// One folder page plus two document pages.
	assert.ElementsMatch(t, []string{"Guides", "A", "Setup"}, remote.createdTitles())

	// The document under guides/ was created under the folder page, not
	// the root.
	var folderID string
	for _, c := range remote.created {
		if c.title == "Guides" {
			assert.Equal(t, testRootID, c.parentID)
		}
	}
	for id, page := range remote.pages {
		if page.Parent.PageID == testRootID && remote.titleOf(id) == "Guides" {
			folderID = id
		}
	}
	require.NotEmpty(t, folderID)
	for _, c := range remote.created {
		if c.title == "Setup" {
			assert.Equal(t, folderID, c.parentID)
		}
	}

	// Identifiers were persisted back into both files.
	assert.Equal(t, a.PageID, readDoc(t, aPath).PageID)
	assert.Equal(t, b.PageID, readDoc(t, bPath).PageID)
	assert.NotEmpty(t, a.PageID)
	assert.NotEqual(t, a.PageID, b.PageID)
	assert.Empty(t, remote.trashed)
}

func (f *fakeRemote) titleOf(id string) string {
	for _, blocks := range f.children {
		for _, b := range blocks {
			if b.ID == id && b.ChildPage != nil {
				return b.ChildPage.Title
			}
		}
	}
	return ""
}

func TestEngineRunReplacesLivePage(t *testing.T) {
	root := t.TempDir()
	remote := newFakeRemote()
	remote.seedPage("existing-id", testRootID, "Notes")

	path := writeDoc(t, root, "notes.md", "---\nnotion_page_id: existing-id\n---\n# Notes\n\nBody.\n")

	engine, err := New(remote, Options{Root: root, ParentPageID: testRootID})
	require.NoError(t, err)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	result := summary.Results[0]
	assert.Equal(t, ActionUpdated, result.Action)
	assert.Equal(t, []string{"existing-id"}, remote.trashed)
	assert.NotEqual(t, "existing-id", result.PageID)
	assert.Equal(t, result.PageID, readDoc(t, path).PageID)
}

func TestEngineRunStaleIDRecreates(t *testing.T) {
	root := t.TempDir()
	path := writeDoc(t, root, "notes.md", "---\nnotion_page_id: gone-id\n---\nBody.\n")

	remote := newFakeRemote()
	engine, err := New(remote, Options{Root: root, ParentPageID: testRootID})
	require.NoError(t, err)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	assert.Equal(t, ActionCreated, summary.Results[0].Action)
	assert.Empty(t, remote.trashed)
	assert.NotEqual(t, "gone-id", readDoc(t, path).PageID)
}

func TestEngineRunArchivedPageRecreates(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "notes.md", "---\nnotion_page_id: archived-id\n---\nBody.\n")

	remote := newFakeRemote()
	remote.seedPage("archived-id", testRootID, "Notes")
	remote.pages["archived-id"].Archived = true

	engine, err := New(remote, Options{Root: root, ParentPageID: testRootID})
	require.NoError(t, err)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	assert.Equal(t, ActionCreated, summary.Results[0].Action)
	assert.Empty(t, remote.trashed)
}

func TestEngineRunReusesExistingFolder(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "guides/setup.md", "Body.\n")

	remote := newFakeRemote()
	remote.pageSize = 1
	// Filler children force pagination before the folder match.
	remote.seedPage("other-1", testRootID, "Changelog")
	remote.seedPage("other-2", testRootID, "Roadmap")
	remote.seedPage("guides-id", testRootID, "guides")

	engine, err := New(remote, Options{Root: root, ParentPageID: testRootID})
	require.NoError(t, err)

	_, err = engine.Run(context.Background())
	require.NoError(t, err)

	// Only the document page was created; the folder was matched by
	// normalized title against the existing "guides" child page.
	assert.Equal(t, []string{"Setup"}, remote.createdTitles())
	assert.Equal(t, "guides-id", remote.created[0].parentID)
}

func TestEngineRunFolderCacheSeededFromValidatedPage(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "guides/a.md", "---\nnotion_page_id: a-id\n---\nBody.\n")
	writeDoc(t, root, "guides/b.md", "Body.\n")

	remote := newFakeRemote()
	remote.seedPage("folder-id", testRootID, "Guides")
	remote.seedPage("a-id", "folder-id", "A")

	engine, err := New(remote, Options{Root: root, ParentPageID: testRootID})
	require.NoError(t, err)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)

	// The folder id came from the validated page's parent, so no root
	// listing or folder creation was needed.
	for _, c := range remote.created {
		assert.Equal(t, "folder-id", c.parentID)
	}
}

func TestEngineRunChangedMode(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "changed.md", "---\nnotion_page_id: changed-id\n---\nBody.\n")
	writeDoc(t, root, "unchanged.md", "---\nnotion_page_id: unchanged-id\n---\nBody.\n")
	newPath := writeDoc(t, root, "new.md", "Body.\n")

	remote := newFakeRemote()
	remote.seedPage("changed-id", testRootID, "Changed")
	remote.seedPage("unchanged-id", testRootID, "Unchanged")

	engine, err := New(remote,
		Options{
			Root:         root,
			ParentPageID: testRootID,
			Mode:         changeset.ModeChanged,
			Before:       "abc",
			After:        "def",
		},
		WithDiffSource(&fakeDiff{paths: []string{"changed.md"}}),
	)
	require.NoError(t, err)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)

	paths := []string{summary.Results[0].Path, summary.Results[1].Path}
	assert.ElementsMatch(t, []string{"changed.md", "new.md"}, paths)

	// The unsynced document is included even though git did not report it;
	// the unchanged synced document is not touched.
	assert.NotEmpty(t, readDoc(t, newPath).PageID)
	assert.Equal(t, []string{"changed-id"}, remote.trashed)
}

func TestEngineRunChangedModeDiffFailurePropagates(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "Body.\n")

	remote := newFakeRemote()
	engine, err := New(remote,
		Options{
			Root:         root,
			ParentPageID: testRootID,
			Mode:         changeset.ModeChanged,
			Before:       "abc",
			After:        "def",
		},
		WithDiffSource(&fakeDiff{err: errors.New("git exploded")}),
	)
	require.NoError(t, err)

	_, err = engine.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, remote.calls)
}

func TestEngineRunDryRun(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "Body.\n")
	writeDoc(t, root, "b.md", "---\nnotion_page_id: b-id\n---\nBody.\n")

	engine, err := New(nil, Options{Root: root, DryRun: true})
	require.NoError(t, err)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.True(t, summary.DryRun)

	byPath := make(map[string]Result)
	for _, r := range summary.Results {
		byPath[r.Path] = r
	}
	assert.Equal(t, ActionCreated, byPath["a.md"].Action)
	assert.Equal(t, ActionUpdated, byPath["b.md"].Action)
	assert.Equal(t, "b-id", byPath["b.md"].PageID)

	// Files are untouched.
	assert.Empty(t, readDoc(t, filepath.Join(root, "a.md")).PageID)
}

func TestEngineRunEmptyTree(t *testing.T) {
	remote := newFakeRemote()
	engine, err := New(remote, Options{Root: t.TempDir(), ParentPageID: testRootID})
	require.NoError(t, err)

	summary, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Results)
	assert.Zero(t, remote.calls)
}

func TestNewValidation(t *testing.T) {
	_, err := New(newFakeRemote(), Options{})
	require.Error(t, err)

	_, err = New(newFakeRemote(), Options{Root: "."})
	assert.ErrorIs(t, err, errors.ErrParentRequired)

	_, err = New(nil, Options{Root: ".", ParentPageID: "root"})
	require.Error(t, err)
}
