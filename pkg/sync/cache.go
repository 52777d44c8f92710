package sync

import "sync"

// folderCache maps normalized folder titles to remote page ids for the
// duration of one run. It is seeded opportunistically during the pre-pass,
// completed during folder resolution, and only read afterwards; the mutex
// covers the concurrent pre-pass writes.
type folderCache struct {
	mu    sync.Mutex
	pages map[string]string
}

func newFolderCache() *folderCache {
	return &folderCache{pages: make(map[string]string)}
}

// setIfAbsent records pageID for title unless one is already known.
func (c *folderCache) setIfAbsent(title, pageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pages[title]; !ok {
		c.pages[title] = pageID
	}
}

func (c *folderCache) get(title string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.pages[title]
	return id, ok
}

// idSet is the per-run memo of remote identifiers confirmed to exist,
// avoiding redundant existence checks for the same id within a run.
type idSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newIDSet() *idSet {
	return &idSet{ids: make(map[string]struct{})}
}

func (s *idSet) add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

func (s *idSet) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}
