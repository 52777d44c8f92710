// Package gitdiff lists the Markdown documents changed between two git
// references. It is the diff collaborator of the change selector: a ref
// range git cannot resolve (shallow clones, unknown refs) is signaled as
// errors.ErrDiffUnavailable so callers can fall back to a full sync.
package gitdiff

import (
	"context"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/agentstation/notesync/pkg/errors"
	"github.com/agentstation/notesync/pkg/logging"
)

// gitRefErrorExit is the exit status git reports for an invalid or
// unresolvable revision range.
const gitRefErrorExit = 128

// CommandRunner executes a command and returns its combined stdout.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Differ computes changed document paths from git history.
type Differ struct {
	// Dir is the working directory git runs in ("" means the process cwd).
	Dir string

	// Runner executes git; replaceable in tests.
	Runner CommandRunner
}

// New creates a Differ running git in dir.
func New(dir string) *Differ {
	return &Differ{
		Dir:    dir,
		Runner: runGit,
	}
}

// Changed returns the deduplicated, root-relative paths of .md files under
// root that differ between the two references. An unresolvable ref range
// returns errors.ErrDiffUnavailable; any other git failure propagates.
func (d *Differ) Changed(ctx context.Context, root, before, after string) ([]string, error) {
	out, err := d.Runner(ctx, d.Dir, "git", "diff", "--name-only", before, after)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == gitRefErrorExit {
			logging.Ctx(ctx).Debug().
				Str("before", before).
				Str("after", after).
				Msg("Diff range unavailable, falling back to full sync")
			return nil, errors.ErrDiffUnavailable
		}
		return nil, err
	}

	filterRoot, err := d.repoRelativeRoot(ctx, root)
	if err != nil {
		return nil, err
	}

	return filterPaths(string(out), filterRoot), nil
}

// repoRelativeRoot resolves root against the repository top level, since
// diff output paths are always repo-relative. Relative roots are assumed to
// already be repo-relative and pass through.
func (d *Differ) repoRelativeRoot(ctx context.Context, root string) (string, error) {
	if !filepath.IsAbs(root) {
		return root, nil
	}
	out, err := d.Runner(ctx, root, "git", "rev-parse", "--show-prefix")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == gitRefErrorExit {
			return "", errors.ErrDiffUnavailable
		}
		return "", err
	}
	prefix := strings.TrimSuffix(strings.TrimSpace(string(out)), "/")
	if prefix == "" {
		return ".", nil
	}
	return prefix, nil
}

// filterPaths keeps unique .md entries under root, relative to root.
func filterPaths(output, root string) []string {
	root = path.Clean(filepath.ToSlash(root))

	seen := make(map[string]struct{})
	paths := []string{}
	for _, line := range strings.Split(output, "\n") {
		entry := path.Clean(filepath.ToSlash(strings.TrimSpace(line)))
		if entry == "" || entry == "." || entry == root {
			continue
		}
		rel, ok := strings.CutPrefix(entry, root+"/")
		if !ok && root != "." {
			continue
		}
		if root == "." {
			rel = entry
		}
		if !strings.EqualFold(path.Ext(rel), ".md") {
			continue
		}
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		paths = append(paths, rel)
	}
	return paths
}

func runGit(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.Output()
}
