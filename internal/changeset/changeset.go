// Package changeset determines the working set of documents for a sync run.
// A nil selection means "every document under the root"; an explicit list
// (possibly empty) is authoritative for changed files. Documents that have
// never been synced are added by the engine regardless of change status.
package changeset

import (
	"context"
	"fmt"

	"github.com/agentstation/notesync/pkg/errors"
	"github.com/agentstation/notesync/pkg/logging"
)

// Mode selects how the working set is computed.
type Mode string

const (
	// ModeAll syncs every document under the root.
	ModeAll Mode = "all"

	// ModeChanged syncs documents changed between two git references.
	ModeChanged Mode = "changed"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAll, ModeChanged:
		return Mode(s), nil
	case "":
		return ModeAll, nil
	default:
		return "", fmt.Errorf("%w: mode %q (want %q or %q)", errors.ErrInvalidInput, s, ModeAll, ModeChanged)
	}
}

// DiffSource yields changed root-relative document paths between two refs.
type DiffSource interface {
	Changed(ctx context.Context, root, before, after string) ([]string, error)
}

// Selector computes the candidate path set for a run.
type Selector struct {
	Diff DiffSource
}

// Select returns nil for a full sync, or the explicit changed-path list.
// Missing references or an unavailable diff fall back to a full sync; any
// other diff failure propagates.
func (s *Selector) Select(ctx context.Context, root string, mode Mode, before, after string) ([]string, error) {
	if mode != ModeChanged {
		return nil, nil
	}
	if before == "" || after == "" {
		logging.Ctx(ctx).Debug().Msg("Missing git references, running full sync")
		return nil, nil
	}
	if s.Diff == nil {
		return nil, nil
	}

	paths, err := s.Diff.Changed(ctx, root, before, after)
	if err != nil {
		if errors.Is(err, errors.ErrDiffUnavailable) {
			logging.Ctx(ctx).Info().
				Str("before", before).
				Str("after", after).
				Msg("Diff unavailable, running full sync")
			return nil, nil
		}
		return nil, err
	}

	logging.Ctx(ctx).Debug().Int("changed", len(paths)).Msg("Computed change set")
	return paths, nil
}
