package server

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cardroom/dealerd/internal/fileutil"
	"github.com/cardroom/dealerd/internal/game"
)

// StatusFile is the sentinel probed out-of-band for session lifecycle:
// its contents move from RUNNING to DONE. Writes are atomic so a probe
// never reads a half-written state.
type StatusFile struct {
	path string
}

// NewStatusFile points at the sentinel path without touching it.
func NewStatusFile(path string) *StatusFile {
	return &StatusFile{path: path}
}

// Running marks the session as in progress.
func (s *StatusFile) Running() error {
	return fileutil.WriteFileAtomic(s.path, []byte("RUNNING\n"), 0644)
}

// Done marks the session finished, appending the cumulative score map
// in a stable, id-sorted rendering.
func (s *StatusFile) Done(scores map[game.PlayerID]int) error {
	var b strings.Builder
	b.WriteString("DONE")
	for _, p := range playerIDs(scores) {
		fmt.Fprintf(&b, " %d:%d", p, scores[p])
	}
	b.WriteString("\n")
	return fileutil.WriteFileAtomic(s.path, []byte(b.String()), 0644)
}

func playerIDs(scores map[game.PlayerID]int) []game.PlayerID {
	ids := make([]game.PlayerID, 0, len(scores))
	for p := range scores {
		ids = append(ids, p)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
