package mint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/thecardroom/tcr/common/logger"
)

// CursorStore keeps how far into its metadata set a drop has minted.
type CursorStore interface {
	DropCursor(drop string) (int, error)
	SetDropCursor(drop string, n int) error
}

type metadataSet struct {
	Files []string `json:"files"`
}

// MetadataList hands out the NFT files of a drop in order. Next moves a
// working position; Commit persists it and Revert returns to the last
// commit, so a failed mint puts its files back.
type MetadataList struct {
	drop      string
	dir       string
	files     []string
	store     CursorStore
	committed int
	pos       int
}

func OpenMetadataList(setFile, drop string, store CursorStore) (*MetadataList, error) {
	data, err := os.ReadFile(setFile)
	if err != nil {
		return nil, fmt.Errorf("series metadata set %s: %w", setFile, err)
	}
	var set metadataSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse %s: %w", setFile, err)
	}
	cur, err := store.DropCursor(drop)
	if err != nil {
		return nil, err
	}
	if cur > len(set.Files) {
		return nil, fmt.Errorf("drop %s cursor %d beyond %d files", drop, cur, len(set.Files))
	}
	log.Debug("Metadata Set File = ", setFile, ", position ", cur, "/", len(set.Files))
	return &MetadataList{
		drop:      drop,
		dir:       filepath.Dir(setFile),
		files:     set.Files,
		store:     store,
		committed: cur,
		pos:       cur,
	}, nil
}

func (l *MetadataList) Drop() string {
	return l.drop
}

func (l *MetadataList) Total() int {
	return len(l.files)
}

func (l *MetadataList) Remaining() int {
	return len(l.files) - l.pos
}

func (l *MetadataList) resolve(f string) string {
	if filepath.IsAbs(f) {
		return f
	}
	return filepath.Join(l.dir, f)
}

func (l *MetadataList) Peek() (string, bool) {
	if l.pos >= len(l.files) {
		return "", false
	}
	return l.resolve(l.files[l.pos]), true
}

func (l *MetadataList) Next() (string, bool) {
	f, ok := l.Peek()
	if ok {
		l.pos++
	}
	return f, ok
}

// Pending lists the files not yet handed out, without moving.
func (l *MetadataList) Pending() []string {
	out := make([]string, 0, l.Remaining())
	for _, f := range l.files[l.pos:] {
		out = append(out, l.resolve(f))
	}
	return out
}

func (l *MetadataList) Revert() {
	l.pos = l.committed
}

func (l *MetadataList) Commit() error {
	if err := l.store.SetDropCursor(l.drop, l.pos); err != nil {
		return err
	}
	l.committed = l.pos
	return nil
}
