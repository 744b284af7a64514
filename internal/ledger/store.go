package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const partitionExt = ".jsonl"

// ParseError marks a malformed line inside a partition. Verification treats
// it as fatal for that partition; the position lets an operator locate the
// break.
type ParseError struct {
	Partition string
	Line      int
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("partition %s line %d: %v", e.Partition, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Store is a partitioned append-only JSONL store: one file per UTC calendar
// day under dir, named YYYY-MM-DD.jsonl, so lexicographic name order is
// chronological order. Partitions are never rewritten, only appended to.
// Single-writer: callers must ensure at most one appender at a time.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created lazily on
// first append.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// PartitionFor returns the partition name covering the given instant.
func (s *Store) PartitionFor(t time.Time) string {
	return t.UTC().Format("2006-01-02") + partitionExt
}

// PartitionDate parses a partition name back to its UTC day. Returns an
// error for names that are not date-addressed partitions.
func PartitionDate(name string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSuffix(name, partitionExt), time.UTC)
}

// Partitions lists partition names in chronological (lexicographic) order.
// A missing directory is an empty ledger, not an error.
func (s *Store) Partitions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list partitions: %v", ErrTransient, err)
	}

	var names []string
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), partitionExt) {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadPartition returns the entries of one partition in stored order. A
// malformed line yields a *ParseError carrying its position. A trailing line
// without a newline terminator is an append still in flight and is not yet a
// record; it is skipped, which makes concurrent verification safe against a
// partition mid-growth.
func (s *Store) ReadPartition(name string) ([]*Entry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: read partition %s: %w", ErrTransient, name, err)
	}

	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
			data = data[:i+1]
		} else {
			data = nil
		}
	}

	var out []*Entry
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return out, &ParseError{Partition: name, Line: i + 1, Err: fmt.Errorf("%w: invalid JSON: %v", ErrInvalidInput, err)}
		}
		out = append(out, &e)
	}
	return out, nil
}

// Append persists one fully-formed entry to the named partition as a single
// write of one JSON line. One entry is one stored unit; readers never see a
// partial record as a terminated line.
func (s *Store) Append(e *Entry, partition string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create ledger dir: %v", ErrTransient, err)
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: marshal entry: %v", ErrInvalidInput, err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(filepath.Join(s.dir, partition), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open partition %s: %v", ErrTransient, partition, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("%w: append to partition %s: %v", ErrTransient, partition, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close partition %s: %v", ErrTransient, partition, err)
	}
	return nil
}

// LastEntry returns the most recent entry across the whole ledger and the
// partition holding it, scanning partitions newest-first and skipping empty
// ones. Returns (nil, "", nil) for an empty ledger.
func (s *Store) LastEntry() (*Entry, string, error) {
	names, err := s.Partitions()
	if err != nil {
		return nil, "", err
	}
	for i := len(names) - 1; i >= 0; i-- {
		entries, err := s.ReadPartition(names[i])
		if err != nil {
			return nil, "", err
		}
		if len(entries) > 0 {
			return entries[len(entries)-1], names[i], nil
		}
	}
	return nil, "", nil
}

// IdentityKeys walks every partition and collects the identity key of each
// entry. Used by the writer for chain-wide dedup when no warm index exists.
func (s *Store) IdentityKeys() (map[string]struct{}, error) {
	names, err := s.Partitions()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	for _, name := range names {
		entries, err := s.ReadPartition(name)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			keys[e.IdentityKey()] = struct{}{}
		}
	}
	return keys, nil
}
