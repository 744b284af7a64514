package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PartitionNaming(t *testing.T) {
	s := NewStore(t.TempDir())
	// 01:30 CEST on the 26th is still 23:30 UTC on the 25th: partitions are
	// addressed strictly by UTC day.
	at := time.Date(2026, 8, 26, 1, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2026-08-25.jsonl", s.PartitionFor(at))

	day, err := PartitionDate("2026-08-25.jsonl")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), day)

	_, err = PartitionDate("not-a-date.jsonl")
	assert.Error(t, err)
}

func TestStore_ReadMissingPartitionIsNotExist(t *testing.T) {
	s := NewStore(t.TempDir())

	_, err := s.ReadPartition("2026-08-24.jsonl")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, os.ErrNotExist, "absence stays distinguishable from a real read failure")
}

func TestStore_EmptyLedger(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "never-created"))

	names, err := s.Partitions()
	require.NoError(t, err)
	assert.Empty(t, names)

	last, partition, err := s.LastEntry()
	require.NoError(t, err)
	assert.Nil(t, last)
	assert.Empty(t, partition)
}

func TestStore_AppendReadRoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "signals"))
	signer, _ := newTestKeys(t)

	e := signedEntry(t, signer, Genesis)
	require.NoError(t, s.Append(e, "2026-08-25.jsonl"))

	entries, err := s.ReadPartition("2026-08-25.jsonl")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.EntryHash, entries[0].EntryHash)
	assert.Equal(t, e.Asset, entries[0].Asset)
	assert.Equal(t, e.Signature, entries[0].Signature)
}

func TestStore_PartitionsSortedChronologically(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	signer, _ := newTestKeys(t)
	e := signedEntry(t, signer, Genesis)

	for _, name := range []string{"2026-08-25.jsonl", "2026-08-23.jsonl", "2026-08-24.jsonl"} {
		require.NoError(t, s.Append(e, name))
	}
	// Non-partition files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	names, err := s.Partitions()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-23.jsonl", "2026-08-24.jsonl", "2026-08-25.jsonl"}, names)
}

func TestStore_MalformedLineReportsPosition(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	signer, _ := newTestKeys(t)
	e := signedEntry(t, signer, Genesis)
	require.NoError(t, s.Append(e, "2026-08-25.jsonl"))

	f, err := os.OpenFile(filepath.Join(dir, "2026-08-25.jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{this is not json}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = s.ReadPartition("2026-08-25.jsonl")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "2026-08-25.jsonl", perr.Partition)
	assert.Equal(t, 2, perr.Line)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStore_TrailingPartialLineIsNotYetARecord(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	signer, _ := newTestKeys(t)
	e := signedEntry(t, signer, Genesis)
	require.NoError(t, s.Append(e, "2026-08-25.jsonl"))

	// Simulate a reader racing an in-flight append: the trailing bytes have
	// no newline terminator yet.
	f, err := os.OpenFile(filepath.Join(dir, "2026-08-25.jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"asset":"HALFWRIT`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := s.ReadPartition("2026-08-25.jsonl")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "incomplete trailing line is skipped, not corruption")
}

func TestStore_LastEntrySkipsEmptyPartitions(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	signer, _ := newTestKeys(t)

	e1 := signedEntry(t, signer, Genesis)
	require.NoError(t, s.Append(e1, "2026-08-24.jsonl"))
	// A newer partition exists but holds nothing yet.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-08-25.jsonl"), nil, 0o644))

	last, partition, err := s.LastEntry()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "2026-08-24.jsonl", partition)
	assert.Equal(t, e1.EntryHash, last.EntryHash)
}

func TestStore_IdentityKeysSpanAllPartitions(t *testing.T) {
	s := NewStore(t.TempDir())
	signer, _ := newTestKeys(t)

	e1 := signedEntry(t, signer, Genesis)
	e2 := signedEntry(t, signer, e1.EntryHash)
	e2.TimestampUTC = "2026-08-25T20:00:00Z"
	require.NoError(t, s.Append(e1, "2026-08-24.jsonl"))
	require.NoError(t, s.Append(e2, "2026-08-25.jsonl"))

	keys, err := s.IdentityKeys()
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, e1.IdentityKey())
	assert.Contains(t, keys, e2.IdentityKey())
}
