package core

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"
)

// LedgerConfig configures a Ledger's backing write-ahead log and optional
// snapshot file.
type LedgerConfig struct {
	WALPath          string
	SnapshotPath     string
	SnapshotInterval int
}

type kvEntry struct {
	key   []byte
	value []byte
}

func kvLess(a, b kvEntry) bool { return bytes.Compare(a.key, b.key) < 0 }

// walRecord is a single WAL line. Op is "set" or "delete"; Value is hex
// encoded so that arbitrary binary row data survives a JSON line.
type walRecord struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Ledger is the persistent, ordered key/value store backing contract state.
// It keeps the full key space in an in-memory B-tree for ordered range scans
// (the lower_bound/upper_bound navigation the secondary-key indexes depend
// on) and journals every mutation to a write-ahead log so state survives a
// restart.
type Ledger struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[kvEntry]

	walFile          *os.File
	snapshotPath     string
	snapshotInterval int
	writesSinceSnap  int
}

// NewLedger opens (or creates) the WAL at cfg.WALPath and replays it into a
// fresh in-memory tree.
func NewLedger(cfg LedgerConfig) (l *Ledger, err error) {
	wal, err := os.OpenFile(cfg.WALPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open WAL: %w", err)
	}
	defer func() {
		if err != nil {
			_ = wal.Close()
		}
	}()

	l = &Ledger{
		tree:             btree.NewG(32, kvLess),
		walFile:          wal,
		snapshotPath:     cfg.SnapshotPath,
		snapshotInterval: cfg.SnapshotInterval,
	}

	if cfg.SnapshotPath != "" {
		if err = l.loadSnapshot(cfg.SnapshotPath); err != nil {
			return nil, err
		}
	}

	scanner := bufio.NewScanner(wal)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var rec walRecord
		if err = json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("WAL unmarshal: %w", err)
		}
		if err = l.replay(rec); err != nil {
			return nil, err
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("WAL scan: %w", err)
	}
	return l, nil
}

// NewInMemory returns a Ledger backed only by the in-process tree, writing
// its WAL to a throwaway temp file. It is intended for tests and sandboxed
// contract invocations that do not need durability.
func NewInMemory() (*Ledger, error) {
	f, err := os.CreateTemp("", "ledger-wal-*.log")
	if err != nil {
		return nil, err
	}
	return NewLedger(LedgerConfig{WALPath: f.Name()})
}

// OpenLedger loads a ledger rooted at a directory containing state.wal and
// (optionally) state.snap.
func OpenLedger(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return NewLedger(LedgerConfig{
		WALPath:      dir + "/state.wal",
		SnapshotPath: dir + "/state.snap",
	})
}

func (l *Ledger) replay(rec walRecord) error {
	key, err := hex.DecodeString(rec.Key)
	if err != nil {
		return fmt.Errorf("WAL decode key: %w", err)
	}
	switch rec.Op {
	case "set":
		val, err := hex.DecodeString(rec.Value)
		if err != nil {
			return fmt.Errorf("WAL decode value: %w", err)
		}
		l.tree.ReplaceOrInsert(kvEntry{key: key, value: val})
	case "delete":
		l.tree.Delete(kvEntry{key: key})
	default:
		return fmt.Errorf("WAL unknown op %q", rec.Op)
	}
	return nil
}

func (l *Ledger) appendWAL(rec walRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := l.walFile.Write(append(data, '\n')); err != nil {
		return err
	}
	return l.walFile.Sync()
}

// -----------------------------------------------------------------------------
// StateRW
// -----------------------------------------------------------------------------

func (l *Ledger) GetState(key []byte) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.tree.Get(kvEntry{key: key})
	if !ok {
		return nil, ErrRowNotFound
	}
	cpy := make([]byte, len(entry.value))
	copy(cpy, entry.value)
	return cpy, nil
}

func (l *Ledger) SetState(key, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	l.tree.ReplaceOrInsert(kvEntry{key: k, value: v})
	if err := l.appendWAL(walRecord{Op: "set", Key: hex.EncodeToString(k), Value: hex.EncodeToString(v)}); err != nil {
		return err
	}
	l.maybeSnapshot()
	return nil
}

func (l *Ledger) DeleteState(key []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tree.Delete(kvEntry{key: key})
	if err := l.appendWAL(walRecord{Op: "delete", Key: hex.EncodeToString(key)}); err != nil {
		return err
	}
	l.maybeSnapshot()
	return nil
}

func (l *Ledger) HasState(key []byte) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.tree.Get(kvEntry{key: key})
	return ok, nil
}

// prefixUpperBound returns the smallest key strictly greater than every key
// starting with prefix, or nil if prefix is all 0xff bytes (unbounded).
func prefixUpperBound(prefix []byte) []byte {
	up := append([]byte(nil), prefix...)
	for i := len(up) - 1; i >= 0; i-- {
		if up[i] != 0xff {
			up[i]++
			return up[:i+1]
		}
	}
	return nil
}

func (l *Ledger) PrefixIterator(prefix []byte) StateIterator {
	return l.RangeIterator(prefix, prefixUpperBound(prefix))
}

type treeIter struct {
	keys   [][]byte
	values [][]byte
	idx    int
}

func (it *treeIter) Next() bool { it.idx++; return it.idx < len(it.keys) }
func (it *treeIter) Key() []byte {
	if it.idx < len(it.keys) {
		return it.keys[it.idx]
	}
	return nil
}
func (it *treeIter) Value() []byte {
	if it.idx < len(it.values) {
		return it.values[it.idx]
	}
	return nil
}
func (it *treeIter) Error() error { return nil }

// RangeIterator returns every entry with from <= key < to in ascending
// order, snapshotting the matched keys/values up front so the caller may
// mutate the ledger while iterating.
func (l *Ledger) RangeIterator(from, to []byte) StateIterator {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var keys, values [][]byte
	collect := func(e kvEntry) bool {
		keys = append(keys, append([]byte(nil), e.key...))
		values = append(values, append([]byte(nil), e.value...))
		return true
	}
	if to == nil {
		l.tree.AscendGreaterOrEqual(kvEntry{key: from}, collect)
	} else {
		l.tree.AscendRange(kvEntry{key: from}, kvEntry{key: to}, collect)
	}
	return &treeIter{keys: keys, values: values, idx: -1}
}

func (l *Ledger) maybeSnapshot() {
	if l.snapshotPath == "" || l.snapshotInterval <= 0 {
		return
	}
	l.writesSinceSnap++
	if l.writesSinceSnap < l.snapshotInterval {
		return
	}
	l.writesSinceSnap = 0
	if err := l.snapshotLocked(); err != nil {
		logrus.Errorf("ledger snapshot: %v", err)
	}
}

func (l *Ledger) snapshotLocked() error {
	f, err := os.Create(l.snapshotPath)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	var err2 error
	l.tree.Ascend(func(e kvEntry) bool {
		err2 = enc.Encode(walRecord{Op: "set", Key: hex.EncodeToString(e.key), Value: hex.EncodeToString(e.value)})
		return err2 == nil
	})
	if err2 != nil {
		return err2
	}
	if err := l.walFile.Truncate(0); err != nil {
		return err
	}
	_, err = l.walFile.Seek(0, 0)
	return err
}

func (l *Ledger) loadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	for {
		var rec walRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode snapshot: %w", err)
		}
		if err := l.replay(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying WAL file handle.
func (l *Ledger) Close() error {
	if l == nil || l.walFile == nil {
		return nil
	}
	return l.walFile.Close()
}
