package account

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Index is the thread-safe, process-wide account store (spec.md §4.8).
// All public mutations acquire the writer lock; lookups acquire the
// reader lock and attempt an unlocked (shared) read first, upgrading to
// the writer lock only on a miss with creation allowed.
//
// The singleflight.Group collapses concurrent from_*_credentials calls
// for the same key into a single creation, matching the teacher's
// AccountRepository.GetOrCreateAccount atomicity guarantee without a
// database's ON CONFLICT to lean on.
type Index struct {
	dir string

	mu sync.RWMutex

	byID       map[uint32]*Account
	byDCNTE    map[string]*Account
	byDCv1     map[uint32]*Account
	byDCv2     map[uint32]*Account
	byPCv2     map[uint32]*Account
	byGC       map[uint32]*Account
	byXB       map[uint64]*Account
	byBB       map[string]*Account

	sf singleflight.Group
}

// New constructs an empty Index rooted at dir (system/licenses/ per
// spec.md §6). Call Load to populate it from disk.
func New(dir string) *Index {
	return &Index{
		dir:     dir,
		byID:    make(map[uint32]*Account),
		byDCNTE: make(map[string]*Account),
		byDCv1:  make(map[uint32]*Account),
		byDCv2:  make(map[uint32]*Account),
		byPCv2:  make(map[uint32]*Account),
		byGC:    make(map[uint32]*Account),
		byXB:    make(map[uint64]*Account),
		byBB:    make(map[string]*Account),
	}
}

// Load reads every *.json file in the index's directory and inserts the
// accounts it finds. Missing directory is not an error (fresh install).
func (idx *Index) Load() error {
	entries, err := os.ReadDir(idx.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("account: reading license dir: %w", err)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(idx.dir, e.Name())
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("account: reading %s: %w", path, readErr)
		}
		acc, parseErr := unmarshalAccount(data)
		if parseErr != nil {
			return fmt.Errorf("account: parsing %s: %w", path, parseErr)
		}
		idx.insertLocked(acc)
	}
	return nil
}

// insertLocked indexes acc under every credential key it carries. Caller
// must hold idx.mu for writing.
func (idx *Index) insertLocked(acc *Account) {
	idx.byID[acc.AccountID] = acc
	for _, c := range acc.Credentials.DCNTE {
		idx.byDCNTE[c.Serial] = acc
	}
	for _, c := range acc.Credentials.DCv1 {
		idx.byDCv1[c.Serial] = acc
	}
	for _, c := range acc.Credentials.DCv2 {
		idx.byDCv2[c.Serial] = acc
	}
	for _, c := range acc.Credentials.PCv2 {
		idx.byPCv2[c.Serial] = acc
	}
	for _, c := range acc.Credentials.GC {
		idx.byGC[c.Serial] = acc
	}
	for _, c := range acc.Credentials.XB {
		idx.byXB[c.UserID] = acc
	}
	for _, c := range acc.Credentials.BB {
		idx.byBB[c.Username] = acc
	}
}

func (idx *Index) removeLocked(acc *Account) {
	delete(idx.byID, acc.AccountID)
	for _, c := range acc.Credentials.DCNTE {
		delete(idx.byDCNTE, c.Serial)
	}
	for _, c := range acc.Credentials.DCv1 {
		delete(idx.byDCv1, c.Serial)
	}
	for _, c := range acc.Credentials.DCv2 {
		delete(idx.byDCv2, c.Serial)
	}
	for _, c := range acc.Credentials.PCv2 {
		delete(idx.byPCv2, c.Serial)
	}
	for _, c := range acc.Credentials.GC {
		delete(idx.byGC, c.Serial)
	}
	for _, c := range acc.Credentials.XB {
		delete(idx.byXB, c.UserID)
	}
	for _, c := range acc.Credentials.BB {
		delete(idx.byBB, c.Username)
	}
}

// ByID returns the account with the given id, or ErrNotFound.
func (idx *Index) ByID(id uint32) (*Account, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	acc, ok := idx.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return acc, nil
}

// nextFreeIDLocked finds the next unused account id starting at start,
// incrementing and masking off the high bit, skipping 0 and 0xFFFFFFFF
// (spec.md §4.8 collision rule). Caller must hold idx.mu (read or write).
func (idx *Index) nextFreeIDLocked(start uint32) uint32 {
	id := start & 0x7FFFFFFF
	for {
		if id == 0 || id == 0xFFFFFFFF {
			id++
			continue
		}
		if _, taken := idx.byID[id]; !taken {
			return id
		}
		id = (id + 1) & 0x7FFFFFFF
	}
}

// Put persists acc (unless temporary) and registers it in every in-memory
// index, overwriting any previous registration of the same id. Used both
// for newly-created accounts and for administrative updates.
func (idx *Index) Put(acc *Account) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if old, ok := idx.byID[acc.AccountID]; ok {
		idx.removeLocked(old)
	}
	idx.insertLocked(acc)
	return idx.persistLocked(acc)
}

// Delete removes acc from every index and deletes its on-disk file (if
// any).
func (idx *Index) Delete(accountID uint32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	acc, ok := idx.byID[accountID]
	if !ok {
		return ErrNotFound
	}
	idx.removeLocked(acc)
	if !acc.IsTemporary {
		path := idx.pathFor(accountID)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("account: deleting %s: %w", path, err)
		}
	}
	return nil
}

func (idx *Index) pathFor(accountID uint32) string {
	return filepath.Join(idx.dir, fmt.Sprintf("%010d.json", accountID))
}

// persistLocked writes acc to disk if it isn't temporary. Caller must
// hold idx.mu for writing.
func (idx *Index) persistLocked(acc *Account) error {
	if acc.IsTemporary {
		return nil
	}
	acc.FormatVersion = CurrentFormatVersion
	data, err := marshalAccount(acc)
	if err != nil {
		return fmt.Errorf("account: marshaling %d: %w", acc.AccountID, err)
	}
	if err := os.MkdirAll(idx.dir, 0o755); err != nil {
		return fmt.Errorf("account: creating license dir: %w", err)
	}
	path := idx.pathFor(acc.AccountID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("account: writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

func unmarshalAccount(data []byte) (*Account, error) {
	var probe struct {
		FormatVersion int `json:"format_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if probe.FormatVersion == 0 {
		return unmarshalLegacy(data)
	}
	var acc Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func marshalAccount(acc *Account) ([]byte, error) {
	return json.MarshalIndent(acc, "", "  ")
}

// NowFunc is overridable in tests so ban-expiry checks are deterministic.
var NowFunc = time.Now
