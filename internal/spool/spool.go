package spool

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/zeebo/blake3"
)

const (
	// StagingDir holds jobs while they are being written.
	StagingDir = "tmp"
	// VisibleDir holds complete jobs awaiting the consumer.
	VisibleDir = "new"
	// ClaimedDir holds jobs the consumer has taken.
	ClaimedDir = "cur"
)

// ErrNotSpool reports a root missing its staging or visible directory.
var ErrNotSpool = errors.New("not a job spool")

// Entry is a job file inside the spool.
type Entry struct {
	Name string
	Path string
	Size int64
}

// Spool is a job directory rooted at Root.
type Spool struct {
	root    string
	now     func() time.Time
	syncDir func(dir string) error
}

// Option customizes a Spool.
type Option func(*Spool)

// WithClock overrides the time source used to name entries.
func WithClock(now func() time.Time) Option {
	return func(s *Spool) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDirSync overrides how a directory is flushed after an entry is renamed
// into it.
func WithDirSync(sync func(dir string) error) Option {
	return func(s *Spool) {
		if sync != nil {
			s.syncDir = sync
		}
	}
}

// Open returns the spool at root. Both the staging and visible directories
// must already exist; creating them is the installer's job.
func Open(root string, opts ...Option) (*Spool, error) {
	for _, sub := range []string{StagingDir, VisibleDir} {
		dir := filepath.Join(root, sub)
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotSpool, root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrNotSpool, dir)
		}
	}
	s := &Spool{root: root, now: time.Now, syncDir: syncDirectory}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the spool root directory.
func (s *Spool) Root() string {
	return s.root
}

// Digest returns the hex BLAKE3-256 digest of payload.
func Digest(payload []byte) string {
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// EntryName composes the spool name for payload submitted at t.
func EntryName(t time.Time, payload []byte) string {
	return strconv.FormatInt(t.Unix(), 10) + "-" + Digest(payload)
}

// Deliver writes payload into the staging directory and atomically renames
// it into the visible directory, then flushes that directory so the rename
// survives a crash. An existing entry with the same name holds identical
// content and is overwritten. If only the flush fails the entry is already
// visible and the error says so.
func (s *Spool) Deliver(payload []byte) (Entry, error) {
	name := EntryName(s.now(), payload)
	staging := filepath.Join(s.root, StagingDir, name)
	visible := filepath.Join(s.root, VisibleDir, name)

	if err := writeSynced(staging, payload); err != nil {
		_ = os.Remove(staging)
		return Entry{}, fmt.Errorf("stage job %s: %w", name, err)
	}
	if err := os.Rename(staging, visible); err != nil {
		_ = os.Remove(staging)
		return Entry{}, fmt.Errorf("publish job %s: %w", name, err)
	}
	if err := s.syncDir(filepath.Join(s.root, VisibleDir)); err != nil {
		return Entry{}, fmt.Errorf("sync %s after publishing job %s: %w", VisibleDir, name, err)
	}
	return Entry{Name: name, Path: visible, Size: int64(len(payload))}, nil
}

func writeSynced(path string, payload []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(payload); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func syncDirectory(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return err
	}
	return d.Close()
}

// EnsureClaimDir creates the claimed directory if needed.
func (s *Spool) EnsureClaimDir() error {
	dir := filepath.Join(s.root, ClaimedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create claim directory %q: %w", dir, err)
	}
	return nil
}

// Pending lists visible entries ordered by name, which is submission order
// at one-second resolution.
func (s *Spool) Pending() ([]Entry, error) {
	dir := filepath.Join(s.root, VisibleDir)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		entries = append(entries, Entry{
			Name: de.Name(),
			Path: filepath.Join(dir, de.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Read returns the content of entry.
func (s *Spool) Read(entry Entry) ([]byte, error) {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", entry.Name, err)
	}
	return data, nil
}

// Claim moves a visible entry into the claimed directory and returns its
// new location.
func (s *Spool) Claim(entry Entry) (Entry, error) {
	target := filepath.Join(s.root, ClaimedDir, entry.Name)
	if err := os.Rename(filepath.Join(s.root, VisibleDir, entry.Name), target); err != nil {
		return Entry{}, fmt.Errorf("claim job %s: %w", entry.Name, err)
	}
	entry.Path = target
	return entry, nil
}
