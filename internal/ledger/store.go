package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pilot/internal/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// documentModel is the single-row table holding the whole ledger document.
// The document is always read whole and written whole; SQLite just gives us
// durable, atomic replacement.
type documentModel struct {
	ID        uint           `gorm:"primaryKey"`
	Doc       datatypes.JSON `gorm:"column:doc"`
	UpdatedAt time.Time
}

func (documentModel) TableName() string { return "ledger_documents" }

const documentID = 1

// Store guards the in-memory ledger and flushes it to SQLite after every
// mutation. It is the one shared mutable resource in the process; all
// read-modify-persist cycles serialize on its mutex.
type Store struct {
	db *gorm.DB

	mu    sync.Mutex
	cur   *Ledger
	fresh bool
}

// NewStore opens (or creates) the ledger database at path and loads the
// current document. Load failures are soft: a fresh default document is used
// and the cause is logged.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ledger store: path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("ledger store: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&documentModel{}); err != nil {
		return nil, fmt.Errorf("ledger store: migrate: %w", err)
	}
	s := &Store{db: db}
	s.cur = s.load()
	return s, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// load reads the persisted document, falling back to a default ledger when
// no prior state exists or the stored blob cannot be decoded. It never
// returns an error to the caller. Only a genuinely absent row marks the
// store fresh; a read error or a corrupt blob must not, or the one-time
// settings seed would save a default document over whatever is persisted.
func (s *Store) load() *Ledger {
	var row documentModel
	if err := s.db.First(&row, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.fresh = true
		} else {
			logger.Warnf("Ledger: load failed, running on an empty document: %v", err)
		}
		return NewLedger()
	}
	var l Ledger
	if err := json.Unmarshal(row.Doc, &l); err != nil {
		logger.Warnf("Ledger: stored document is corrupt, starting fresh: %v", err)
		return NewLedger()
	}
	if l.Trades == nil {
		l.Trades = []Trade{}
	}
	if l.Learnings == nil {
		l.Learnings = []string{}
	}
	return &l
}

// save flushes the given document. Persistence errors propagate so the
// caller can retry or log; the in-memory ledger stays authoritative for the
// lifetime of the process even when a flush fails.
func (s *Store) save(l *Ledger) error {
	doc, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("ledger store: encode: %w", err)
	}
	row := documentModel{ID: documentID, Doc: doc, UpdatedAt: time.Now()}
	if err := s.db.Save(&row).Error; err != nil {
		return fmt.Errorf("ledger store: save: %w", err)
	}
	return nil
}

// Fresh reports whether no prior document existed when the store opened;
// used to seed initial settings from configuration exactly once.
func (s *Store) Fresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fresh
}

// Snapshot returns a deep copy of the current document for read-only use.
func (s *Store) Snapshot() *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Settings
}

// Mutate runs fn against the live document under the store lock, recomputes
// the cached aggregates and flushes. If fn errors nothing is persisted.
func (s *Store) Mutate(fn func(*Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.cur); err != nil {
		return err
	}
	Recompute(s.cur)
	return s.save(s.cur)
}

// UpdateSettings applies fn to the settings block and persists immediately.
func (s *Store) UpdateSettings(fn func(*Settings)) error {
	return s.Mutate(func(l *Ledger) error {
		fn(&l.Settings)
		return nil
	})
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
