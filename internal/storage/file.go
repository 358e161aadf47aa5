package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/models"
)

// FileStore is the default backend. The pool is a human-editable JSON array
// at <dataDir>/accounts.json; history is a JSON-lines log compacted in
// place once it grows past twice the retention limit.
type FileStore struct {
	dir          string
	accountsPath string
	historyPath  string

	mu sync.Mutex
	// history holds the retained tail, oldest first.
	history   []*models.HistoryRecord
	fileLines int
}

// NewFileStore creates the data directory if needed and loads the retained
// history tail.
func NewFileStore(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	f := &FileStore{
		dir:          dataDir,
		accountsPath: filepath.Join(dataDir, "accounts.json"),
		historyPath:  filepath.Join(dataDir, "history.jsonl"),
	}
	f.loadHistory()
	return f, nil
}

// AccountsPath exposes the pool file so outside edits can be watched.
func (f *FileStore) AccountsPath() string { return f.accountsPath }

func (f *FileStore) LoadAccounts(ctx context.Context) ([]*models.Account, error) {
	data, err := os.ReadFile(f.accountsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: read %s: %w", f.accountsPath, err)
	}
	var accounts []*models.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("storage: parse %s: %w", f.accountsPath, err)
	}
	return accounts, nil
}

// SaveAccounts writes through a temp file and renames it over the pool, so
// a crash mid-write never leaves a truncated pool behind.
func (f *FileStore) SaveAccounts(ctx context.Context, accounts []*models.Account) error {
	if accounts == nil {
		accounts = []*models.Account{}
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode accounts: %w", err)
	}
	tmp := f.accountsPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("storage: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.accountsPath); err != nil {
		return fmt.Errorf("storage: rename %s: %w", tmp, err)
	}
	return nil
}

func (f *FileStore) AppendHistory(ctx context.Context, rec *models.HistoryRecord) error {
	if rec == nil {
		return nil
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode history record: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.historyPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", f.historyPath, err)
	}
	_, werr := fh.Write(append(line, '\n'))
	cerr := fh.Close()
	if werr != nil {
		return fmt.Errorf("storage: append history: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("storage: close history: %w", cerr)
	}

	f.history = append(f.history, rec)
	if len(f.history) > models.DefaultHistoryLimit {
		f.history = f.history[len(f.history)-models.DefaultHistoryLimit:]
	}
	f.fileLines++
	if f.fileLines > 2*models.DefaultHistoryLimit {
		f.compactLocked()
	}
	return nil
}

func (f *FileStore) ListHistory(ctx context.Context, limit int) ([]*models.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.HistoryRecord, 0, n)
	for i := len(f.history) - 1; i >= len(f.history)-n; i-- {
		out = append(out, f.history[i])
	}
	return out, nil
}

func (f *FileStore) Health(ctx context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

func (f *FileStore) Close() error { return nil }

// loadHistory reads the log tail into memory. Unparseable lines are skipped
// but still counted toward the compaction threshold.
func (f *FileStore) loadHistory() {
	fh, err := os.Open(f.historyPath)
	if err != nil {
		return
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		f.fileLines++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec := &models.HistoryRecord{}
		if err := json.Unmarshal(line, rec); err != nil {
			continue
		}
		f.history = append(f.history, rec)
		if len(f.history) > models.DefaultHistoryLimit {
			f.history = f.history[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warnf("storage: history log %s truncated", f.historyPath)
	}
}

// compactLocked rewrites the log from the retained tail. Compaction is
// best-effort; a failure leaves the old log in place.
func (f *FileStore) compactLocked() {
	buf := make([]byte, 0, len(f.history)*128)
	for _, rec := range f.history {
		line, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	tmp := f.historyPath + ".tmp"
	if err := os.WriteFile(tmp, buf, 0600); err != nil {
		log.WithError(err).Warn("storage: history compaction write failed")
		return
	}
	if err := os.Rename(tmp, f.historyPath); err != nil {
		log.WithError(err).Warn("storage: history compaction rename failed")
		return
	}
	f.fileLines = len(f.history)
}
