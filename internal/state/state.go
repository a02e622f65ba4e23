// Package state persists the sniper's run status under a state dir. The
// snapshot survives crashes, so a restarted operator can see whether the
// previous run already bought before firing again. An instance lock keeps
// two snipers from trading against the same state dir at once.
package state

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

// RunStatus is the current or last run as the sniper saw it.
type RunStatus struct {
	Symbol       string          `json:"symbol"`
	State        string          `json:"state"`
	PID          int             `json:"pid"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	BuyOrderID   string          `json:"buy_order_id,omitempty"`
	BuyClientID  string          `json:"buy_client_id,omitempty"`
	TakeProfitID string          `json:"take_profit_order_id,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Store struct {
	root string
	mu   sync.Mutex
}

func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("state dir required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) SaveStatus(status RunStatus) error {
	if s == nil {
		return nil
	}
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.statusPath(), status)
}

func (s *Store) LoadStatus() (RunStatus, bool, error) {
	data, err := os.ReadFile(s.statusPath())
	if err != nil {
		if os.IsNotExist(err) {
			return RunStatus{}, false, nil
		}
		return RunStatus{}, false, err
	}
	var status RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return RunStatus{}, false, err
	}
	return status, true, nil
}

func (s *Store) statusPath() string {
	return filepath.Join(s.root, "run_status.json")
}

func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	return fsyncDirBestEffort(dir, path)
}

func fsyncDirBestEffort(dir, path string) error {
	d, err := os.Open(dir)
	if err != nil {
		log.Printf(
			"level=WARN event=state_dir_fsync_skipped reason=%q dir=%q target=%q",
			err.Error(), dir, path,
		)
		return nil
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		log.Printf(
			"level=WARN event=state_dir_fsync_failed reason=%q dir=%q target=%q",
			err.Error(), dir, path,
		)
	}
	return nil
}
