package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"parley/pkg/state/logger"
	"parley/pkg/timeutil"
)

// fileLease is a lock file that keeps two processes sharing a data dir from
// checkpointing at the same time. An expired lease may be taken over.
type fileLease struct {
	path string
}

type leaseFile struct {
	Owner   string `json:"owner"`
	Expires string `json:"expires"`
}

func newFileLease(dir string) *fileLease {
	return &fileLease{path: filepath.Join(dir, "checkpoint.lock")}
}

func (l *fileLease) read() (leaseFile, error) {
	var existing leaseFile
	data, err := os.ReadFile(l.path)
	if err != nil {
		return existing, err
	}
	err = json.Unmarshal(data, &existing)
	return existing, err
}

func (l *fileLease) write(lf leaseFile) (string, error) {
	b, _ := json.Marshal(lf)
	tmp := l.path + "." + lf.Owner + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return "", err
	}
	return tmp, nil
}

func (l *fileLease) Acquire(owner string, ttl time.Duration) (bool, error) {
	now := timeutil.Now()
	tmp, err := l.write(leaseFile{Owner: owner, Expires: now.Add(ttl).Format(time.RFC3339Nano)})
	if err != nil {
		logger.Error("lease_tmp_write_failed", "path", l.path, "error", err)
		return false, err
	}
	defer os.Remove(tmp)

	// create the lock atomically if it does not exist
	if err := os.Link(tmp, l.path); err == nil {
		logger.Debug("lease_acquired", "path", l.path, "owner", owner)
		return true, nil
	}
	existing, err := l.read()
	if err != nil {
		return false, err
	}
	expT, _ := time.Parse(time.RFC3339Nano, existing.Expires)
	if !expT.Before(now) {
		logger.Info("lease_currently_held", "path", l.path, "owner", existing.Owner)
		return false, nil
	}
	if err := os.Rename(tmp, l.path); err != nil {
		logger.Error("lease_replace_failed", "error", err)
		return false, err
	}
	logger.Info("lease_taken_over", "path", l.path, "owner", owner, "previous", existing.Owner)
	return true, nil
}

func (l *fileLease) Renew(owner string, ttl time.Duration) error {
	existing, err := l.read()
	if err != nil {
		return err
	}
	if existing.Owner != owner {
		return fmt.Errorf("lease owned by %s", existing.Owner)
	}
	existing.Expires = timeutil.Now().Add(ttl).Format(time.RFC3339Nano)
	tmp, err := l.write(existing)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (l *fileLease) Release(owner string) error {
	existing, err := l.read()
	if err != nil {
		return err
	}
	if existing.Owner != owner {
		return fmt.Errorf("lease owned by %s", existing.Owner)
	}
	return os.Remove(l.path)
}
