package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"
)

const heartbeatInterval = time.Minute

// Lock is a filesystem lock that keeps overlapping runs away from the
// same master store. While held, the lock file's mtime is refreshed so
// other processes can tell a live run from a crashed one.
type Lock struct {
	path string
	stop chan struct{}
	done chan struct{}
}

type lockInfo struct {
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"created_at"`
}

// AcquireLock creates the lock file exclusively. A lock file whose
// mtime is older than ttl belongs to a dead run and is taken over.
func AcquireLock(path string, ttl time.Duration) (*Lock, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			json.NewEncoder(f).Encode(lockInfo{PID: os.Getpid(), CreatedAt: time.Now()})
			f.Close()

			l := &Lock{
				path: path,
				stop: make(chan struct{}),
				done: make(chan struct{}),
			}
			go l.heartbeat()
			return l, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		info, statErr := os.Stat(path)
		if statErr != nil {
			// Holder released between our open and stat; retry
			continue
		}
		age := time.Since(info.ModTime())
		if age < ttl {
			return nil, fmt.Errorf("run lock held by another process: %s", path)
		}

		slog.Warn("Taking over stale run lock", "path", path, "age", age)
		os.Remove(path)
	}

	return nil, fmt.Errorf("failed to acquire run lock: %s", path)
}

func (l *Lock) heartbeat() {
	defer close(l.done)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			os.Chtimes(l.path, now, now)
		case <-l.stop:
			return
		}
	}
}

// Release stops the heartbeat and removes the lock file.
func (l *Lock) Release() {
	close(l.stop)
	<-l.done
	os.Remove(l.path)
}
