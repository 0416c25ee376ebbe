package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"
)

// lockPoll is how often a contended flock is retried.
const lockPoll = 10 * time.Millisecond

// FileLock guards one stored value. The channel serializes goroutines of
// this process; flock on <path>.lock serializes processes sharing the
// data directory.
type FileLock struct {
	path string
	sem  chan struct{}

	mu   sync.Mutex
	file *os.File
}

// NewFileLock creates a lock guarding path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path, sem: make(chan struct{}, 1)}
}

// Lock waits for the exclusive lock until ctx is done.
func (l *FileLock) Lock(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	f, err := os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		<-l.sem
		return err
	}
	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			f.Close()
			<-l.sem
			return err
		}
		select {
		case <-time.After(lockPoll):
		case <-ctx.Done():
			f.Close()
			<-l.sem
			return ctx.Err()
		}
	}

	l.mu.Lock()
	l.file = f
	l.mu.Unlock()
	return nil
}

// Unlock releases the lock. The lock file is left in place so a process
// waiting on it never holds a lock on an unlinked inode.
func (l *FileLock) Unlock() {
	l.mu.Lock()
	f := l.file
	l.file = nil
	l.mu.Unlock()
	if f == nil {
		return
	}

	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	f.Close()
	<-l.sem
}
