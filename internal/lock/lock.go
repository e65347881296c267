package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// HeldError is returned when another daemon holds the profile lock.
type HeldError struct {
	PID  int
	Path string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("profile lock held by PID %d (%s)", e.PID, e.Path)
}

// Info is the content a daemon writes into its lock file.
type Info struct {
	PID        int
	InstanceID string
	StartedAt  time.Time
}

// Lock represents an acquired profile lock file.
type Lock struct {
	file *os.File
	path string
	info Info
}

// Acquire takes an exclusive lock on the profile directory and records the
// caller's PID and daemon instance id in it.
func Acquire(profileDir, instanceID string) (*Lock, error) {
	lockPath := filepath.Join(profileDir, "LOCK")

	if err := os.MkdirAll(profileDir, 0700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		data, _ := os.ReadFile(lockPath)
		_ = f.Close()
		return nil, &HeldError{PID: parseInfo(string(data)).PID, Path: lockPath}
	}

	info := Info{PID: os.Getpid(), InstanceID: instanceID, StartedAt: time.Now().UTC()}
	if err := writeInfo(f, info); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: lockPath, info: info}, nil
}

// Info returns what this process wrote into the lock file.
func (l *Lock) Info() Info {
	return l.info
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove lock file before closing to avoid stale files.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// Probe reports whether a live daemon holds the lock in profileDir, without
// taking it. The returned Info is only meaningful when held is true.
func Probe(profileDir string) (info Info, held bool, err error) {
	lockPath := filepath.Join(profileDir, "LOCK")
	f, err := os.Open(lockPath)
	if os.IsNotExist(err) {
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, err
	}
	defer func() { _ = f.Close() }()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err == nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		return Info{}, false, nil
	}
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return Info{}, true, err
	}
	return parseInfo(string(data)), true, nil
}

func writeInfo(f *os.File, info Info) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	content := fmt.Sprintf("pid=%d\ninstance=%s\ntime=%s\n", info.PID, info.InstanceID, info.StartedAt.Format(time.RFC3339))
	_, err := f.WriteString(content)
	return err
}

func parseInfo(content string) Info {
	var info Info
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			info.PID, _ = strconv.Atoi(value)
		case "instance":
			info.InstanceID = value
		case "time":
			info.StartedAt, _ = time.Parse(time.RFC3339, value)
		}
	}
	return info
}
