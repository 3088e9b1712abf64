package allowlist

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/onurcolak/wa-pairing-service/internal/domain"
	"github.com/onurcolak/wa-pairing-service/pkg/logger"
)

const defaultDebounce = 300 * time.Millisecond

// List is an optional set of phone numbers allowed to request codes. It is
// disabled when no file is configured. The file holds one phone per line;
// blank lines and lines starting with # are ignored.
type List struct {
	path     string
	debounce time.Duration

	mu     sync.RWMutex
	phones map[string]struct{}

	watchMu       sync.Mutex
	watcher       *fsnotify.Watcher
	stopChan      chan struct{}
	debounceTimer *time.Timer
}

// New loads path. An empty path returns a disabled list that allows every
// phone.
func New(path string) (*List, error) {
	l := &List{path: path, debounce: defaultDebounce}
	if path == "" {
		return l, nil
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *List) Enabled() bool {
	return l.path != ""
}

func (l *List) Allowed(phone string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.phones[domain.NormalizePhone(phone)]
	return ok
}

func (l *List) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.phones)
}

// Reload re-reads the file. On error the previous entries stay in place.
func (l *List) Reload() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("failed to open allow-list: %w", err)
	}
	defer f.Close()

	phones := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if phone := domain.NormalizePhone(line); phone != "" {
			phones[phone] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read allow-list: %w", err)
	}

	l.mu.Lock()
	l.phones = phones
	l.mu.Unlock()

	if len(phones) == 0 {
		logger.Warnf("Allow-list %s is empty, every pairing request will be rejected", l.path)
	} else {
		logger.Infof("Loaded %d phones from allow-list %s", len(phones), l.path)
	}
	return nil
}

// Watch reloads the list whenever the file changes. The parent directory is
// watched so editors that replace the file are picked up too.
func (l *List) Watch() error {
	if !l.Enabled() {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create allow-list watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch allow-list: %w", err)
	}

	stop := make(chan struct{})
	l.watchMu.Lock()
	l.watcher = w
	l.stopChan = stop
	l.watchMu.Unlock()

	go l.watchLoop(w, stop)

	logger.Infof("Watching allow-list %s for changes", l.path)
	return nil
}

// Stop closes the watcher and cancels a pending reload. Safe to call more
// than once.
func (l *List) Stop() {
	l.watchMu.Lock()
	w := l.watcher
	if w == nil {
		l.watchMu.Unlock()
		return
	}
	l.watcher = nil
	close(l.stopChan)
	if l.debounceTimer != nil {
		l.debounceTimer.Stop()
		l.debounceTimer = nil
	}
	l.watchMu.Unlock()

	w.Close()
}

func (l *List) watchLoop(w *fsnotify.Watcher, stop <-chan struct{}) {
	target := filepath.Clean(l.path)

	for {
		select {
		case <-stop:
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			l.scheduleReload(stop)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Errorf("Allow-list watcher error: %v", err)
		}
	}
}

// scheduleReload restarts the debounce timer. Nothing is armed once stop is
// closed.
func (l *List) scheduleReload(stop <-chan struct{}) {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	select {
	case <-stop:
		return
	default:
	}

	if l.debounceTimer != nil {
		l.debounceTimer.Stop()
	}
	l.debounceTimer = time.AfterFunc(l.debounce, func() {
		select {
		case <-stop:
			return
		default:
		}
		if err := l.Reload(); err != nil {
			logger.Errorf("Allow-list reload failed, keeping previous entries: %v", err)
		}
	})
}
