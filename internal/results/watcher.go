package results

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Invalidator drops cached metrics for a path
type Invalidator interface {
	Invalidate(path string)
}

// Watcher watches the results directory for new or rewritten event logs.
// Changes are debounced; once things settle the affected cache entries are
// dropped and onChange receives the sorted, distinct scenarios touched.
type Watcher struct {
	dir       string
	scenarios []string
	debounce  time.Duration
	cache     Invalidator
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	onChange  func(scenarios []string)
	done      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewWatcher creates a watcher over dir. It fails if dir does not exist.
func NewWatcher(dir string, scenarios []string, debounce time.Duration, cache Invalidator, logger *zap.Logger, onChange func([]string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		dir:       dir,
		scenarios: slices.Clone(scenarios),
		debounce:  debounce,
		cache:     cache,
		logger:    logger,
		watcher:   fsWatcher,
		onChange:  onChange,
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching in a goroutine
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the watcher and waits for the loop to exit
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") || event.Op == fsnotify.Chmod {
				continue
			}

			w.logger.Debug("result file change detected",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			pending[event.Name] = struct{}{}

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("results watcher error", zap.Error(err))

		case <-timerC:
			timerC = nil
			w.flush(pending)
			pending = make(map[string]struct{})
		}
	}
}

func (w *Watcher) flush(paths map[string]struct{}) {
	touched := make(map[string]struct{})
	for path := range paths {
		if w.cache != nil {
			w.cache.Invalidate(path)
		}
		if scenario, ok := w.scenarioOf(filepath.Base(path)); ok {
			touched[scenario] = struct{}{}
		}
	}
	if len(touched) == 0 {
		return
	}

	scenarios := make([]string, 0, len(touched))
	for s := range touched {
		scenarios = append(scenarios, s)
	}
	slices.Sort(scenarios)

	w.logger.Info("results changed", zap.Strings("scenarios", scenarios))
	if w.onChange != nil {
		w.onChange(scenarios)
	}
}

// scenarioOf returns the longest configured scenario that prefixes name
func (w *Watcher) scenarioOf(name string) (string, bool) {
	best := ""
	for _, s := range w.scenarios {
		if strings.HasPrefix(name, s+"_") && len(s) > len(best) {
			best = s
		}
	}
	return best, best != ""
}
