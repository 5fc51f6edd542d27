package orchestrator

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Signal file names under the signals directory.
const (
	stopFile  = "stop"
	pauseFile = "pause"
)

// SignalController turns files in a signals directory into loop
// control: a stop file shuts the loops down, a pause file suspends
// them until removed. Files are picked up by an fsnotify watcher,
// with a stat fallback for missed events. Stop is sticky until
// ClearSignals; pause follows the file.
type SignalController struct {
	dir string

	mu    sync.RWMutex
	stop  bool
	pause bool
	// stopped is closed when the stop signal is first observed and
	// replaced by ClearSignals.
	stopped chan struct{}

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalController creates the signals directory and starts
// watching it. A failed watcher is not an error: the controller
// degrades to stat polling.
func NewSignalController(dir string) (*SignalController, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	c := &SignalController{
		dir:     dir,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("signal watcher unavailable, using stat fallback")
		return c, nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		log.Warn().Err(err).Str("dir", dir).Msg("signal watcher unavailable, using stat fallback")
		return c, nil
	}
	c.watcher = watcher

	go c.watch()
	return c, nil
}

// watch reacts to signal file changes until Close.
func (c *SignalController) watch() {
	for {
		select {
		case <-c.done:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.apply(event)
		case <-c.watcher.Errors:
			// Stat fallback covers anything the watcher drops.
		}
	}
}

// apply folds one watcher event into the signal state.
func (c *SignalController) apply(event fsnotify.Event) {
	written := event.Op&(fsnotify.Create|fsnotify.Write) != 0
	removed := event.Op&fsnotify.Remove != 0

	c.mu.Lock()
	defer c.mu.Unlock()
	switch filepath.Base(event.Name) {
	case stopFile:
		if written {
			c.markStoppedLocked()
		}
	case pauseFile:
		if written {
			c.pause = true
		}
		if removed {
			c.pause = false
		}
	}
}

// markStoppedLocked sets the stop flag and closes the stop channel
// exactly once. Caller holds the mutex.
func (c *SignalController) markStoppedLocked() {
	if c.stop {
		return
	}
	c.stop = true
	close(c.stopped)
}

// Stopped returns a channel closed when the stop signal arrives.
func (c *SignalController) Stopped() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopped
}

// ShouldStop reports whether a stop signal has been received. The
// file is stat-checked directly in case the watcher missed it.
func (c *SignalController) ShouldStop() bool {
	if _, err := os.Stat(filepath.Join(c.dir, stopFile)); err == nil {
		c.mu.Lock()
		c.markStoppedLocked()
		c.mu.Unlock()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stop
}

// ShouldPause reports whether the pause file is present. The file is
// the source of truth, so removing it resumes the loops even when the
// watcher missed the removal.
func (c *SignalController) ShouldPause() bool {
	_, err := os.Stat(filepath.Join(c.dir, pauseFile))
	present := err == nil

	c.mu.Lock()
	c.pause = present
	c.mu.Unlock()
	return present
}

// RequestStop writes the stop file.
func (c *SignalController) RequestStop() error {
	return c.write(stopFile)
}

// RequestPause writes the pause file.
func (c *SignalController) RequestPause() error {
	return c.write(pauseFile)
}

// Resume removes the pause file and clears the pause flag.
func (c *SignalController) Resume() error {
	c.mu.Lock()
	c.pause = false
	c.mu.Unlock()

	err := os.Remove(filepath.Join(c.dir, pauseFile))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ClearSignals removes both signal files and resets the state,
// re-arming the stop channel.
func (c *SignalController) ClearSignals() {
	c.mu.Lock()
	c.stop = false
	c.pause = false
	c.stopped = make(chan struct{})
	c.mu.Unlock()

	os.Remove(filepath.Join(c.dir, stopFile))
	os.Remove(filepath.Join(c.dir, pauseFile))
}

// Dir returns the watched signals directory.
func (c *SignalController) Dir() string { return c.dir }

// Close stops the watcher goroutine.
func (c *SignalController) Close() {
	close(c.done)
	if c.watcher != nil {
		c.watcher.Close()
	}
}

// write creates one signal file stamped with the request time.
func (c *SignalController) write(name string) error {
	path := filepath.Join(c.dir, name)
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0o644)
}
