package theme

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FilePreference is a Preference read from a file holding "dark" or
// "light". The file's directory is watched so editors that replace the file
// are picked up; a missing file means light.
type FilePreference struct {
	path    string
	watcher *fsnotify.Watcher
	log     zerolog.Logger

	mu        sync.Mutex
	dark      bool
	listeners map[int]func()
	nextID    int

	stop chan struct{}
	done chan struct{}
}

// NewFilePreference reads path and starts watching it. Call Close to stop.
func NewFilePreference(path string, log zerolog.Logger) (*FilePreference, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	p := &FilePreference{
		path:      path,
		watcher:   watcher,
		log:       log.With().Str("component", "theme").Str("path", path).Logger(),
		listeners: make(map[int]func()),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	p.dark = p.read()
	go p.watch()
	return p, nil
}

func (p *FilePreference) Dark() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dark
}

// OnChange registers fn; it runs on the watcher goroutine after the value
// flips.
func (p *FilePreference) OnChange(fn func()) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Listeners reports how many change listeners are registered.
func (p *FilePreference) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// Close stops watching. Safe to call more than once.
func (p *FilePreference) Close() error {
	select {
	case <-p.stop:
		return nil
	default:
		close(p.stop)
	}
	err := p.watcher.Close()
	<-p.done
	return err
}

func (p *FilePreference) read() bool {
	b, err := os.ReadFile(p.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.log.Warn().Err(err).Msg("read theme preference")
		}
		return false
	}
	return bytes.EqualFold(bytes.TrimSpace(b), []byte("dark"))
}

func (p *FilePreference) watch() {
	defer close(p.done)
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			p.refresh()
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.log.Warn().Err(err).Msg("theme watcher error")
		case <-p.stop:
			return
		}
	}
}

func (p *FilePreference) refresh() {
	dark := p.read()
	p.mu.Lock()
	if dark == p.dark {
		p.mu.Unlock()
		return
	}
	p.dark = dark
	fns := make([]func(), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	p.log.Debug().Bool("dark", dark).Msg("theme preference changed")
	for _, fn := range fns {
		fn()
	}
}
