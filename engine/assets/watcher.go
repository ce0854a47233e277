package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima/engine/core"
)

type ResourceType int

const (
	ResourceNone ResourceType = iota
	ResourceAtlas
	ResourceTexture
	ResourceShader
	ResourceAsset
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceAtlas:
		return "atlas"
	case ResourceTexture:
		return "texture"
	case ResourceShader:
		return "shader"
	case ResourceAsset:
		return "asset"
	}
	return "none"
}

// FileChange is emitted for every create, write or remove of a tracked file.
type FileChange struct {
	// Path is relative to the watched root.
	Path     string
	Resource ResourceType
	Op       fsnotify.Op
}

type fileInfo struct {
	resource  ResourceType
	lastWrite time.Time
}

// Watcher tracks every resource file under a directory tree and reports
// changes to them.
type Watcher struct {
	root  string
	files map[string]fileInfo
	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	started  bool
	events   chan FileChange
	errors   chan error
}

func NewWatcher() (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		files:    make(map[string]fileInfo),
		fsnotify: fsWatch,
		events:   make(chan FileChange, 64),
		errors:   make(chan error, 8),
		done:     make(chan struct{}),
	}, nil
}

// Watch starts watching dir and all of its sub-directories.
func (w *Watcher) Watch(dir string) error {
	if w.isClosed {
		return errors.New("watcher already closed")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	w.root = abs
	if err := w.watchRecursive(abs, false); err != nil {
		return err
	}

	w.started = true
	w.wg.Add(1)
	go w.start()
	return nil
}

func (w *Watcher) Events() <-chan FileChange { return w.events }

func (w *Watcher) Errors() <-chan error { return w.errors }

// Tracked reports whether path (relative to the root) is a known resource.
func (w *Watcher) Tracked(path string) (ResourceType, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	info, ok := w.files[filepath.ToSlash(path)]
	return info.resource, ok
}

func (w *Watcher) Close() error {
	if w.isClosed {
		return nil
	}
	w.isClosed = true
	if !w.started {
		return w.fsnotify.Close()
	}
	close(w.done)
	w.wg.Wait()
	return nil
}

func (w *Watcher) start() {
	defer w.wg.Done()
	defer w.shutdown()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := w.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			rel := w.relative(e.Name)
			resource := ResourceOf(rel)
			if resource == ResourceNone {
				continue
			}
			switch {
			case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.track(rel, resource)
			case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.untrack(rel)
			default:
				continue
			}
			select {
			case w.events <- FileChange{Path: rel, Resource: resource, Op: e.Op}:
			case <-w.done:
				return
			}

		case e, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())
			select {
			case w.errors <- e:
			default:
			}

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) shutdown() {
	w.fsnotify.Close()
	close(w.events)
	close(w.errors)
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files already present.
func (w *Watcher) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return w.fsnotify.Remove(walkPath)
			}
			return w.fsnotify.Add(walkPath)
		}
		rel := w.relative(walkPath)
		if resource := ResourceOf(rel); resource != ResourceNone {
			w.track(rel, resource)
		}
		return nil
	})
}

func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) track(path string, resource ResourceType) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.files[path] = fileInfo{resource: resource, lastWrite: time.Now()}
}

func (w *Watcher) untrack(path string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	delete(w.files, path)
}

// ResourceOf classifies a file by extension.
func ResourceOf(path string) ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ResourceAtlas
	case ".png", ".bmp":
		return ResourceTexture
	case ".fxb":
		return ResourceShader
	case ".asset":
		return ResourceAsset
	default:
		return ResourceNone
	}
}
