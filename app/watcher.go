package app

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/Dolbhi/deferred-renderer/core"
	"github.com/Dolbhi/deferred-renderer/gpu"
)

// shaderFileNames maps override file names to shader module names in the
// pipeline cache.
var shaderFileNames = map[string]string{
	"geometry.wgsl": "geometry",
	"lighting.wgsl": "lighting",
	"bbox.wgsl":     "bbox",
}

// ShaderWatcher watches an override directory and stages replacement WGSL
// sources into the pipeline cache. It never touches pipelines itself; the
// render loop polls ConsumeReload between frames and invalidates the cache
// on its own thread.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	cache   *gpu.PipelineCache
	log     core.Logger
	pending atomic.Bool
	done    chan struct{}
}

func NewShaderWatcher(dir string, cache *gpu.PipelineCache, log core.Logger) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &ShaderWatcher{
		watcher: watcher,
		cache:   cache,
		log:     log,
		done:    make(chan struct{}),
	}

	// Pick up overrides that were already in place at startup.
	entries, err := os.ReadDir(dir)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.stage(filepath.Join(dir, entry.Name()))
		}
	}

	go w.run()
	log.Infof("watching %s for shader overrides", dir)
	return w, nil
}

func (w *ShaderWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.stage(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("shader watcher: %v", err)
		}
	}
}

func (w *ShaderWatcher) stage(path string) {
	name, ok := shaderFileNames[filepath.Base(path)]
	if !ok {
		return
	}
	code, err := os.ReadFile(path)
	if err != nil {
		w.log.Warnf("shader override %s: %v", path, err)
		return
	}
	if len(code) == 0 {
		// Editors often truncate before writing; the write event follows.
		return
	}
	w.cache.SetSource(name, string(code))
	w.pending.Store(true)
	w.log.Infof("staged shader override %q from %s", name, path)
}

// ConsumeReload reports whether any override was staged since the last call,
// clearing the flag. On true the caller drops compiled pipelines.
func (w *ShaderWatcher) ConsumeReload() bool {
	return w.pending.Swap(false)
}

func (w *ShaderWatcher) Close() {
	w.watcher.Close()
	<-w.done
}
