package config

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file on change and reports the result to a
// caller-supplied callback. The coordinator does not start a Watcher;
// applying a reloaded Config (cache sizes, plan_cache_ttl) is up to the
// callback.
type Watcher struct {
	fsw *fsnotify.Watcher
}

// WatchFile starts watching path for writes, calling onChange with each
// successfully reloaded Config. Parse errors are logged and skipped; the
// previous config stays in effect.
func WatchFile(path string, onChange func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadFromFile(path)
				if err != nil {
					log.Printf("config: reload %s failed: %v", path, err)
					continue
				}
				onChange(cfg)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				log.Printf("config: watch error: %v", err)
			}
		}
	}()

	return &Watcher{fsw: fsw}, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
