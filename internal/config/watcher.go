package config

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchEnvFile reloads the dotenv file and invokes onChange whenever it
// is rewritten. Falls back to one-minute polling when fsnotify cannot
// watch the path.
func WatchEnvFile(ctx context.Context, path string, onChange func()) {
	reload := func() {
		if err := ReloadEnvFile(path); err != nil {
			log.Printf("[config] reloading %s failed: %v", path, err)
			return
		}
		onChange()
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := watcher.Add(path); addErr != nil {
			log.Printf("[config] cannot watch %s (%v), polling instead", path, addErr)
			watcher.Close()
			watcher = nil
		}
	} else {
		log.Printf("[config] fsnotify unavailable (%v), polling instead", err)
		watcher = nil
	}

	if watcher == nil {
		go pollEnvFile(ctx, reload)
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					// Editors often write-then-rename; give the file a
					// moment to settle.
					time.Sleep(100 * time.Millisecond)
					log.Printf("[config] %s changed, reloading", path)
					reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[config] watcher error: %v", err)
			}
		}
	}()
}

func pollEnvFile(ctx context.Context, reload func()) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reload()
		}
	}
}
