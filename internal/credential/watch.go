package credential

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/storage"
)

// startWatch hot-reloads the pool when the account file changes on disk.
// Only stores exposing a local path are watched; remote backends change
// through the admin API instead.
func (p *Pool) startWatch(ctx context.Context) {
	ps, ok := p.store.(storage.PathStore)
	if !ok {
		return
	}
	path := ps.AccountsPath()
	if path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("account pool: file watcher unavailable")
		return
	}
	// Watch the directory: the atomic rename replaces the file's inode, so
	// a watch on the file itself would die after the first save.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.WithError(err).Warnf("account pool: cannot watch %s", path)
		_ = watcher.Close()
		return
	}

	p.wg.Add(2)
	go p.watchLoop(ctx, watcher, filepath.Base(path))
	go p.reloadLoop(ctx)
	log.Infof("account pool: watching %s for outside edits", path)
}

func (p *Pool) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, base string) {
	defer p.wg.Done()
	defer watcher.Close()
	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Base(evt.Name) != base {
				continue
			}
			if p.recentSelfWrite() {
				continue
			}
			p.requestReload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("account pool: watcher error")
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) requestReload() {
	select {
	case p.reloadCh <- struct{}{}:
	default:
	}
}

// reloadLoop debounces watcher signals so an editor's save burst triggers
// one reload.
func (p *Pool) reloadLoop(ctx context.Context) {
	defer p.wg.Done()
	var timer *time.Timer
	var timerCh <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-p.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-p.reloadCh:
			if timer == nil {
				timer = time.NewTimer(constants.AccountWatchDebounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(constants.AccountWatchDebounce)
			}
		case <-timerCh:
			log.Info("account pool: account file changed, reloading")
			if err := p.Reload(ctx); err != nil {
				log.WithError(err).Warn("account pool: auto reload failed")
			}
			timerCh = nil
			timer = nil
		}
	}
}
