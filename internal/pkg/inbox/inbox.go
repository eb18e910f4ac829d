package inbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"

	defaultSettle = 500 * time.Millisecond
)

// IngestFunc 导入一个文件；返回 nil 表示已入库（包括重复文件）
type IngestFunc func(ctx context.Context, path string) error

// Watcher 监听目录，新放入的 PDF 自动导入
//
// 成功的文件移到 processed/，失败的移到 failed/，避免重启后重复处理。
type Watcher struct {
	dir    string
	ingest IngestFunc
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	queue   chan string
}

func NewWatcher(dir string, ingest IngestFunc) *Watcher {
	return &Watcher{
		dir:     dir,
		ingest:  ingest,
		settle:  defaultSettle,
		pending: make(map[string]*time.Timer),
		queue:   make(chan string, 64),
	}
}

// Run 先处理目录里已有的文件，再监听新文件，直到 ctx 结束
func (w *Watcher) Run(ctx context.Context) error {
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	log.Printf("Inbox watching %s", w.dir)

	go w.drain(ctx)
	w.scan()

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if w.accept(ev.Name) {
				w.schedule(ev.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("Inbox watcher error: %v", err)
		}
	}
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.Printf("Inbox scan failed: %v", err)
		return
	}
	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if w.accept(path) {
			w.schedule(path)
		}
	}
}

// accept 只处理目录下第一层的 PDF，跳过隐藏文件和子目录
func (w *Watcher) accept(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || filepath.Dir(path) != filepath.Clean(w.dir) {
		return false
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// schedule 文件写入期间会收到多次事件，最后一次事件后等待 settle 再导入
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.queue <- path
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			w.handle(ctx, path)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return // 已被移走
	}

	target := ProcessedDir
	if err := w.ingest(ctx, path); err != nil {
		log.Printf("Inbox failed to ingest %s: %v", filepath.Base(path), err)
		target = FailedDir
	} else {
		log.Printf("Inbox ingested %s", filepath.Base(path))
	}

	dest := filepath.Join(w.dir, target, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Printf("Inbox failed to move %s: %v", path, err)
	}
}
