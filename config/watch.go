package config

import (
	"context"
	"path/filepath"

	"Tunedrop/logger"

	"github.com/fsnotify/fsnotify"
)

// Watch 监听 .env 文件变化，变化后重新加载配置并回调 onChange。
// 监听的是文件所在目录，编辑器替换文件时也能收到事件。ctx 取消后退出。
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Reload(abs)
				if err != nil {
					logger.Warn("重新加载配置失败", logger.ErrorField(err))
					continue
				}
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("配置监听出错", logger.ErrorField(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
