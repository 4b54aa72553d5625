package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"arbcore/internal/app"
	"arbcore/internal/config"
	"arbcore/internal/gateway/notifier"
	"arbcore/internal/logger"

	"github.com/urfave/cli/v2"
)

// session bundles what every command needs and releases it on close.
type session struct {
	cfg      *config.Config
	app      *app.App
	watcher  *config.Watcher
	notifier notifier.TextNotifier
	files    []*os.File
}

func setup(c *cli.Context) (*session, error) {
	w, err := config.Watch(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := w.Current()
	rt := &session{cfg: cfg, watcher: w, notifier: notifier.Nop{}}
	if cfg.Notify.Enabled() {
		rt.notifier = notifier.NewTelegram(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID)
	}

	logFile, err := openAppend(cfg.App.LogPath)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if logFile != nil {
		rt.files = append(rt.files, logFile)
		mw := io.MultiWriter(os.Stdout, logFile)
		log.SetOutput(mw)
		logger.SetOutput(mw)
	}
	journal, err := openAppend(cfg.App.JournalPath)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if journal != nil {
		rt.files = append(rt.files, journal)
		logger.SetJournalWriter(journal)
	}
	logger.SetLevel(cfg.App.LogLevel)
	w.Subscribe(func(next *config.Config) {
		logger.SetLevel(next.App.LogLevel)
		logger.Infof("config reloaded, log level %s", next.App.LogLevel)
	})
	logger.Infof("config loaded (env=%s, symbol=%s, brokers=%d)", cfg.App.Env, cfg.Trade.Symbol, len(cfg.EnabledBrokers()))

	a, err := app.NewAppBuilder(cfg).Build(c.Context)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.app = a
	return rt, nil
}

func (rt *session) close() {
	if rt.app != nil {
		if err := rt.app.Close(); err != nil {
			logger.Warnf("close app: %v", err)
		}
	}
	if rt.watcher != nil {
		_ = rt.watcher.Close()
	}
	logger.SetJournalWriter(nil)
	for _, f := range rt.files {
		_ = f.Close()
	}
}

func openAppend(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
