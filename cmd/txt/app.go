package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dshills/txt/internal/config"
	"github.com/dshills/txt/internal/engine"
	terrors "github.com/dshills/txt/internal/errors"
	"github.com/dshills/txt/internal/filestore"
	"github.com/dshills/txt/internal/logging"
)

// app wires configuration, logging and the document store for one command.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	store  *filestore.Store
	stdout io.Writer
	stderr io.Writer
}

func newApp(opts options, stdout, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Config{
		Level:  cfg.Log().Level,
		Output: stderr,
		Prefix: "txt",
	})
	logging.SetDefault(log)

	lb := cfg.LineBreak()
	edit := cfg.Edit()
	watch := cfg.Watch()
	docOpts := []engine.Option{
		engine.WithLineStd(lb.Fallback),
		engine.WithDetectBytes(lb.DetectBytes),
		engine.WithEditCapacity(edit.InitialCapacity),
		engine.WithEditLimit(edit.MaxBytes),
		engine.WithMaxUndoEntries(cfg.History().MaxEntries),
		engine.WithBackupDir(cfg.Backup().Dir),
		engine.WithLogger(log),
	}

	// A one-shot command has no use for live change notifications, but a
	// long script run still reports a file modified underneath it.
	store, err := filestore.New(
		filestore.WithDocumentOptions(docOpts...),
		filestore.WithWatch(watch.Enabled),
		filestore.WithDebounce(watch.Debounce),
		filestore.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	errs := cfg.ConfigErrors()
	paths := make([]string, 0, len(errs))
	for p := range errs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		log.Warn("config %s: %v (using default)", p, errs[p])
	}

	return &app{cfg: cfg, log: log, store: store, stdout: stdout, stderr: stderr}, nil
}

func (a *app) shutdown() {
	if err := a.store.Shutdown(); err != nil {
		a.log.Warn("shutdown: %v", err)
	}
}

// report prints err, naming the backup that holds the previous file
// content when a save failed.
func (a *app) report(err error) {
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	if p, ok := terrors.BackupPath(err); ok {
		fmt.Fprintf(a.stderr, "Previous content preserved in %s\n", p)
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openExisting opens a file that must already exist.
func (a *app) openExisting(ctx context.Context, path string) (*filestore.Handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, terrors.NewPathError("open", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, terrors.NewPathError("open", path, terrors.ErrNotRegular)
	}
	return a.store.Open(ctx, path)
}

var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}
