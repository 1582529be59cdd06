package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dshills/txt/internal/engine/sequence"
	terrors "github.com/dshills/txt/internal/errors"
	"github.com/dshills/txt/internal/script"
)

func (a *app) stats(args []string) error {
	if len(args) != 1 {
		return usageError("stats FILE")
	}
	h, err := a.openExisting(context.Background(), args[0])
	if err != nil {
		return err
	}
	st := h.Doc.Statistics()
	fmt.Fprintf(a.stdout, "%s: bytes=%d %s linebreak=%s\n", args[0], h.Doc.Len(), st, h.Doc.LineStd())
	return nil
}

func (a *app) cat(args []string) error {
	if len(args) != 1 {
		return usageError("cat FILE")
	}
	h, err := a.openExisting(context.Background(), args[0])
	if err != nil {
		return err
	}
	_, err = h.Doc.WriteTo(a.stdout)
	return err
}

// detect reports the standard without opening a document, so a file
// with no clear standard is reported rather than rejected.
func (a *app) detect(args []string) error {
	if len(args) != 1 {
		return usageError("detect FILE")
	}
	limit := a.cfg.LineBreak().DetectBytes

	f, err := os.Open(args[0])
	if err != nil {
		return terrors.NewPathError("detect", args[0], err)
	}
	defer f.Close()

	buf := make([]byte, limit)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return terrors.NewPathError("detect", args[0], err)
	}

	std, err := sequence.FindLineBreakStandard(buf[:n], limit)
	if errors.Is(err, terrors.ErrNoStandardDetected) {
		fmt.Fprintf(a.stdout, "%s: %s (%v)\n", args[0], sequence.NoInit, err)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: %s\n", args[0], std)
	return nil
}

func (a *app) runScript(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	save := fs.Bool("save", false, "Save FILE after the script succeeds")
	timeout := fs.Duration("timeout", script.DefaultTimeout, "Script time budget")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// Flags may also follow SCRIPT FILE.
	pos := fs.Args()
	if len(pos) > 2 {
		if err := fs.Parse(pos[2:]); err != nil {
			return err
		}
		pos = append(pos[:2:2], fs.Args()...)
	}
	if len(pos) != 2 {
		return usageError("run [-save] [-timeout d] SCRIPT FILE")
	}
	scriptPath, target := pos[0], pos[1]

	src, err := os.ReadFile(scriptPath)
	if err != nil {
		return terrors.NewPathError("read", scriptPath, err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	h, err := a.store.Open(ctx, target)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := script.Run(ctx, h.Doc, string(src),
		script.WithName(scriptPath),
		script.WithTimeout(*timeout),
		script.WithOutput(a.stdout),
		script.WithLogger(a.log),
	)
	if err != nil {
		return err
	}
	a.log.Info("%s: %d edits in %s", scriptPath, res.Edits, time.Since(start))

	if h.Doc.ExternallyModified() {
		a.log.Warn("%s changed on disk while the script ran", target)
	}
	if !*save {
		return nil
	}
	if err := a.store.Save(ctx, h.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "saved %s: bytes=%d %s\n", target, h.Doc.Len(), h.Doc.Statistics())
	return nil
}
