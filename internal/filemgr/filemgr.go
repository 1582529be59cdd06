// Package filemgr loads files into sequences and saves sequences back to
// disk without ever leaving the file in a state that cannot be recovered.
//
// # Recovery artifacts
//
// Saving creates files in the backup directory (os.TempDir by default):
//
//   - TxTinternal-OrigState-*: the file's content as it was opened. Created
//     on the first save of a non-empty file and kept until Close, because
//     the open sequence reads unedited text from it.
//   - TxTinternal-filebackup-*: the file's content just before a later
//     save. Removed when that save succeeds.
//
// When a save fails the target is restored from the backup, the backup is
// left in place, and the returned *errors.SaveError names it. Backups named
// in an error are never removed by this package.
package filemgr

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dshills/txt/internal/engine/piece"
	"github.com/dshills/txt/internal/engine/sequence"
	terrors "github.com/dshills/txt/internal/errors"
	"github.com/dshills/txt/internal/logging"
	"github.com/dshills/txt/internal/mmap"
)

// Name prefixes of the recovery artifacts.
const (
	BackupPrefix    = "TxTinternal-filebackup-"
	OrigStatePrefix = "TxTinternal-OrigState-"
)

// File is one open backing file.
type File struct {
	path string
	f    *os.File

	// hadContent is true if the file was non-empty when opened.
	hadContent bool
	std        sequence.LineStd

	wb       *mmap.Map // write-back mapping, nil until the first save
	origCopy string    // OrigState artifact, empty until the first save
	reported map[string]bool

	backupDir   string
	detectBytes int
	seqOpts     []sequence.Option
	log         *logging.Logger
	syncFn      func(*mmap.Map) error

	saves  int
	closed bool
}

// Option configures a File.
type Option func(*File)

// WithBackupDir sets where recovery artifacts are created.
func WithBackupDir(dir string) Option {
	return func(fm *File) {
		if dir != "" {
			fm.backupDir = dir
		}
	}
}

// WithDetectBytes sets how much of the file line-break detection reads.
func WithDetectBytes(n int) Option {
	return func(fm *File) {
		if n > 0 {
			fm.detectBytes = n
		}
	}
}

// WithSequenceOptions passes options to the sequence built at open.
func WithSequenceOptions(opts ...sequence.Option) Option {
	return func(fm *File) {
		fm.seqOpts = append(fm.seqOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(fm *File) {
		if l != nil {
			fm.log = l
		}
	}
}

// OpenOrCreate opens path for reading and writing, creating it if needed,
// and builds a sequence over its content. A non-empty file is mapped
// read-only and its line-break standard detected; if detection is
// inconclusive fallback is used, and if fallback is NoInit the open fails.
func OpenOrCreate(path string, fallback sequence.LineStd, opts ...Option) (*File, *sequence.Sequence, error) {
	fm := &File{
		path:        path,
		backupDir:   os.TempDir(),
		detectBytes: sequence.DefaultDetectBytes,
		reported:    make(map[string]bool),
		log:         logging.Default(),
		syncFn:      (*mmap.Map).Sync,
	}
	for _, opt := range opts {
		opt(fm)
	}
	fm.log = fm.log.WithComponent("filemgr").WithField("path", path)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, terrors.NewPathError("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, terrors.NewPathError("open", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, terrors.NewPathError("open", path, terrors.ErrNotRegular)
	}
	fm.f = f

	size := int(info.Size())
	if size == 0 {
		seq, err := fm.openEmpty(fallback)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return fm, seq, nil
	}

	m, err := mmap.New(f, size, false)
	if err != nil {
		f.Close()
		return nil, nil, terrors.NewPathError("open", path, err)
	}

	std, err := fm.detect(m.Data(), fallback)
	if err != nil {
		m.Close()
		f.Close()
		return nil, nil, err
	}

	sopts := append([]sequence.Option{sequence.WithLineStd(std)}, fm.seqOpts...)
	seq, err := sequence.NewFromBuffer(piece.NewMappedBuffer(m.Data(), m.Close), sopts...)
	if err != nil {
		m.Close()
		f.Close()
		return nil, nil, terrors.NewPathError("open", path, err)
	}

	fm.hadContent = true
	fm.std = std
	fm.log.Info("opened %d bytes, line-break standard %s", size, std)
	return fm, seq, nil
}

func (fm *File) openEmpty(fallback sequence.LineStd) (*sequence.Sequence, error) {
	if fallback == sequence.NoInit {
		return nil, terrors.NewPathError("open", fm.path,
			fmt.Errorf("%w: the file is empty; specify a line-break standard", terrors.ErrNoStandardDetected))
	}
	fm.std = fallback
	opts := append([]sequence.Option{sequence.WithLineStd(fallback)}, fm.seqOpts...)
	fm.log.Info("opened empty file, line-break standard %s", fallback)
	return sequence.New(opts...), nil
}

// detect runs line-break detection over mapped data.
func (fm *File) detect(data []byte, fallback sequence.LineStd) (sequence.LineStd, error) {
	var (
		std  sequence.LineStd
		derr error
	)
	if err := mmap.Guard(func() {
		std, derr = sequence.FindLineBreakStandard(data, fm.detectBytes)
	}); err != nil {
		return sequence.NoInit, terrors.NewPathError("open", fm.path, fmt.Errorf("%w: %w", terrors.ErrReadFailed, err))
	}
	if derr == nil {
		return std, nil
	}
	if fallback == sequence.NoInit {
		return sequence.NoInit, terrors.NewPathError("open", fm.path,
			fmt.Errorf("%w; specify a line-break standard explicitly", derr))
	}
	fm.log.Debug("line-break detection inconclusive, using %s", fallback)
	return fallback, nil
}

// Path returns the backing file's path.
func (fm *File) Path() string { return fm.path }

// LineStd returns the standard chosen at open.
func (fm *File) LineStd() sequence.LineStd { return fm.std }

// OrigStatePath returns the OrigState artifact, or "" before the first save.
func (fm *File) OrigStatePath() string { return fm.origCopy }

// Saves returns the number of successful saves.
func (fm *File) Saves() int { return fm.saves }

// Save writes seq's content to the backing file. Editing must not happen
// while Save runs.
//
// On failure the backing file holds its pre-save content and the returned
// *errors.SaveError names the backup. ErrBackupFailed means nothing was
// written.
func (fm *File) Save(seq *sequence.Sequence) error {
	if fm.closed {
		return terrors.NewPathError("save", fm.path, terrors.ErrClosed)
	}
	required := seq.Len()

	info, err := fm.f.Stat()
	if err != nil {
		return &terrors.SaveError{Path: fm.path, Err: fmt.Errorf("%w: %w", terrors.ErrBackupFailed, err)}
	}
	priorSize := info.Size()

	var backup string
	switch {
	case fm.hadContent && fm.origCopy == "":
		backup, err = fm.snapshotOriginal(seq)
		if err != nil {
			fm.log.Error("cannot create original-state copy: %v", err)
			return &terrors.SaveError{Path: fm.path, Err: fmt.Errorf("%w: %w", terrors.ErrBackupFailed, err)}
		}
		fm.log.Debug("original content copied to %s", backup)
	case priorSize > 0:
		backup, err = fm.copyToTemp(BackupPrefix, func(w io.Writer) error {
			_, err := io.Copy(w, io.NewSectionReader(fm.f, 0, priorSize))
			return err
		})
		if err != nil {
			fm.log.Error("cannot create backup: %v", err)
			return &terrors.SaveError{Path: fm.path, Err: fmt.Errorf("%w: %w", terrors.ErrBackupFailed, err)}
		}
		fm.log.Debug("backup written to %s", backup)
	}

	if err := fm.write(seq, required); err != nil {
		if rerr := fm.rollback(backup, priorSize); rerr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
		if backup != "" {
			fm.reported[backup] = true
		}
		fm.log.Error("save failed, previous content preserved in %q: %v", backup, err)
		return &terrors.SaveError{Path: fm.path, Backup: backup, Err: fmt.Errorf("%w: %w", terrors.ErrSaveFailed, err)}
	}

	if backup != "" && backup != fm.origCopy {
		if err := os.Remove(backup); err != nil {
			fm.log.Warn("cannot remove backup %s: %v", backup, err)
		}
	}
	fm.saves++
	fm.log.Info("saved %d bytes", required)
	return nil
}

// snapshotOriginal copies seq's file buffer, the file as opened, into an
// OrigState artifact and repoints seq at a mapping of that copy.
func (fm *File) snapshotOriginal(seq *sequence.Sequence) (string, error) {
	fb := seq.FileBuffer()
	size := fb.Size()
	path, err := fm.copyToTemp(OrigStatePrefix, func(w io.Writer) error {
		var werr error
		if err := mmap.Guard(func() {
			_, werr = w.Write(fb.Slice(0, size))
		}); err != nil {
			return err
		}
		return werr
	})
	if err != nil {
		return "", err
	}

	cf, err := os.Open(path)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	defer cf.Close()

	m, err := mmap.New(cf, size, false)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	old, err := seq.SetFileBuffer(piece.NewMappedBuffer(m.Data(), m.Close))
	if err != nil {
		m.Close()
		os.Remove(path)
		return "", err
	}
	if err := old.Close(); err != nil {
		fm.log.Warn("cannot unmap original: %v", err)
	}

	fm.origCopy = path
	return path, nil
}

// copyToTemp creates an artifact, fills it with fill and flushes it.
func (fm *File) copyToTemp(prefix string, fill func(io.Writer) error) (string, error) {
	tmp, err := os.CreateTemp(fm.backupDir, prefix+"*")
	if err != nil {
		return "", err
	}
	path := tmp.Name()

	err = fill(tmp)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// write resizes the backing file and the write-back mapping to size bytes,
// streams seq into the mapping and flushes it.
func (fm *File) write(seq *sequence.Sequence, size int) error {
	if err := fm.f.Truncate(int64(size)); err != nil {
		return err
	}
	if size == 0 {
		if err := fm.closeWriteBack(); err != nil {
			return err
		}
		return fm.f.Sync()
	}

	if fm.wb == nil {
		m, err := mmap.New(fm.f, size, true)
		if err != nil {
			return err
		}
		fm.wb = m
	} else if err := fm.wb.Remap(size); err != nil {
		fm.wb = nil
		return err
	}

	n, err := seq.CopyTo(fm.wb.Data())
	if err != nil {
		return err
	}
	if n != size {
		return fmt.Errorf("wrote %d of %d bytes", n, size)
	}
	return fm.syncFn(fm.wb)
}

// rollback restores the backing file from backup, or to empty when the file
// was empty before the save.
func (fm *File) rollback(backup string, priorSize int64) error {
	// The mapping may now extend past the restored end of file.
	if err := fm.closeWriteBack(); err != nil {
		return err
	}

	if backup == "" {
		if priorSize != 0 {
			return fmt.Errorf("no backup to restore %d bytes from", priorSize)
		}
		if err := fm.f.Truncate(0); err != nil {
			return err
		}
		return fm.f.Sync()
	}

	src, err := os.Open(backup)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}

	if err := fm.f.Truncate(info.Size()); err != nil {
		return err
	}
	if _, err := io.Copy(io.NewOffsetWriter(fm.f, 0), src); err != nil {
		return err
	}
	fm.log.Warn("restored previous content from %s", backup)
	return fm.f.Sync()
}

func (fm *File) closeWriteBack() error {
	if fm.wb == nil {
		return nil
	}
	err := fm.wb.Close()
	fm.wb = nil
	return err
}

// Close releases the backing file and removes the OrigState artifact unless
// a failed save reported it. The sequence must be closed first.
func (fm *File) Close() error {
	if fm.closed {
		return nil
	}
	fm.closed = true

	errs := []error{fm.closeWriteBack(), fm.f.Close()}
	if fm.origCopy != "" && !fm.reported[fm.origCopy] {
		if err := os.Remove(fm.origCopy); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	fm.log.Debug("closed after %d saves", fm.saves)
	return errors.Join(errs...)
}
