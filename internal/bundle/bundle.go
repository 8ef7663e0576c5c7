// Package bundle archives the artifacts of processed motors into ZIP files.
package bundle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/nar-st/motortest/internal/fsutil"
	"github.com/nar-st/motortest/internal/timeutil"
)

// ErrNoTargets is returned when there is nothing to archive.
var ErrNoTargets = errors.New("no targets found to bundle")

// SessionArchive is the name of the whole-session archive.
const SessionArchive = "session.zip"

// Result lists what went into an archive.
type Result struct {
	Archive string
	Files   []string
}

// Bundler writes ZIP archives through FS.
type Bundler struct {
	FS     fsutil.FileSystem
	Logger *zap.Logger
	Clock  timeutil.Clock
}

// New returns a Bundler; nil dependencies get defaults.
func New(fsys fsutil.FileSystem, log *zap.Logger, clock timeutil.Clock) *Bundler {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Bundler{FS: fsys, Logger: log, Clock: clock}
}

// Motor archives every file in dir named <base>.<ext> into dir/<base>.zip.
// An existing <base>.zip is never included in itself.
func (b *Bundler) Motor(dir, base string) (*Result, error) {
	b.Logger.Info("Bundling files related to: " + base)
	archive := filepath.Join(dir, base+".zip")

	candidates, err := b.FS.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var targets []string
	for _, path := range candidates {
		name := filepath.Base(path)
		if !strings.HasPrefix(name, base+".") || path == archive {
			continue
		}
		b.Logger.Info("Found target: " + name)
		targets = append(targets, path)
	}
	if len(targets) == 0 {
		b.Logger.Error("No targets found to bundle " + base)
		return nil, fmt.Errorf("%w: %s", ErrNoTargets, base)
	}

	if err := b.write(archive, dir, targets); err != nil {
		return nil, err
	}
	return &Result{Archive: archive, Files: targets}, nil
}

// Tree archives every file under root into root/<name>, with entry names
// relative to root. The archive itself is never included.
func (b *Bundler) Tree(root, name string) (*Result, error) {
	archive := filepath.Join(root, name)
	all, err := b.FS.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	var targets []string
	for _, path := range all {
		if path == archive {
			continue
		}
		targets = append(targets, path)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTargets, root)
	}
	if err := b.write(archive, root, targets); err != nil {
		return nil, err
	}
	return &Result{Archive: archive, Files: targets}, nil
}

func (b *Bundler) write(archive, root string, targets []string) (err error) {
	out, err := b.FS.Create(archive)
	if err != nil {
		return fmt.Errorf("create %s: %w", archive, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", archive, cerr)
		}
	}()

	zw := zip.NewWriter(out)
	modified := b.Clock.Now()
	for _, path := range targets {
		if err := b.add(zw, root, path, modified); err != nil {
			zw.Close()
			return err
		}
		b.Logger.Info("Bundled: " + path)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish %s: %w", archive, err)
	}
	b.Logger.Info("Bundle: " + archive)
	return nil
}

func (b *Bundler) add(zw *zip.Writer, root, path string, modified time.Time) error {
	name, err := filepath.Rel(root, path)
	if err != nil {
		return fmt.Errorf("entry name for %s: %w", path, err)
	}
	data, err := b.FS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     filepath.ToSlash(name),
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
