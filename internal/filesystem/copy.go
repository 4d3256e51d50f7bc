package filesystem

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertwitch/rpcfs/internal/pathing"
	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
)

const tmpSuffix = ".rpcfs"

//nolint:containedctx
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
		return cr.reader.Read(p)
	}
}

func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(&contextReader{ctx: ctx, reader: r})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return data, nil
}

// CopyOptions controls the behavior of [Handler.CopyFile].
type CopyOptions struct {
	// Exclusive fails the copy if the destination already exists.
	Exclusive bool
}

// CopyFile copies a regular file. The content goes into a uniquely named
// temporary file next to the destination first, both streams are
// checksummed and only a verified copy is moved into place. Permissions of
// the source are kept. With opts.Exclusive the copy is published with a
// hard link, which fails atomically if the destination appeared meanwhile.
func (f *Handler) CopyFile(ctx context.Context, src string, dst string, opts CopyOptions) error {
	if err := f.copyFile(ctx, src, dst, opts.Exclusive); err != nil {
		return fmt.Errorf("(fs-copyfile) %w", err)
	}

	return nil
}

//nolint:funlen
func (f *Handler) copyFile(ctx context.Context, src string, dst string, exclusive bool) error {
	srcFile, err := f.osHandler.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	if !srcInfo.Mode().IsRegular() {
		return pathError("copyfile", src, unix.EINVAL)
	}

	if exclusive {
		if err := f.ensureNotExists(dst); err != nil {
			return err
		}
	}

	dstFile, err := f.osHandler.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*"+tmpSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := dstFile.Name()

	// Only the file created above is ever removed here.
	var renamed bool
	defer func() {
		if !renamed {
			f.osHandler.Remove(tmpPath) //nolint:errcheck
		}
	}()
	defer dstFile.Close()

	if err := dstFile.Chmod(srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set temporary file permissions: %w", err)
	}

	srcHasher := blake3.New()
	dstHasher := blake3.New()

	ctxReader := &contextReader{
		ctx:    ctx,
		reader: io.TeeReader(srcFile, srcHasher),
	}
	multiWriter := io.MultiWriter(dstFile, dstHasher)

	if _, err := io.Copy(multiWriter, ctxReader); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("transfer canceled: %w", err)
		}

		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync destination fs: %w", err)
	}

	srcChecksum := hex.EncodeToString(srcHasher.Sum(nil))
	dstChecksum := hex.EncodeToString(dstHasher.Sum(nil))

	if srcChecksum != dstChecksum {
		return fmt.Errorf("%w: %s (src) != %s (dst)", ErrHashMismatch, srcChecksum, dstChecksum)
	}

	if exclusive {
		// The temporary name is released by the deferred removal.
		if err := f.osHandler.Link(tmpPath, dst); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return pathError("copyfile", dst, fs.ErrExist)
			}

			return fmt.Errorf("failed to link temporary file to destination file: %w", err)
		}

		return nil
	}

	if err := f.osHandler.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("failed to rename temporary file to destination file: %w", err)
	}

	renamed = true

	return nil
}

func (f *Handler) ensureNotExists(path string) error {
	if _, err := f.osHandler.Lstat(path); err == nil {
		return pathError("copyfile", path, fs.ErrExist)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check destination existence: %w", err)
	}

	return nil
}

// CpOptions controls the behavior of [Handler.Cp].
type CpOptions struct {
	// Recursive allows copying directories along with their contents.
	Recursive bool

	// Force overwrites existing destination files.
	Force bool

	// ErrorOnExist fails when a destination file exists and Force is unset.
	// Without either option existing files are left alone.
	ErrorOnExist bool

	// PreserveTimestamps carries access and modification times over.
	PreserveTimestamps bool
}

// Cp copies a file, a symbolic link or (with opts.Recursive) a directory
// tree. Trees are walked in parallel. Symbolic links are recreated as they
// are, without being followed.
func (f *Handler) Cp(ctx context.Context, src string, dst string, opts CpOptions) error {
	info, err := f.osHandler.Lstat(src)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if !info.IsDir() {
		if err := f.cpEntry(ctx, src, dst, info.Mode(), opts); err != nil {
			return fmt.Errorf("(fs-cp) %w", err)
		}

		return nil
	}

	if !opts.Recursive {
		return pathError("cp", src, unix.EISDIR)
	}

	if pathing.Within(src, dst) {
		return fmt.Errorf("(fs-cp) %w: %s -> %s", ErrCopyIntoSelf, src, dst)
	}

	var mu sync.Mutex
	dirs := map[string]string{}

	err = f.walkHandler.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to rel: %w", err)
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			dirInfo, err := d.Info()
			if err != nil {
				return fmt.Errorf("failed to get directory info: %w", err)
			}

			if err := f.osHandler.MkdirAll(target, dirInfo.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

			mu.Lock()
			dirs[path] = target
			mu.Unlock()

			return nil
		}

		return f.cpEntry(ctx, path, target, d.Type(), opts)
	})
	if err != nil {
		return fmt.Errorf("(fs-cp) %w", err)
	}

	if opts.PreserveTimestamps {
		// Directory times are only final once all children were written.
		for srcDir, dstDir := range dirs {
			if err := f.copyTimestamps(srcDir, dstDir); err != nil {
				return fmt.Errorf("(fs-cp) %w", err)
			}
		}
	}

	return nil
}

func (f *Handler) cpEntry(ctx context.Context, src string, dst string, mode fs.FileMode, opts CpOptions) error {
	if err := f.osHandler.MkdirAll(filepath.Dir(dst), 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	if _, err := f.osHandler.Lstat(dst); err == nil {
		switch {
		case opts.Force:
			if mode&fs.ModeSymlink != 0 {
				if err := f.osHandler.Remove(dst); err != nil {
					return fmt.Errorf("failed to replace destination: %w", err)
				}
			}
		case opts.ErrorOnExist:
			return pathError("cp", dst, fs.ErrExist)
		default:
			slog.Debug("Skipped copy: destination exists", "path", dst)

			return nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check destination existence: %w", err)
	}

	switch {
	case mode&fs.ModeSymlink != 0:
		linkTarget, err := f.osHandler.Readlink(src)
		if err != nil {
			return fmt.Errorf("failed to read symlink: %w", err)
		}
		if err := f.unixHandler.Symlink(linkTarget, dst); err != nil {
			return &os.LinkError{Op: "symlink", Old: linkTarget, New: dst, Err: err}
		}

		return nil

	case mode.IsRegular():
		// Without Force a destination that appears meanwhile is never replaced.
		if err := f.copyFile(ctx, src, dst, !opts.Force); err != nil {
			if !opts.Force && !opts.ErrorOnExist && errors.Is(err, fs.ErrExist) {
				slog.Debug("Skipped copy: destination exists", "path", dst)

				return nil
			}

			return err
		}

	default:
		slog.Debug("Skipped copy: unsupported file type",
			"path", src,
			"mode", mode.String(),
		)

		return nil
	}

	if opts.PreserveTimestamps {
		return f.copyTimestamps(src, dst)
	}

	return nil
}

func (f *Handler) copyTimestamps(src string, dst string) error {
	var st unix.Stat_t

	if err := f.unixHandler.Lstat(src, &st); err != nil {
		return pathError("lstat", src, err)
	}

	if err := f.unixHandler.UtimesNano(dst, []unix.Timespec{st.Atim, st.Mtim}); err != nil {
		return pathError("utimes", dst, err)
	}

	return nil
}
