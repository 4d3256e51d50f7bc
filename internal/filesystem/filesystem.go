// Package filesystem implements the filesystem operations that run once all
// of their path arguments were authorized. Every path that reaches this
// package is an already resolved host path.
package filesystem

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

type osProvider interface {
	CreateTemp(dir, pattern string) (*os.File, error)
	Link(oldname, newname string) error
	Lstat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	ReadDir(name string) ([]os.DirEntry, error)
	Readlink(name string) (string, error)
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
}

type unixProvider interface {
	Access(path string, mode uint32) error
	Lstat(path string, stat *unix.Stat_t) error
	Mkdir(path string, mode uint32) error
	Rmdir(path string) error
	Stat(path string, stat *unix.Stat_t) error
	Statx(dirfd int, path string, flags int, mask int, stat *unix.Statx_t) error
	Symlink(oldpath, newpath string) error
	Truncate(path string, length int64) error
	Unlink(path string) error
	UtimesNano(path string, times []unix.Timespec) error
}

type fsWalkProvider interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// Handler is the principal implementation of the filesystem operations.
type Handler struct {
	osHandler   osProvider
	unixHandler unixProvider
	walkHandler fsWalkProvider
}

// NewHandler returns a pointer to a new filesystem [Handler].
func NewHandler(osHandler osProvider, unixHandler unixProvider, walkHandler fsWalkProvider) *Handler {
	return &Handler{
		osHandler:   osHandler,
		unixHandler: unixHandler,
		walkHandler: walkHandler,
	}
}

func pathError(op string, path string, err error) error {
	if err == nil {
		return nil
	}

	return &fs.PathError{Op: op, Path: path, Err: err}
}

// Access checks the accessibility of a path with an access(2) mode mask.
func (f *Handler) Access(_ context.Context, path string, mode uint32) error {
	return pathError("access", path, f.unixHandler.Access(path, mode))
}

// ReadFile returns the full content of a file.
func (f *Handler) ReadFile(ctx context.Context, path string) ([]byte, error) {
	file, err := f.osHandler.Open(path)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	defer file.Close()

	return readAll(ctx, file)
}

// WriteFile replaces the content of a file, creating it with perm if it
// does not yet exist.
func (f *Handler) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	return f.writeFile(ctx, path, data, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
}

// AppendFile appends to a file, creating it with perm if it does not yet
// exist.
func (f *Handler) AppendFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	return f.writeFile(ctx, path, data, os.O_WRONLY|os.O_CREATE|os.O_APPEND, perm)
}

func (f *Handler) writeFile(ctx context.Context, path string, data []byte, flag int, perm os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	file, err := f.osHandler.OpenFile(path, flag, perm)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if _, err := file.Write(data); err != nil {
		file.Close()

		return err //nolint:wrapcheck
	}

	return file.Close() //nolint:wrapcheck
}

// Truncate changes the size of a file.
func (f *Handler) Truncate(_ context.Context, path string, size int64) error {
	return pathError("truncate", path, f.unixHandler.Truncate(path, size))
}

// Mkdir creates a single directory.
func (f *Handler) Mkdir(_ context.Context, path string, perm os.FileMode) error {
	return pathError("mkdir", path, f.unixHandler.Mkdir(path, uint32(perm.Perm())))
}

// Mkdirp creates a directory along with any missing parents (mkdir -p). An
// already existing directory is not an error.
func (f *Handler) Mkdirp(_ context.Context, path string, perm os.FileMode) error {
	return f.osHandler.MkdirAll(path, perm) //nolint:wrapcheck
}

// Readdir returns the names of a directory's entries, sorted by name.
func (f *Handler) Readdir(_ context.Context, path string) ([]string, error) {
	entries, err := f.osHandler.ReadDir(path)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names, nil
}

// Rename moves a path to a new location.
func (f *Handler) Rename(_ context.Context, oldpath string, newpath string) error {
	return f.osHandler.Rename(oldpath, newpath) //nolint:wrapcheck
}

// Symlink creates a symbolic link at link pointing to target.
func (f *Handler) Symlink(_ context.Context, target string, link string) error {
	if err := f.unixHandler.Symlink(target, link); err != nil {
		return &os.LinkError{Op: "symlink", Old: target, New: link, Err: err}
	}

	return nil
}

// Utimes sets the access and modification times of a path.
func (f *Handler) Utimes(_ context.Context, path string, atime time.Time, mtime time.Time) error {
	ts := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}

	return pathError("utimes", path, f.unixHandler.UtimesNano(path, ts))
}

// Unlink removes a file or symbolic link, never a directory.
func (f *Handler) Unlink(_ context.Context, path string) error {
	return pathError("unlink", path, f.unixHandler.Unlink(path))
}

// Rmdir removes an empty directory.
func (f *Handler) Rmdir(_ context.Context, path string) error {
	return pathError("rmdir", path, f.unixHandler.Rmdir(path))
}

// RmOptions controls the behavior of [Handler.Rm].
type RmOptions struct {
	// Recursive allows removing directories along with their contents.
	Recursive bool

	// Force ignores paths that do not exist.
	Force bool
}

// Rm removes a path. Directories are only removed with opts.Recursive.
func (f *Handler) Rm(ctx context.Context, path string, opts RmOptions) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	info, err := f.osHandler.Lstat(path)
	if err != nil {
		if opts.Force && os.IsNotExist(err) {
			return nil
		}

		return err //nolint:wrapcheck
	}

	if info.IsDir() {
		if !opts.Recursive {
			return pathError("rm", path, unix.EISDIR)
		}

		return f.osHandler.RemoveAll(path) //nolint:wrapcheck
	}

	if err := f.osHandler.Remove(path); err != nil {
		if opts.Force && os.IsNotExist(err) {
			return nil
		}

		return err //nolint:wrapcheck
	}

	return nil
}

// Rmrf removes a path and everything below it (rm -rf). A path that does
// not exist is not an error.
func (f *Handler) Rmrf(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	if err := f.osHandler.RemoveAll(path); err != nil {
		return err //nolint:wrapcheck
	}

	slog.Debug("Removed tree", "path", path)

	return nil
}
