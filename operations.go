package rpcfs

import (
	"context"
	"os"
	"time"

	"github.com/desertwitch/rpcfs/internal/intercept"
	"github.com/desertwitch/rpcfs/internal/policy"
)

// bind gates every operation of fsHandler exactly once.
//
//nolint:funlen
func (s *Sandbox) bind(fsHandler filesystemProvider) {
	ic := s.interceptor

	s.access = intercept.Gate1(ic, policy.OpAccess, func(ctx context.Context, p string, mode uint32) (none, error) {
		return none{}, fsHandler.Access(ctx, p, mode)
	})
	s.appendFile = intercept.Gate1(ic, policy.OpAppendFile, func(ctx context.Context, p string, a dataArgs) (none, error) {
		return none{}, fsHandler.AppendFile(ctx, p, a.data, a.perm)
	})
	s.copyFile = intercept.Gate2(ic, policy.OpCopyFile, func(ctx context.Context, src, dst string, o cpyArgs) (none, error) {
		return none{}, fsHandler.CopyFile(ctx, src, dst, o)
	})
	s.cp = intercept.Gate2(ic, policy.OpCp, func(ctx context.Context, src, dst string, o cpArgs) (none, error) {
		return none{}, fsHandler.Cp(ctx, src, dst, o)
	})
	s.mkdir = intercept.Gate1(ic, policy.OpMkdir, func(ctx context.Context, p string, perm os.FileMode) (none, error) {
		return none{}, fsHandler.Mkdir(ctx, p, perm)
	})
	s.mkdirp = intercept.Gate1(ic, policy.OpMkdirp, func(ctx context.Context, p string, perm os.FileMode) (none, error) {
		return none{}, fsHandler.Mkdirp(ctx, p, perm)
	})
	s.readFile = intercept.Gate1(ic, policy.OpReadFile, func(ctx context.Context, p string, _ none) ([]byte, error) {
		return fsHandler.ReadFile(ctx, p)
	})
	s.readdir = intercept.Gate1(ic, policy.OpReaddir, func(ctx context.Context, p string, _ none) ([]string, error) {
		return fsHandler.Readdir(ctx, p)
	})
	s.readdirStats = intercept.Gate1(ic, policy.OpReaddirStats, func(ctx context.Context, p string, _ none) (map[string]*Stats, error) {
		return fsHandler.ReaddirStats(ctx, p)
	})
	s.rename = intercept.Gate2(ic, policy.OpRename, func(ctx context.Context, oldpath, newpath string, _ none) (none, error) {
		return none{}, fsHandler.Rename(ctx, oldpath, newpath)
	})
	s.rm = intercept.Gate1(ic, policy.OpRm, func(ctx context.Context, p string, o rmArgs) (none, error) {
		return none{}, fsHandler.Rm(ctx, p, o)
	})
	s.rmdir = intercept.Gate1(ic, policy.OpRmdir, func(ctx context.Context, p string, _ none) (none, error) {
		return none{}, fsHandler.Rmdir(ctx, p)
	})
	s.rmrf = intercept.Gate1(ic, policy.OpRmrf, func(ctx context.Context, p string, _ none) (none, error) {
		return none{}, fsHandler.Rmrf(ctx, p)
	})
	s.stat = intercept.Gate1(ic, policy.OpStat, func(ctx context.Context, p string, _ none) (*Stats, error) {
		return fsHandler.Stat(ctx, p)
	})
	s.symlink = intercept.Gate2(ic, policy.OpSymlink, func(ctx context.Context, target, link string, _ none) (none, error) {
		return none{}, fsHandler.Symlink(ctx, target, link)
	})
	s.truncate = intercept.Gate1(ic, policy.OpTruncate, func(ctx context.Context, p string, size int64) (none, error) {
		return none{}, fsHandler.Truncate(ctx, p, size)
	})
	s.unlink = intercept.Gate1(ic, policy.OpUnlink, func(ctx context.Context, p string, _ none) (none, error) {
		return none{}, fsHandler.Unlink(ctx, p)
	})
	s.utimes = intercept.Gate1(ic, policy.OpUtimes, func(ctx context.Context, p string, a timeArgs) (none, error) {
		return none{}, fsHandler.Utimes(ctx, p, a.atime, a.mtime)
	})
	s.writeFile = intercept.Gate1(ic, policy.OpWriteFile, func(ctx context.Context, p string, a dataArgs) (none, error) {
		return none{}, fsHandler.WriteFile(ctx, p, a.data, a.perm)
	})
}

// Access checks if path is accessible with the access(2) mode mask, where
// zero is an existence check. Authorization only ever asks for existence.
func (s *Sandbox) Access(ctx context.Context, path string, mode uint32) error {
	_, err := s.access(ctx, path, mode)

	return err
}

// AppendFile appends data to a file, creating it with perm if needed.
func (s *Sandbox) AppendFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	_, err := s.appendFile(ctx, path, dataArgs{data: data, perm: perm})

	return err
}

// CopyFile copies the regular file src to dst.
func (s *Sandbox) CopyFile(ctx context.Context, src string, dst string, opts CopyOptions) error {
	_, err := s.copyFile(ctx, src, dst, opts)

	return err
}

// Cp copies a file, a symbolic link or a directory tree.
func (s *Sandbox) Cp(ctx context.Context, src string, dst string, opts CpOptions) error {
	_, err := s.cp(ctx, src, dst, opts)

	return err
}

// Mkdir creates a single directory.
func (s *Sandbox) Mkdir(ctx context.Context, path string, perm os.FileMode) error {
	_, err := s.mkdir(ctx, path, perm)

	return err
}

// Mkdirp creates a directory and any missing parents.
func (s *Sandbox) Mkdirp(ctx context.Context, path string, perm os.FileMode) error {
	_, err := s.mkdirp(ctx, path, perm)

	return err
}

// ReadFile returns the content of a file.
func (s *Sandbox) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return s.readFile(ctx, path, none{})
}

// Readdir returns the sorted entry names of a directory.
func (s *Sandbox) Readdir(ctx context.Context, path string) ([]string, error) {
	return s.readdir(ctx, path, none{})
}

// ReaddirStats returns the [Stats] of every entry of a directory, keyed by
// entry name. Only the directory itself is authorized.
func (s *Sandbox) ReaddirStats(ctx context.Context, path string) (map[string]*Stats, error) {
	return s.readdirStats(ctx, path, none{})
}

// Rename moves oldpath to newpath. Both paths are authorized for writing,
// oldpath first.
func (s *Sandbox) Rename(ctx context.Context, oldpath string, newpath string) error {
	_, err := s.rename(ctx, oldpath, newpath, none{})

	return err
}

// Rm removes a path, directories only with opts.Recursive.
func (s *Sandbox) Rm(ctx context.Context, path string, opts RmOptions) error {
	_, err := s.rm(ctx, path, opts)

	return err
}

// Rmdir removes an empty directory.
func (s *Sandbox) Rmdir(ctx context.Context, path string) error {
	_, err := s.rmdir(ctx, path, none{})

	return err
}

// Rmrf removes a path and everything below it.
func (s *Sandbox) Rmrf(ctx context.Context, path string) error {
	_, err := s.rmrf(ctx, path, none{})

	return err
}

// Stat returns the [Stats] of a path.
func (s *Sandbox) Stat(ctx context.Context, path string) (*Stats, error) {
	return s.stat(ctx, path, none{})
}

// Symlink creates link pointing to target. The target is authorized for
// reading and the link is created with the resolved target path.
func (s *Sandbox) Symlink(ctx context.Context, target string, link string) error {
	_, err := s.symlink(ctx, target, link, none{})

	return err
}

// Truncate changes the size of a file.
func (s *Sandbox) Truncate(ctx context.Context, path string, size int64) error {
	_, err := s.truncate(ctx, path, size)

	return err
}

// Unlink removes a file.
func (s *Sandbox) Unlink(ctx context.Context, path string) error {
	_, err := s.unlink(ctx, path, none{})

	return err
}

// Utimes sets the access and modification times of a path.
func (s *Sandbox) Utimes(ctx context.Context, path string, atime time.Time, mtime time.Time) error {
	_, err := s.utimes(ctx, path, timeArgs{atime: atime, mtime: mtime})

	return err
}

// WriteFile replaces the content of a file, creating it with perm if
// needed.
func (s *Sandbox) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	_, err := s.writeFile(ctx, path, dataArgs{data: data, perm: perm})

	return err
}
