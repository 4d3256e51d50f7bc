package rpcfs_test

import (
	"context"
	"os"
	"time"

	"github.com/desertwitch/rpcfs"
	"github.com/stretchr/testify/mock"
)

// mockFs records every call that makes it past authorization.
type mockFs struct {
	mock.Mock
}

func (m *mockFs) Access(_ context.Context, path string, mode uint32) error {
	return m.Called(path, mode).Error(0)
}

func (m *mockFs) AppendFile(_ context.Context, path string, data []byte, perm os.FileMode) error {
	return m.Called(path, data, perm).Error(0)
}

func (m *mockFs) CopyFile(_ context.Context, src string, dst string, opts rpcfs.CopyOptions) error {
	return m.Called(src, dst, opts).Error(0)
}

func (m *mockFs) Cp(_ context.Context, src string, dst string, opts rpcfs.CpOptions) error {
	return m.Called(src, dst, opts).Error(0)
}

func (m *mockFs) Mkdir(_ context.Context, path string, perm os.FileMode) error {
	return m.Called(path, perm).Error(0)
}

func (m *mockFs) Mkdirp(_ context.Context, path string, perm os.FileMode) error {
	return m.Called(path, perm).Error(0)
}

func (m *mockFs) ReadFile(_ context.Context, path string) ([]byte, error) {
	args := m.Called(path)
	data, _ := args.Get(0).([]byte)

	return data, args.Error(1)
}

func (m *mockFs) Readdir(_ context.Context, path string) ([]string, error) {
	args := m.Called(path)
	names, _ := args.Get(0).([]string)

	return names, args.Error(1)
}

func (m *mockFs) ReaddirStats(_ context.Context, path string) (map[string]*rpcfs.Stats, error) {
	args := m.Called(path)
	stats, _ := args.Get(0).(map[string]*rpcfs.Stats)

	return stats, args.Error(1)
}

func (m *mockFs) Rename(_ context.Context, oldpath string, newpath string) error {
	return m.Called(oldpath, newpath).Error(0)
}

func (m *mockFs) Rm(_ context.Context, path string, opts rpcfs.RmOptions) error {
	return m.Called(path, opts).Error(0)
}

func (m *mockFs) Rmdir(_ context.Context, path string) error {
	return m.Called(path).Error(0)
}

func (m *mockFs) Rmrf(_ context.Context, path string) error {
	return m.Called(path).Error(0)
}

func (m *mockFs) Stat(_ context.Context, path string) (*rpcfs.Stats, error) {
	args := m.Called(path)
	stats, _ := args.Get(0).(*rpcfs.Stats)

	return stats, args.Error(1)
}

func (m *mockFs) Symlink(_ context.Context, target string, link string) error {
	return m.Called(target, link).Error(0)
}

func (m *mockFs) Truncate(_ context.Context, path string, size int64) error {
	return m.Called(path, size).Error(0)
}

func (m *mockFs) Unlink(_ context.Context, path string) error {
	return m.Called(path).Error(0)
}

func (m *mockFs) Utimes(_ context.Context, path string, atime time.Time, mtime time.Time) error {
	return m.Called(path, atime, mtime).Error(0)
}

func (m *mockFs) WriteFile(_ context.Context, path string, data []byte, perm os.FileMode) error {
	return m.Called(path, data, perm).Error(0)
}
