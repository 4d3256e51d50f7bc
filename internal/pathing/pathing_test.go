package pathing

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOsProvider struct {
	mock.Mock
}

func (m *mockOsProvider) Lstat(name string) (os.FileInfo, error) {
	args := m.Called(name)
	if fi, ok := args.Get(0).(os.FileInfo); ok {
		return fi, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockOsProvider) EvalSymlinks(path string) (string, error) {
	args := m.Called(path)

	return args.String(0), args.Error(1)
}

type realOS struct{}

func (realOS) Lstat(name string) (os.FileInfo, error)   { return os.Lstat(name) }
func (realOS) EvalSymlinks(path string) (string, error) { return filepath.EvalSymlinks(path) }

func TestNewResolver_Fail_EmptyRoot(t *testing.T) {
	t.Parallel()

	_, err := NewResolver("")
	require.ErrorIs(t, err, ErrInvalidRoot)

	_, err = NewResolver("   ")
	require.ErrorIs(t, err, ErrInvalidRoot)
}

func TestNewResolver_Success_CleansRoot(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("/srv/data/../data/./")
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", r.Root())
}

func TestNewResolver_Success_RelativeRoot(t *testing.T) {
	t.Parallel()

	wd, err := os.Getwd()
	require.NoError(t, err)

	r, err := NewResolver("sandbox")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "sandbox"), r.Root())
}

func TestResolve_Success_Lexical(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("/srv/data")
	require.NoError(t, err)

	tests := []struct {
		name      string
		requested string
		expected  string
	}{
		{"Empty", "", "/srv/data"},
		{"Slash", "/", "/srv/data"},
		{"Dot", ".", "/srv/data"},
		{"Relative", "a/b.txt", "/srv/data/a/b.txt"},
		{"Absolute", "/a/b.txt", "/srv/data/a/b.txt"},
		{"TrailingSlash", "a/", "/srv/data/a"},
		{"DoubleSlash", "a//b", "/srv/data/a/b"},
		{"Traversal", "../../etc/passwd", "/srv/data/etc/passwd"},
		{"AbsoluteTraversal", "/../etc/passwd", "/srv/data/etc/passwd"},
		{"InnerTraversal", "a/../../../b", "/srv/data/b"},
		{"ParentOnly", "..", "/srv/data"},
		{"DotDotPrefixName", "..foo", "/srv/data/..foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resolved, err := r.Resolve(tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resolved)
			assert.True(t, Within(r.Root(), resolved), "resolved path should stay within root")
		})
	}
}

func TestResolve_Success_Deterministic(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("/srv/data")
	require.NoError(t, err)

	first, err := r.Resolve("x/../y")
	require.NoError(t, err)

	for range 10 {
		again, err := r.Resolve("x/../y")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolve_Success_RootIsSlash(t *testing.T) {
	t.Parallel()

	r, err := NewResolver("/")
	require.NoError(t, err)

	resolved, err := r.Resolve("../etc/hosts")
	require.NoError(t, err)
	assert.Equal(t, "/etc/hosts", resolved)
}

func TestRooted(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/", Rooted(""))
	assert.Equal(t, "/a/b", Rooted("a/./b"))
	assert.Equal(t, "/etc", Rooted("../../etc"))
}

func TestWithin(t *testing.T) {
	t.Parallel()

	assert.True(t, Within("/srv/data", "/srv/data"))
	assert.True(t, Within("/srv/data", "/srv/data/x"))
	assert.False(t, Within("/srv/data", "/srv/data2"))
	assert.False(t, Within("/srv/data", "/srv"))
	assert.False(t, Within("/srv/data", "/etc/passwd"))
	assert.True(t, Within("/", "/anything"))
}

func TestResolve_Success_SymlinkInside(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "real"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	r, err := NewResolver(root, WithSymlinkResolution(realOS{}))
	require.NoError(t, err)

	resolved, err := r.Resolve("link/new-file.txt")
	require.NoError(t, err, "links staying inside of the root should be allowed")
	assert.Equal(t, filepath.Join(root, "link", "new-file.txt"), resolved)
}

func TestResolve_Fail_SymlinkOutside(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	r, err := NewResolver(root, WithSymlinkResolution(realOS{}))
	require.NoError(t, err)

	_, err = r.Resolve("escape/secret.txt")
	require.ErrorIs(t, err, ErrSandboxEscape)

	_, err = r.Resolve("escape")
	require.ErrorIs(t, err, ErrSandboxEscape)
}

func TestResolve_Success_SymlinkOutsideLexical(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))

	r, err := NewResolver(root)
	require.NoError(t, err)

	resolved, err := r.Resolve("escape/secret.txt")
	require.NoError(t, err, "lexical mode should not touch the filesystem")
	assert.Equal(t, filepath.Join(root, "escape", "secret.txt"), resolved)
}

func TestResolve_Fail_LstatError(t *testing.T) {
	t.Parallel()

	osProv := new(mockOsProvider)
	osProv.On("EvalSymlinks", "/srv/data").Return("/srv/data", nil).Once()
	osProv.On("Lstat", "/srv/data/file").Return(nil, fs.ErrPermission).Once()

	r, err := NewResolver("/srv/data", WithSymlinkResolution(osProv))
	require.NoError(t, err)

	_, err = r.Resolve("file")
	require.ErrorIs(t, err, ErrSandboxEscape)
	require.ErrorIs(t, err, fs.ErrPermission)

	osProv.AssertExpectations(t)
}

func TestResolve_Success_MockedWalkUp(t *testing.T) {
	t.Parallel()

	osProv := new(mockOsProvider)
	osProv.On("EvalSymlinks", "/srv/data").Return("/real/data", nil).Once()
	osProv.On("Lstat", "/srv/data/a/b/c").Return(nil, fs.ErrNotExist).Once()
	osProv.On("Lstat", "/srv/data/a/b").Return(nil, fs.ErrNotExist).Once()
	osProv.On("Lstat", "/srv/data/a").Return(nil, nil).Once()
	osProv.On("EvalSymlinks", "/srv/data/a").Return("/real/data/a", nil).Once()

	r, err := NewResolver("/srv/data", WithSymlinkResolution(osProv))
	require.NoError(t, err)

	resolved, err := r.Resolve("a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "/srv/data/a/b/c", resolved)

	osProv.AssertExpectations(t)
}

func TestResolve_Fail_EvalError(t *testing.T) {
	t.Parallel()

	evalErr := errors.New("too many links")

	osProv := new(mockOsProvider)
	osProv.On("EvalSymlinks", "/srv/data").Return("/srv/data", nil).Once()
	osProv.On("Lstat", "/srv/data/loop").Return(nil, nil).Once()
	osProv.On("EvalSymlinks", "/srv/data/loop").Return("", evalErr).Once()

	r, err := NewResolver("/srv/data", WithSymlinkResolution(osProv))
	require.NoError(t, err)

	_, err = r.Resolve("loop")
	require.ErrorIs(t, err, ErrSandboxEscape)
	require.ErrorIs(t, err, evalErr)

	osProv.AssertExpectations(t)
}
