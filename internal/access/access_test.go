package access

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/desertwitch/rpcfs/internal/pathing"
	"github.com/desertwitch/rpcfs/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type mockDecision struct {
	mock.Mock
}

func (m *mockDecision) Decide(ctx context.Context, req Request) (bool, error) {
	args := m.Called(ctx, req)

	return args.Bool(0), args.Error(1)
}

func newTestGate(t *testing.T, decision Decision) *Gate {
	t.Helper()

	resolver, err := pathing.NewResolver("/srv/data")
	require.NoError(t, err)

	gate, err := NewGate(resolver, decision, nil)
	require.NoError(t, err)

	return gate
}

func TestNewGate_Fail_NilDecision(t *testing.T) {
	t.Parallel()

	resolver, err := pathing.NewResolver("/srv/data")
	require.NoError(t, err)

	_, err = NewGate(resolver, nil, nil)
	require.ErrorIs(t, err, ErrNilDecision)
}

func TestNewGate_Fail_NilResolver(t *testing.T) {
	t.Parallel()

	_, err := NewGate(nil, AllowAll, nil)
	require.ErrorIs(t, err, ErrNilResolver)
}

func TestAuthorize_Success_Allowed(t *testing.T) {
	t.Parallel()

	dec := new(mockDecision)
	dec.On("Decide", mock.Anything, Request{
		Operation: policy.OpReadFile,
		Right:     policy.RightRead,
		Path:      "/a.txt",
	}).Return(true, nil).Once()

	gate := newTestGate(t, dec.Decide)

	resolved, err := gate.Authorize(t.Context(), policy.OpReadFile, policy.RightRead, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "/srv/data/a.txt", resolved)

	dec.AssertExpectations(t)
}

func TestAuthorize_Success_DecisionSeesRootedPath(t *testing.T) {
	t.Parallel()

	dec := new(mockDecision)
	dec.On("Decide", mock.Anything, Request{
		Operation: policy.OpStat,
		Right:     policy.RightNone,
		Path:      "/etc/passwd",
	}).Return(true, nil).Once()

	gate := newTestGate(t, dec.Decide)

	resolved, err := gate.Authorize(t.Context(), policy.OpStat, policy.RightNone, "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "/srv/data/etc/passwd", resolved)

	dec.AssertExpectations(t)
}

func TestAuthorize_Fail_Refused(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t, DenyAll)

	_, err := gate.Authorize(t.Context(), policy.OpWriteFile, policy.RightWrite, "x/y")
	require.Error(t, err)

	var permErr *PermissionError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, policy.OpWriteFile, permErr.Op)
	assert.Equal(t, "/x/y", permErr.Path)
	assert.Equal(t, "EACCES: permission denied, writeFile '/x/y'", err.Error())
	assert.Equal(t, "EACCES", permErr.Code())
	assert.Equal(t, -13, permErr.Errno())

	require.ErrorIs(t, err, fs.ErrPermission)
	require.ErrorIs(t, err, unix.EACCES)
	assert.NotContains(t, err.Error(), "/srv/data", "host path should never leak")
}

func TestAuthorize_Fail_DecisionError(t *testing.T) {
	t.Parallel()

	dec := new(mockDecision)
	dec.On("Decide", mock.Anything, mock.Anything).Return(true, errors.New("policy backend down")).Once()

	gate := newTestGate(t, dec.Decide)

	_, err := gate.Authorize(t.Context(), policy.OpReadFile, policy.RightRead, "a")

	var permErr *PermissionError
	require.ErrorAs(t, err, &permErr, "decision failures should be denials")
	assert.NotContains(t, err.Error(), "policy backend down")

	dec.AssertExpectations(t)
}

type escapingResolver struct{}

func (escapingResolver) Resolve(string) (string, error) {
	return "", pathing.ErrSandboxEscape
}

func TestAuthorize_Fail_EscapeIsDenial(t *testing.T) {
	t.Parallel()

	dec := new(mockDecision)

	gate, err := NewGate(escapingResolver{}, dec.Decide, nil)
	require.NoError(t, err)

	_, err = gate.Authorize(t.Context(), policy.OpStat, policy.RightNone, "../x")

	var permErr *PermissionError
	require.ErrorAs(t, err, &permErr)
	require.NotErrorIs(t, err, pathing.ErrSandboxEscape, "escapes should be indistinguishable from denials")
	assert.Equal(t, "/x", permErr.Path)

	dec.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestAuthorize_Fail_ContextCanceledBefore(t *testing.T) {
	t.Parallel()

	dec := new(mockDecision)
	gate := newTestGate(t, dec.Decide)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := gate.Authorize(ctx, policy.OpStat, policy.RightNone, "a")
	require.ErrorIs(t, err, context.Canceled)

	var permErr *PermissionError
	require.NotErrorAs(t, err, &permErr)

	dec.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestAuthorize_Fail_ContextCanceledDuring(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())

	gate := newTestGate(t, func(ctx context.Context, _ Request) (bool, error) {
		cancel()
		<-ctx.Done()

		return false, ctx.Err()
	})

	_, err := gate.Authorize(ctx, policy.OpStat, policy.RightNone, "a")
	require.ErrorIs(t, err, context.Canceled)
}

func TestAllowAllDenyAll(t *testing.T) {
	t.Parallel()

	ok, err := AllowAll(t.Context(), Request{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = DenyAll(t.Context(), Request{})
	require.NoError(t, err)
	assert.False(t, ok)
}
