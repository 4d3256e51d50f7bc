package decision

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/desertwitch/rpcfs/internal/access"
	"github.com/desertwitch/rpcfs/internal/policy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var errTest = errors.New("test error")

func fixed(allowed bool, err error) access.Decision {
	return func(context.Context, access.Request) (bool, error) {
		return allowed, err
	}
}

func counting(n *int, allowed bool) access.Decision {
	return func(context.Context, access.Request) (bool, error) {
		*n++

		return allowed, nil
	}
}

func TestAll_Success(t *testing.T) {
	t.Parallel()

	req := access.Request{Operation: policy.OpStat, Path: "/"}

	allowed, err := All(fixed(true, nil), fixed(true, nil))(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = All()(t.Context(), req)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAll_Success_StopsAtRefusal(t *testing.T) {
	t.Parallel()

	var n int

	allowed, err := All(fixed(false, nil), counting(&n, true))(t.Context(), access.Request{})
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, n)
}

func TestAll_Fail_Error(t *testing.T) {
	t.Parallel()

	var n int

	allowed, err := All(counting(&n, true), fixed(true, errTest), counting(&n, true))(t.Context(), access.Request{})
	require.ErrorIs(t, err, errTest)
	assert.False(t, allowed)
	assert.Equal(t, 1, n)
}

func TestAudit_Success(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	d := Audit(fixed(false, nil), logger)

	allowed, err := d(t.Context(), access.Request{Operation: policy.OpRename, Right: policy.RightWrite, Path: "/a"})
	require.NoError(t, err)
	assert.False(t, allowed)

	out := buf.String()
	assert.Contains(t, out, `msg="Access decision"`)
	assert.Contains(t, out, "op=rename")
	assert.Contains(t, out, "right=W")
	assert.Contains(t, out, "path=/a")
	assert.Contains(t, out, "outcome=deny")
	assert.Contains(t, out, "id=")
}

func TestAudit_Fail_PassesError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := Audit(fixed(true, errTest), logger)(t.Context(), access.Request{})
	require.ErrorIs(t, err, errTest)

	assert.Contains(t, buf.String(), "outcome=error")
}

func TestMetrics_Success(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	req := access.Request{Operation: policy.OpReadFile, Right: policy.RightRead, Path: "/a"}

	_, _ = m.Wrap(fixed(true, nil))(t.Context(), req)
	_, _ = m.Wrap(fixed(true, nil))(t.Context(), req)
	_, _ = m.Wrap(fixed(false, nil))(t.Context(), req)
	_, _ = m.Wrap(fixed(false, errTest))(t.Context(), req)

	assert.InDelta(t, 2, testutil.ToFloat64(m.decisions.WithLabelValues("readFile", "R", outcomeAllow)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.decisions.WithLabelValues("readFile", "R", outcomeDeny)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.decisions.WithLabelValues("readFile", "R", outcomeError)), 0)

	count, err := testutil.GatherAndCount(reg, "rpcfs_decision_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestThrottle_Success(t *testing.T) {
	t.Parallel()

	var n int
	d := Throttle(counting(&n, true), rate.NewLimiter(rate.Inf, 1))

	for range 5 {
		allowed, err := d(t.Context(), access.Request{})
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	assert.Equal(t, 5, n)
}

func TestThrottle_Fail_ContextCanceled(t *testing.T) {
	t.Parallel()

	var n int
	limiter := rate.NewLimiter(rate.Every(1<<40), 1)
	d := Throttle(counting(&n, true), limiter)

	_, err := d(t.Context(), access.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	allowed, err := d(ctx, access.Request{})
	require.Error(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 1, n)
}
