package prompt

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/rpcfs/internal/access"
	"github.com/desertwitch/rpcfs/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() access.Request {
	return access.Request{
		Operation: policy.OpWriteFile,
		Right:     policy.RightWrite,
		Path:      "/docs/a.txt",
	}
}

func TestTeaModel_Update(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     tea.KeyMsg
		allowed bool
	}{
		{"Yes", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")}, true},
		{"Enter", tea.KeyMsg{Type: tea.KeyEnter}, true},
		{"No", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")}, false},
		{"Escape", tea.KeyMsg{Type: tea.KeyEsc}, false},
		{"CtrlC", tea.KeyMsg{Type: tea.KeyCtrlC}, false},
	}

	for _, tt := range tests {
		updated, cmd := NewTeaModel(testRequest()).Update(tt.msg)
		require.NotNil(t, cmd, tt.name)

		m, ok := updated.(TeaModel)
		require.True(t, ok, tt.name)
		assert.True(t, m.answered, tt.name)
		assert.Equal(t, tt.allowed, m.Allowed(), tt.name)
	}
}

func TestTeaModel_Update_IgnoresOtherInput(t *testing.T) {
	t.Parallel()

	m := NewTeaModel(testRequest())

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Nil(t, cmd)

	updated, cmd = updated.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Nil(t, cmd)

	final, ok := updated.(TeaModel)
	require.True(t, ok)
	assert.False(t, final.answered)
	assert.False(t, final.Allowed())
}

func TestTeaModel_View(t *testing.T) {
	t.Parallel()

	m := NewTeaModel(testRequest())

	view := m.View()
	assert.Contains(t, view, "writeFile")
	assert.Contains(t, view, "(W)")
	assert.Contains(t, view, "/docs/a.txt")
	assert.Contains(t, view, "y/enter: allow")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	assert.Contains(t, updated.View(), "allowed")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Contains(t, updated.View(), "denied")
}

// TestHandler_Decide is an integration test for the interactive prompt.
func TestHandler_Decide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		allowed bool
	}{
		{"Allow", "y", true},
		{"Deny", "n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer

		h := NewHandler(WithInput(strings.NewReader(tt.input)), WithOutput(&out))

		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
		allowed, err := h.Decide(ctx, testRequest())
		cancel()

		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.allowed, allowed, tt.name)
		assert.Contains(t, out.String(), "writeFile", tt.name)
	}
}

func TestHandler_Decide_Fail_ContextDone(t *testing.T) {
	t.Parallel()

	in, inWriter := io.Pipe()
	defer inWriter.Close()

	var out bytes.Buffer
	h := NewHandler(WithInput(in), WithOutput(&out))

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	allowed, err := h.Decide(ctx, testRequest())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, allowed)
}

func TestHandler_Decide_Fail_AlreadyCanceled(t *testing.T) {
	t.Parallel()

	h := NewHandler(WithInput(strings.NewReader("y")), WithOutput(io.Discard))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	allowed, err := h.Decide(ctx, testRequest())
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, allowed)
}

func TestHandler_MethodSet(t *testing.T) {
	t.Parallel()

	typ := reflect.TypeOf(&Handler{})

	methods := make([]string, 0, typ.NumMethod())
	for i := range typ.NumMethod() {
		methods = append(methods, typ.Method(i).Name)
	}

	assert.Equal(t, []string{"Decide"}, methods, "the serialization lock should not be reachable")
}
