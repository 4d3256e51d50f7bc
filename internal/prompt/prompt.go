// Package prompt implements an interactive [access.Decision] using [tea].
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/rpcfs/internal/access"
)

// Handler asks the operator on a terminal about every request. Only one
// question is on screen at a time, concurrent requests wait their turn.
type Handler struct {
	mu sync.Mutex

	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// Option configures a [Handler].
type Option func(*Handler)

// WithInput reads the operator's answers from in instead of [os.Stdin].
func WithInput(in io.Reader) Option {
	return func(h *Handler) {
		h.in = in
	}
}

// WithOutput renders the questions to out instead of [os.Stderr].
func WithOutput(out io.Writer) Option {
	return func(h *Handler) {
		h.out = out
	}
}

// WithLogger sets the logger used for reporting failed prompts.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler returns a pointer to a new interactive [Handler].
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		in:     os.Stdin,
		out:    os.Stderr,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Decide is an [access.Decision] asking the operator. A done context ends
// the question and is returned as an error.
func (h *Handler) Decide(ctx context.Context, req access.Request) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("(prompt) %w", err)
	}

	program := tea.NewProgram(
		NewTeaModel(req),
		tea.WithContext(ctx),
		tea.WithInput(h.in),
		tea.WithOutput(h.out),
		tea.WithoutSignalHandler(),
	)

	final, err := program.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", err, ctxErr)
		}
		h.logger.Debug("Prompt ended without answer",
			"op", req.Operation.String(),
			"path", req.Path,
			"err", err,
		)

		return false, fmt.Errorf("(prompt) %w", err)
	}

	model, ok := final.(TeaModel)
	if !ok {
		return false, fmt.Errorf("(prompt) %w: %T", ErrUnexpectedModel, final)
	}

	return model.Allowed(), nil
}
