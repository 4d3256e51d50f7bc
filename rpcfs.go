// Package rpcfs provides a restricted, policy-gated view of a filesystem.
//
// A [Sandbox] confines every requested path to a root directory and asks a
// [Decision] about every path argument of every operation before the
// operation is allowed to touch the filesystem. Requested paths are always
// interpreted relative to the root, so "/etc/passwd" and "../../etc/passwd"
// both name "<root>/etc/passwd". Denied paths and paths that would escape
// the root fail alike with a [*PermissionError].
package rpcfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/desertwitch/rpcfs/internal/access"
	"github.com/desertwitch/rpcfs/internal/filesystem"
	"github.com/desertwitch/rpcfs/internal/intercept"
	"github.com/desertwitch/rpcfs/internal/pathing"
	"github.com/desertwitch/rpcfs/internal/policy"
	"github.com/desertwitch/rpcfs/internal/schema"
)

type (
	// Decision decides if a single path argument of an operation may be
	// used. Only (true, nil) grants access.
	Decision = access.Decision

	// Request is what a [Decision] is asked about.
	Request = access.Request

	// PermissionError is returned for denied paths.
	PermissionError = access.PermissionError

	// Operation names one of the gated filesystem operations.
	Operation = policy.Operation

	// Right is the access right requested for a path argument.
	Right = policy.Right

	// Stats is the normalized metadata returned by [Sandbox.Stat].
	Stats = filesystem.Stats

	// CopyOptions controls [Sandbox.CopyFile].
	CopyOptions = filesystem.CopyOptions

	// CpOptions controls [Sandbox.Cp].
	CpOptions = filesystem.CpOptions

	// RmOptions controls [Sandbox.Rm].
	RmOptions = filesystem.RmOptions
)

// Access rights.
const (
	RightNone      = policy.RightNone
	RightRead      = policy.RightRead
	RightWrite     = policy.RightWrite
	RightReadWrite = policy.RightReadWrite
)

//nolint:gochecknoglobals
var (
	// AllowAll is a [Decision] granting every request. It has to be passed
	// explicitly, a [Sandbox] never falls back to it.
	AllowAll Decision = access.AllowAll

	// DenyAll is a [Decision] refusing every request.
	DenyAll Decision = access.DenyAll
)

var (
	// ErrInvalidRoot is returned by [New] for an unusable root directory.
	ErrInvalidRoot = errors.New("invalid sandbox root")

	// ErrNilDecision is returned by [New] when no [Decision] was given.
	ErrNilDecision = errors.New("decision is nil")
)

type filesystemProvider interface {
	Access(ctx context.Context, path string, mode uint32) error
	AppendFile(ctx context.Context, path string, data []byte, perm os.FileMode) error
	CopyFile(ctx context.Context, src string, dst string, opts filesystem.CopyOptions) error
	Cp(ctx context.Context, src string, dst string, opts filesystem.CpOptions) error
	Mkdir(ctx context.Context, path string, perm os.FileMode) error
	Mkdirp(ctx context.Context, path string, perm os.FileMode) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Readdir(ctx context.Context, path string) ([]string, error)
	ReaddirStats(ctx context.Context, path string) (map[string]*filesystem.Stats, error)
	Rename(ctx context.Context, oldpath string, newpath string) error
	Rm(ctx context.Context, path string, opts filesystem.RmOptions) error
	Rmdir(ctx context.Context, path string) error
	Rmrf(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (*filesystem.Stats, error)
	Symlink(ctx context.Context, target string, link string) error
	Truncate(ctx context.Context, path string, size int64) error
	Unlink(ctx context.Context, path string) error
	Utimes(ctx context.Context, path string, atime time.Time, mtime time.Time) error
	WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error
}

type options struct {
	resolveSymlinks bool
	fsHandler       filesystemProvider
	logger          *slog.Logger
}

// Option configures a [Sandbox].
type Option func(*options)

// WithSymlinkResolution makes the sandbox follow symbolic links while
// confining paths, rejecting paths whose real location is outside of the
// root. Without it, confinement is purely lexical. Links changed between
// the check and the operation are not caught.
func WithSymlinkResolution() Option {
	return func(o *options) {
		o.resolveSymlinks = true
	}
}

// WithFilesystem replaces the implementation that carries out authorized
// operations.
func WithFilesystem(fsHandler filesystemProvider) Option {
	return func(o *options) {
		o.fsHandler = fsHandler
	}
}

// WithLogger sets the logger for denials, the default is [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

type (
	none    = struct{}
	cpArgs  = filesystem.CpOptions
	cpyArgs = filesystem.CopyOptions
	rmArgs  = filesystem.RmOptions
)

type dataArgs struct {
	data []byte
	perm os.FileMode
}

type timeArgs struct {
	atime time.Time
	mtime time.Time
}

// Sandbox is the principal gated filesystem. It is immutable after [New]
// and safe for concurrent use.
type Sandbox struct {
	root        string
	interceptor *intercept.Interceptor

	access       intercept.Func1[uint32, none]
	appendFile   intercept.Func1[dataArgs, none]
	copyFile     intercept.Func2[cpyArgs, none]
	cp           intercept.Func2[cpArgs, none]
	mkdir        intercept.Func1[os.FileMode, none]
	mkdirp       intercept.Func1[os.FileMode, none]
	readFile     intercept.Func1[none, []byte]
	readdir      intercept.Func1[none, []string]
	readdirStats intercept.Func1[none, map[string]*Stats]
	rename       intercept.Func2[none, none]
	rm           intercept.Func1[rmArgs, none]
	rmdir        intercept.Func1[none, none]
	rmrf         intercept.Func1[none, none]
	stat         intercept.Func1[none, *Stats]
	symlink      intercept.Func2[none, none]
	truncate     intercept.Func1[int64, none]
	unlink       intercept.Func1[none, none]
	utimes       intercept.Func1[timeArgs, none]
	writeFile    intercept.Func1[dataArgs, none]
}

// New returns a pointer to a new [Sandbox] rooted at root, consulting
// decision for every path argument. Both are validated immediately.
func New(root string, decision Decision, opts ...Option) (*Sandbox, error) {
	if decision == nil {
		return nil, fmt.Errorf("(rpcfs) %w", ErrNilDecision)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	osProvider := &schema.OS{}

	if o.fsHandler == nil {
		o.fsHandler = filesystem.NewHandler(osProvider, &schema.Unix{}, &schema.FastWalk{})
	}

	var resolverOpts []pathing.Option
	if o.resolveSymlinks {
		resolverOpts = append(resolverOpts, pathing.WithSymlinkResolution(osProvider))
	}

	resolver, err := pathing.NewResolver(root, resolverOpts...)
	if err != nil {
		return nil, fmt.Errorf("(rpcfs) %w: %w", ErrInvalidRoot, err)
	}

	gate, err := access.NewGate(resolver, decision, o.logger)
	if err != nil {
		return nil, fmt.Errorf("(rpcfs) %w", err)
	}

	s := &Sandbox{
		root:        resolver.Root(),
		interceptor: intercept.New(gate),
	}
	s.bind(o.fsHandler)

	return s, nil
}

// Root returns the absolute sandbox root.
func (s *Sandbox) Root() string {
	return s.root
}

// Authorize runs only the authorization step of an operation and returns
// the resolved host paths, for callers carrying out the operation on their
// own.
func (s *Sandbox) Authorize(ctx context.Context, op Operation, paths ...string) ([]string, error) {
	return s.interceptor.Authorize(ctx, op, paths...) //nolint:wrapcheck
}
