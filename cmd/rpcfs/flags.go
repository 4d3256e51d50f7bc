package main

import (
	"fmt"
	"io"

	"github.com/desertwitch/rpcfs/internal/configuration"
	"github.com/desertwitch/rpcfs/internal/policy"
	"github.com/spf13/pflag"
)

type cliFlags struct {
	set *pflag.FlagSet

	root            string
	envFiles        []string
	policyFile      string
	policyURL       string
	interactive     bool
	recursive       bool
	force           bool
	logLevel        string
	metricsFile     string
	resolveSymlinks bool
	version         bool

	operation []string
}

func parseFlags(args []string, output io.Writer) (*cliFlags, error) {
	f := &cliFlags{
		set: pflag.NewFlagSet("rpcfs", pflag.ContinueOnError),
	}

	f.set.SetOutput(output)
	f.set.SetInterspersed(false)
	f.set.Usage = f.usage

	f.set.StringVar(&f.root, "root", "", "sandbox root directory (RPCFS_ROOT)")
	f.set.StringArrayVar(&f.envFiles, "env-file", nil, "environment file to load (repeatable)")
	f.set.StringVar(&f.policyFile, "policy", "", "rules file, YAML or TOML (RPCFS_POLICY_FILE)")
	f.set.StringVar(&f.policyURL, "policy-url", "", "remote policy endpoint (RPCFS_POLICY_URL)")
	f.set.BoolVar(&f.interactive, "interactive", false, "ask on the terminal for every path (RPCFS_INTERACTIVE)")
	f.set.BoolVarP(&f.recursive, "recursive", "r", false, "recurse into directories (cp, rm)")
	f.set.BoolVarP(&f.force, "force", "f", false, "overwrite or ignore missing paths (copyFile, cp, rm)")
	f.set.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (RPCFS_LOG_LEVEL)")
	f.set.StringVar(&f.metricsFile, "metrics-file", "", "write decision metrics to this file on exit (RPCFS_METRICS_FILE)")
	f.set.BoolVar(&f.resolveSymlinks, "resolve-symlinks", false, "confine the real locations of symbolic links (RPCFS_RESOLVE_SYMLINKS)")
	f.set.BoolVar(&f.version, "version", false, "print the version and exit")

	if err := f.set.Parse(args); err != nil {
		return nil, fmt.Errorf("(flags) %w", err)
	}

	f.operation = f.set.Args()

	return f, nil
}

// apply overrides cfg with all flags that were explicitly set.
func (f *cliFlags) apply(cfg *configuration.Config) {
	if f.set.Changed("root") {
		cfg.Root = f.root
	}
	if f.set.Changed("policy") {
		cfg.PolicyFile = f.policyFile
	}
	if f.set.Changed("policy-url") {
		cfg.PolicyURL = f.policyURL
	}
	if f.set.Changed("interactive") {
		cfg.Interactive = f.interactive
	}
	if f.set.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if f.set.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if f.set.Changed("resolve-symlinks") {
		cfg.ResolveSymlinks = f.resolveSymlinks
	}
}

func (f *cliFlags) usage() {
	out := f.set.Output()

	fmt.Fprintln(out, "Usage: rpcfs [flags] <operation> [args...]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Operations:")
	for _, op := range policy.Operations() {
		fmt.Fprintf(out, "  %-13s %s\n", op.String(), operationUsage[op])
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	f.set.PrintDefaults()
}

//nolint:gochecknoglobals
var operationUsage = map[policy.Operation]string{
	policy.OpAccess:       "<path> [F|R|W|RW]",
	policy.OpAppendFile:   "<path> <data>",
	policy.OpCopyFile:     "<src> <dst>",
	policy.OpCp:           "<src> <dst>",
	policy.OpMkdir:        "<path>",
	policy.OpMkdirp:       "<path>",
	policy.OpReadFile:     "<path>",
	policy.OpReaddir:      "<path>",
	policy.OpReaddirStats: "<path>",
	policy.OpRename:       "<old> <new>",
	policy.OpRm:           "<path>",
	policy.OpRmdir:        "<path>",
	policy.OpRmrf:         "<path>",
	policy.OpStat:         "<path>",
	policy.OpSymlink:      "<target> <link>",
	policy.OpTruncate:     "<path> [size]",
	policy.OpUnlink:       "<path>",
	policy.OpUtimes:       "<path> <atime> <mtime>",
	policy.OpWriteFile:    "<path> <data>",
}
