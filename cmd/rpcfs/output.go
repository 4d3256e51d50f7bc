package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"

	"github.com/bytedance/sonic"
	"github.com/desertwitch/rpcfs"
	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

const listingTimeFormat = "Jan _2 15:04"

// errUnexpectedResult is an error that occurs when an operation returned a
// result that cannot be printed.
var errUnexpectedResult = errors.New("unexpected result type")

func printResult(w io.Writer, result any) error {
	switch v := result.(type) {
	case nil:
		return nil

	case []byte:
		if _, err := w.Write(v); err != nil {
			return fmt.Errorf("(output) %w", err)
		}

	case []string:
		for _, name := range v {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return fmt.Errorf("(output) %w", err)
			}
		}

	case *rpcfs.Stats:
		data, err := sonic.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("(output) %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("(output) %w", err)
		}

	case map[string]*rpcfs.Stats:
		return printListing(w, v)

	default:
		return fmt.Errorf("(output) %w: %T", errUnexpectedResult, result)
	}

	return nil
}

// printListing prints one line per entry, sorted by name, similar to ls -l.
func printListing(w io.Writer, entries map[string]*rpcfs.Stats) error {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		st := entries[name]

		if _, err := fmt.Fprintf(w, "%s %8s %s %s\n",
			fileMode(st),
			humanize.Bytes(uint64(max(st.Size, 0))),
			st.Mtime.Local().Format(listingTimeFormat),
			name,
		); err != nil {
			return fmt.Errorf("(output) %w", err)
		}
	}

	return nil
}

func fileMode(st *rpcfs.Stats) fs.FileMode {
	mode := fs.FileMode(st.Mode & 0o777) //nolint:mnd

	switch {
	case st.IsDirectory:
		mode |= fs.ModeDir
	case st.IsSymbolicLink:
		mode |= fs.ModeSymlink
	case st.Mode&unix.S_IFMT == unix.S_IFIFO:
		mode |= fs.ModeNamedPipe
	case st.Mode&unix.S_IFMT == unix.S_IFSOCK:
		mode |= fs.ModeSocket
	case st.Mode&unix.S_IFMT == unix.S_IFCHR:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case st.Mode&unix.S_IFMT == unix.S_IFBLK:
		mode |= fs.ModeDevice
	}

	if st.Mode&unix.S_ISUID != 0 {
		mode |= fs.ModeSetuid
	}
	if st.Mode&unix.S_ISGID != 0 {
		mode |= fs.ModeSetgid
	}
	if st.Mode&unix.S_ISVTX != 0 {
		mode |= fs.ModeSticky
	}

	return mode
}
