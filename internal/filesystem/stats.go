package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/desertwitch/rpcfs/internal/util"
	"golang.org/x/sys/unix"
)

// Stats is the normalized metadata of a path.
type Stats struct {
	Dev   uint64 `json:"dev"`
	Ino   uint64 `json:"ino"`
	Mode  uint32 `json:"mode"`
	Nlink uint64 `json:"nlink"`
	UID   uint32 `json:"uid"`
	GID   uint32 `json:"gid"`
	Size  int64  `json:"size"`

	IsFile         bool `json:"isFile"`
	IsDirectory    bool `json:"isDirectory"`
	IsSymbolicLink bool `json:"isSymbolicLink"`

	AtimeMs     int64     `json:"atimeMs"`
	Atime       time.Time `json:"atime"`
	MtimeMs     int64     `json:"mtimeMs"`
	Mtime       time.Time `json:"mtime"`
	CtimeMs     int64     `json:"ctimeMs"`
	Ctime       time.Time `json:"ctime"`
	BirthtimeMs int64     `json:"birthtimeMs"`
	Birthtime   time.Time `json:"birthtime"`
}

func (s *Stats) setTimes(atime, mtime, ctime, btime time.Time) {
	s.Atime, s.AtimeMs = atime, atime.UnixMilli()
	s.Mtime, s.MtimeMs = mtime, mtime.UnixMilli()
	s.Ctime, s.CtimeMs = ctime, ctime.UnixMilli()
	s.Birthtime, s.BirthtimeMs = btime, btime.UnixMilli()
}

func (s *Stats) setType(mode uint32) {
	s.IsFile = mode&unix.S_IFMT == unix.S_IFREG
	s.IsDirectory = mode&unix.S_IFMT == unix.S_IFDIR
	s.IsSymbolicLink = mode&unix.S_IFMT == unix.S_IFLNK
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}

func statsFromStatx(stx *unix.Statx_t) *Stats {
	stats := &Stats{
		Dev:   unix.Mkdev(stx.Dev_major, stx.Dev_minor),
		Ino:   stx.Ino,
		Mode:  uint32(stx.Mode),
		Nlink: uint64(stx.Nlink),
		UID:   stx.Uid,
		GID:   stx.Gid,
		Size:  int64(stx.Size), //nolint:gosec
	}
	stats.setType(stats.Mode)

	ctime := statxTime(stx.Ctime)
	btime := ctime
	if stx.Mask&unix.STATX_BTIME != 0 {
		btime = statxTime(stx.Btime)
	}
	stats.setTimes(statxTime(stx.Atime), statxTime(stx.Mtime), ctime, btime)

	return stats
}

func statsFromStat(st *unix.Stat_t) *Stats {
	stats := &Stats{
		Dev:   uint64(st.Dev), //nolint:unconvert
		Ino:   st.Ino,
		Mode:  st.Mode,
		Nlink: uint64(st.Nlink), //nolint:unconvert
		UID:   st.Uid,
		GID:   st.Gid,
		Size:  st.Size,
	}
	stats.setType(stats.Mode)

	ctime := time.Unix(st.Ctim.Unix())
	stats.setTimes(time.Unix(st.Atim.Unix()), time.Unix(st.Mtim.Unix()), ctime, ctime)

	return stats
}

// statPath gathers [Stats] with statx(2), falling back to stat(2) or
// lstat(2) on kernels without statx(2). The birth time falls back to the
// change time where the filesystem does not report one.
func (f *Handler) statPath(path string, follow bool) (*Stats, error) {
	flags := unix.AT_STATX_SYNC_AS_STAT
	if !follow {
		flags |= unix.AT_SYMLINK_NOFOLLOW
	}

	var stx unix.Statx_t

	err := f.unixHandler.Statx(unix.AT_FDCWD, path, flags, unix.STATX_BASIC_STATS|unix.STATX_BTIME, &stx)
	if err == nil {
		return statsFromStatx(&stx), nil
	}

	if !errors.Is(err, unix.ENOSYS) {
		return nil, pathError("stat", path, err)
	}

	var st unix.Stat_t

	if follow {
		err = f.unixHandler.Stat(path, &st)
	} else {
		err = f.unixHandler.Lstat(path, &st)
	}
	if err != nil {
		return nil, pathError("stat", path, err)
	}

	return statsFromStat(&st), nil
}

// Stat returns the [Stats] of a path, following symbolic links. The
// IsSymbolicLink field reports if the path itself is a symbolic link.
func (f *Handler) Stat(_ context.Context, path string) (*Stats, error) {
	stats, err := f.statPath(path, true)
	if err != nil {
		return nil, err
	}

	var st unix.Stat_t
	if err := f.unixHandler.Lstat(path, &st); err == nil {
		stats.IsSymbolicLink = st.Mode&unix.S_IFMT == unix.S_IFLNK
	}

	return stats, nil
}

type namedStats struct {
	name  string
	stats *Stats
}

// ReaddirStats returns the [Stats] of every entry of a directory, keyed by
// entry name. Entries are looked at concurrently. Dangling symbolic links
// are reported with the metadata of the link itself. Entries that vanish
// while the directory is being read are left out, any other failure fails
// the whole call.
func (f *Handler) ReaddirStats(ctx context.Context, path string) (map[string]*Stats, error) {
	names, err := f.Readdir(ctx, path)
	if err != nil {
		return nil, err
	}

	entries, err := util.ConcurrentFilterMap(ctx, names, func(ctx context.Context, name string) (namedStats, bool, error) {
		entryPath := filepath.Join(path, name)

		stats, err := f.Stat(ctx, entryPath)
		if errors.Is(err, fs.ErrNotExist) {
			stats, err = f.statPath(entryPath, false)
		}

		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("Skipped entry: vanished during directory listing",
					"path", entryPath,
				)

				return namedStats{}, false, nil
			}

			return namedStats{}, false, err
		}

		return namedStats{name: name, stats: stats}, true, nil
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	result := make(map[string]*Stats, len(entries))
	for _, e := range entries {
		result[e.name] = e.stats
	}

	return result, nil
}
