//go:build !linux

package repo

import "os"

// fillStat copies the portable stat cache fields into an index entry.
// Platforms without a syscall.Stat_t view lose dev/ino/uid/gid, which only
// weakens the stat shortcut (content is rehashed instead).
func fillStat(e *IndexEntry, info os.FileInfo) {
	e.MtimeSec = uint32(info.ModTime().Unix())
	e.MtimeNano = uint32(info.ModTime().Nanosecond())
	e.CtimeSec = e.MtimeSec
	e.CtimeNano = e.MtimeNano
	e.Size = uint32(info.Size())
}
