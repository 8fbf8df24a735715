//go:build linux

package repo

import (
	"os"
	"syscall"
)

// fillStat copies the platform stat cache fields into an index entry.
func fillStat(e *IndexEntry, info os.FileInfo) {
	e.MtimeSec = uint32(info.ModTime().Unix())
	e.MtimeNano = uint32(info.ModTime().Nanosecond())
	e.Size = uint32(info.Size())

	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		e.CtimeSec = e.MtimeSec
		e.CtimeNano = e.MtimeNano
		return
	}
	e.CtimeSec = uint32(st.Ctim.Sec)
	e.CtimeNano = uint32(st.Ctim.Nsec)
	e.Dev = uint32(st.Dev)
	e.Ino = uint32(st.Ino)
	e.UID = st.Uid
	e.GID = st.Gid
}
