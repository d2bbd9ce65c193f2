package users

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// changeTime prefers the birth time APFS records over the inode change time.
func changeTime(path string) (time.Time, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	if st.Birthtimespec.Sec > 0 {
		return time.Unix(st.Birthtimespec.Unix()), nil
	}
	return time.Unix(st.Ctimespec.Unix()), nil
}
