//go:build unix

package bookmark

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func statIdentity(path string) (fileIdentity, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fileIdentity{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	return fileIdentity{
		device: uint64(st.Dev),
		inode:  uint64(st.Ino),
		dir:    st.Mode&unix.S_IFMT == unix.S_IFDIR,
	}, nil
}
