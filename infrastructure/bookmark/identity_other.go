//go:build !unix

package bookmark

import (
	"fmt"
	"os"
)

// Without inode numbers only a file/directory swap is detectable.
func statIdentity(path string) (fileIdentity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileIdentity{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	return fileIdentity{dir: info.IsDir()}, nil
}
