package schema

import (
	"os"

	"golang.org/x/sys/unix"
)

// OS is an implementation wrapping operating system functions.
type OS struct{}

// OpenFile wraps around [os.OpenFile].
func (*OS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

// Stat wraps around [os.Stat].
func (*OS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// Truncate wraps around [os.Truncate].
func (*OS) Truncate(name string, size int64) error {
	return os.Truncate(name, size)
}

// Unix is an implementation wrapping Unix operating system functions.
type Unix struct{}

// Fdatasync wraps around [unix.Fdatasync].
func (*Unix) Fdatasync(fd int) error {
	return unix.Fdatasync(fd)
}
