package util

import (
	"io/ioutil"
	"os"

	"github.com/pingcap/errors"
)

func GetFileSize(path string) (uint64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return uint64(fi.Size()), nil
}

func FileExists(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !fi.IsDir()
}

func DirExists(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}

func DeleteFileIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}

// CreateTempFile creates a read-write temp file in dir whose name starts with prefix.
// The caller owns the file and must remove it.
func CreateTempFile(dir, prefix string) (*os.File, error) {
	if !DirExists(dir) {
		return nil, errors.Errorf("temp dir %s does not exist", dir)
	}
	f, err := ioutil.TempFile(dir, prefix)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}
