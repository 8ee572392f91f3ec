package util

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// WriteToFile streams body into a file at path, closing body either way.
func WriteToFile(body io.ReadCloser, path string) error {
	defer body.Close()
	if path == "" {
		return errors.New("cannot write output to an unspecified path")
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating file '%s'", path)
	}
	defer file.Close()

	_, err = io.Copy(file, body)
	return errors.Wrapf(err, "writing to file '%s'", path)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	stat, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !stat.IsDir()
}
