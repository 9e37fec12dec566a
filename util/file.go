package util

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// TempSuffix is appended to a canonical path to get its temporary sibling
const TempSuffix = ".tmp"

func TempPath(path string) string {
	return path + TempSuffix
}

// WriteFileAtomic writes data to the temporary sibling of path and renames it
// over path. A failure at any stage leaves path untouched.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := TempPath(path)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := writeAndClose(f, data); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// AppendLineAtomic copies path (if it exists) to its temporary sibling,
// appends line and a newline, then renames the copy over path.
func AppendLineAtomic(path string, line string, perm os.FileMode) error {
	tmp := TempPath(path)
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("write temp: %w", err)
	}

	in, err := os.Open(path)
	switch {
	case err == nil:
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			out.Close()
			os.Remove(tmp)
			return fmt.Errorf("copy %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("open %s: %w", path, err)
	}

	if err := writeAndClose(out, []byte(line+"\n")); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func writeAndClose(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return nil
}

// AppendToFile appends each of the content strings as a line of savePath,
// creating it when needed. Not crash safe; used for diagnostic output.
func AppendToFile(savePath string, content ...string) error {
	f, err := os.OpenFile(savePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}

	defer f.Close()

	for _, s := range content {
		if _, err = f.WriteString(s + "\n"); err != nil {
			return err
		}
	}
	return nil
}
