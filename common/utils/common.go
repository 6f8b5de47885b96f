package utils

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path"
	"path/filepath"
)

func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// FindProjectRoot walks up from startDir to the directory holding go.mod
// or config/config.toml. startDir is returned when neither is found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FileExists(path.Join(dir, "go.mod")) || FileExists(path.Join(dir, "config", "config.toml")) {
			return dir
		}

		parentDir := path.Dir(dir)
		if parentDir == dir {
			return startDir
		}
		dir = parentDir
	}
}

func FileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// EnsureParentDir 파일의 상위 디렉터리 생성
func EnsureParentDir(name string) error {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes to a temporary sibling and renames it over name.
func WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	if err := EnsureParentDir(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, name); err != nil {
		os.Remove(tmpName)
		return errors.Join(fmt.Errorf("replace %s", name), err)
	}
	return nil
}
