package installer

import (
	"bytes"
	"crypto/sha512"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/desktop-packager/internal/service/common"
)

// Changes lists the differences between two bundle trees.
type Changes struct {
	// Updated are files added or modified in the newer tree.
	Updated []string
	// Removed are files present only in the older tree.
	Removed []string
}

// Diff compares fromDir with toDir by SHA-512 checksum. Paths are
// slash-separated, relative and sorted.
func Diff(fromDir, toDir string) (*Changes, error) {
	oldFiles, err := common.ListFiles(fromDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", fromDir, err)
	}

	newFiles, err := common.ListFiles(toDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", toDir, err)
	}

	present := make(map[string]struct{}, len(newFiles))
	changes := new(Changes)

	for _, file := range newFiles {
		present[file] = struct{}{}

		same, err := sameContents(filepath.Join(fromDir, filepath.FromSlash(file)), filepath.Join(toDir, filepath.FromSlash(file)))
		if err != nil {
			return nil, err
		}

		if !same {
			changes.Updated = append(changes.Updated, file)
		}
	}

	for _, file := range oldFiles {
		if _, ok := present[file]; !ok {
			changes.Removed = append(changes.Removed, file)
		}
	}

	return changes, nil
}

func sameContents(a, b string) (bool, error) {
	sumA, err := checksum(a)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	sumB, err := checksum(b)
	if err != nil {
		return false, err
	}

	return bytes.Equal(sumA, sumB), nil
}

// checksum returns the SHA-512 digest of a file.
func checksum(path string) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := sha512.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
