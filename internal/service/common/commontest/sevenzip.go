package commontest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SevenZip emulates the archiver: "a" appends the listed member names to
// the destination file, one per line; "x" on a .gz writes the inner .tar
// and on anything else drops an "extracted.txt" marker into the output
// directory.
func SevenZip(call Call) error {
	if len(call.Args) == 0 {
		return fmt.Errorf("7z: no command")
	}

	switch call.Args[0] {
	case "a":
		return sevenZipAdd(call)
	case "x":
		return sevenZipExtract(call)
	default:
		return fmt.Errorf("7z: unsupported command %q", call.Args[0])
	}
}

func sevenZipAdd(call Call) error {
	if len(call.Args) != 4 {
		return fmt.Errorf("7z a: unexpected args %v", call.Args)
	}

	dest := call.Args[2]
	listPath := strings.TrimPrefix(call.Args[3], "@")

	list, err := os.Open(listPath)
	if err != nil {
		return err
	}
	defer list.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	scanner := bufio.NewScanner(list)
	for scanner.Scan() {
		member := scanner.Text()
		if _, err := os.Stat(filepath.Join(call.Dir, member)); err != nil {
			return fmt.Errorf("7z a: %w", err)
		}

		if _, err := fmt.Fprintln(out, filepath.ToSlash(member)); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func sevenZipExtract(call Call) error {
	if len(call.Args) < 3 {
		return fmt.Errorf("7z x: unexpected args %v", call.Args)
	}

	archivePath := call.Args[1]
	dest := strings.TrimPrefix(call.Args[2], "-o")

	if _, err := os.Stat(archivePath); err != nil {
		return err
	}

	if strings.HasSuffix(archivePath, ".gz") {
		tarPath := filepath.Join(dest, strings.TrimSuffix(filepath.Base(archivePath), ".gz"))

		return os.WriteFile(tarPath, []byte("tar"), 0o644)
	}

	return os.WriteFile(filepath.Join(dest, "extracted.txt"), []byte(filepath.Base(archivePath)), 0o644)
}
