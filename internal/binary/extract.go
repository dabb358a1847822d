package binary

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gobwas/glob"
)

// Extractor pulls the driver executable out of a downloaded artifact.
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract writes the executable of rel found in archivePath to
// destDir/rel.Executable and returns that path. Zip and tar.gz archives
// are searched for the first regular file whose base name matches
// rel.Pattern, falling back to rel.Executable when no pattern is set; jar
// artifacts are copied as they are. On failure destDir is removed.
func (e *Extractor) Extract(archivePath string, rel Release, destDir string) (string, error) {
	var matcher glob.Glob
	if rel.Format == FormatZip || rel.Format == FormatTarGz {
		pattern := rel.Pattern
		if pattern == "" {
			pattern = glob.QuoteMeta(rel.Executable)
		}
		m, err := glob.Compile(pattern)
		if err != nil {
			return "", typed(ErrExtraction, fmt.Errorf("compile pattern %q: %w", pattern, err))
		}
		matcher = m
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create dest dir: %w", err)
	}

	var err error
	destPath := filepath.Join(destDir, rel.Executable)
	switch rel.Format {
	case FormatZip:
		err = extractZip(archivePath, destPath, matcher)
	case FormatTarGz:
		err = extractTarGz(archivePath, destPath, matcher)
	case FormatJar:
		err = copyFile(archivePath, destPath)
	default:
		err = fmt.Errorf("unsupported archive format %q", rel.Format)
	}
	if err != nil {
		os.RemoveAll(destDir)
		return "", typed(ErrExtraction, err, "archive", filepath.Base(rel.URL), "executable", rel.Executable)
	}

	if runtime.GOOS != "windows" {
		if err := SetExecutable(destPath); err != nil {
			os.RemoveAll(destDir)
			return "", typed(ErrExtraction, err)
		}
	}
	return destPath, nil
}

var errNotInArchive = errors.New("executable not found in archive")

// safeEntry rejects absolute entry names and names escaping the archive root.
func safeEntry(name string) error {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("illegal file path: %s", name)
	}
	return nil
}

func extractZip(archivePath, destPath string, matcher glob.Glob) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !matcher.Match(path.Base(strings.ReplaceAll(f.Name, `\`, "/"))) {
			continue
		}
		if err := safeEntry(f.Name); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		err = writeFile(destPath, rc)
		rc.Close()
		return err
	}
	return errNotInArchive
}

func extractTarGz(archivePath, destPath string, matcher glob.Glob) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return errNotInArchive
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg || !matcher.Match(path.Base(header.Name)) {
			continue
		}
		if err := safeEntry(header.Name); err != nil {
			return err
		}
		return writeFile(destPath, tarReader)
	}
}

func copyFile(src, destPath string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer in.Close()
	return writeFile(destPath, in)
}

func writeFile(destPath string, r io.Reader) error {
	outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return fmt.Errorf("write file: %w", err)
	}
	return outFile.Close()
}

// SetExecutable sets executable permissions on a file
func SetExecutable(path string) error {
	if err := os.Chmod(path, 0755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
