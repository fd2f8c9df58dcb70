package depmanager

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

type archiveKind int

const (
	archiveNone archiveKind = iota
	archiveZip
	archiveTarXZ
	archiveTarGZ
)

func archiveKindOf(url string) archiveKind {
	switch {
	case strings.HasSuffix(url, ".zip"):
		return archiveZip
	case strings.HasSuffix(url, ".tar.xz"):
		return archiveTarXZ
	case strings.HasSuffix(url, ".tar.gz"), strings.HasSuffix(url, ".tgz"):
		return archiveTarGZ
	default:
		return archiveNone
	}
}

// extractFiles copies the named targets out of an archive into destDir,
// matching on base name so nested layouts like ffmpeg-*/bin/ffmpeg work.
func extractFiles(kind archiveKind, archivePath, destDir string, targets map[string]struct{}) error {
	switch kind {
	case archiveZip:
		return extractFromZip(archivePath, destDir, targets)
	case archiveTarXZ:
		return withFile(archivePath, func(r io.Reader) error {
			xzReader, err := xz.NewReader(r)
			if err != nil {
				return fmt.Errorf("create xz reader: %w", err)
			}

			return extractTarSelected(xzReader, destDir, targets)
		})
	case archiveTarGZ:
		return withFile(archivePath, func(r io.Reader) error {
			gzReader, err := gzip.NewReader(r)
			if err != nil {
				return fmt.Errorf("create gzip reader: %w", err)
			}
			defer gzReader.Close()

			return extractTarSelected(gzReader, destDir, targets)
		})
	default:
		return fmt.Errorf("unsupported archive format")
	}
}

func withFile(path string, fn func(io.Reader) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	return fn(file)
}

func extractFromZip(zipPath, destDir string, targets map[string]struct{}) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	extracted := 0

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		filename := file.FileInfo().Name()
		if _, ok := targets[filename]; !ok {
			continue
		}

		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("open file in zip: %w", err)
		}

		err = writeExecutable(filepath.Join(destDir, filename), src)
		src.Close()

		if err != nil {
			return err
		}

		extracted++
		if extracted == len(targets) {
			return nil
		}
	}

	if extracted == 0 {
		return fmt.Errorf("no target files found in zip archive")
	}

	return nil
}

func extractTarSelected(reader io.Reader, destDir string, targets map[string]struct{}) error {
	tarReader := tar.NewReader(reader)
	extracted := 0

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		filename := filepath.Base(header.Name)
		if _, ok := targets[filename]; !ok {
			continue
		}

		if err := writeExecutable(filepath.Join(destDir, filename), tarReader); err != nil {
			return err
		}

		extracted++
		if extracted == len(targets) {
			return nil
		}
	}

	if extracted == 0 {
		return fmt.Errorf("no target files found in tar archive")
	}

	return nil
}

func writeExecutable(destPath string, src io.Reader) error {
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
	if err != nil {
		return fmt.Errorf("create dest file: %w", err)
	}

	_, err = io.Copy(out, src)
	closeErr := out.Close()

	if err != nil {
		return fmt.Errorf("extract file: %w", err)
	}

	if closeErr != nil {
		return fmt.Errorf("close dest file: %w", closeErr)
	}

	return nil
}
