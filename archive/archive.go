// Package archive reads release archives and reads/writes directory snapshots.
package archive

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Extract unpacks the archive at path into destination.
// The format is sniffed from the file header; zip and tar.gz are supported.
func Extract(path, destination string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	// sniff mime header to determine file type
	header := make([]byte, 512)
	n, err := file.Read(header)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read archive header: %w", err)
	}
	mime := http.DetectContentType(header[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	switch mime {
	case "application/zip":
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat archive: %w", err)
		}
		return Unzip(file, info.Size(), destination)
	case "application/x-gzip":
		return Untar(file, destination)
	default:
		return fmt.Errorf("unsupported format: %s", mime)
	}
}

// Unzip extracts every entry of a zip archive into destination.
// Files are written executable, release zips don't reliably carry unix modes.
func Unzip(file io.ReaderAt, size int64, destination string) error {
	reader, err := zip.NewReader(file, size)
	if err != nil {
		return fmt.Errorf("failed to create zip reader: %w", err)
	}

	for _, entry := range reader.File {
		target, err := within(destination, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		contents, err := entry.Open()
		if err != nil {
			return fmt.Errorf("failed to open file %s: %w", entry.Name, err)
		}

		err = write(target, contents, 0o755)
		contents.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// Untar extracts a gzip compressed tar stream into destination.
func Untar(file io.Reader, destination string) error {
	decompressor, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer decompressor.Close()

	reader := tar.NewReader(decompressor)

	for {
		header, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		target, err := within(destination, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := write(target, reader, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
			}
			_ = os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink %s: %w", target, err)
			}
		}
	}

	return nil
}

// Tar writes the contents of source as a gzip compressed tar stream.
// Entry names are relative to source.
func Tar(w io.Writer, source string) error {
	compressor, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	writer := tar.NewWriter(compressor)

	err = filepath.WalkDir(source, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}

		if err := writer.WriteHeader(header); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", source, err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}

	return compressor.Close()
}

// within resolves name under destination, refusing entries that would escape it.
func within(destination, name string) (string, error) {
	target := filepath.Join(destination, filepath.FromSlash(name))

	rel, err := filepath.Rel(destination, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("illegal path in archive: %s", name)
	}

	return target, nil
}

func write(target string, contents io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	defer out.Close()

	// existing files keep their old mode with O_CREATE
	_ = os.Chmod(target, mode)

	if _, err := io.Copy(out, contents); err != nil {
		return fmt.Errorf("failed to copy data to file %s: %w", target, err)
	}

	return out.Close()
}
