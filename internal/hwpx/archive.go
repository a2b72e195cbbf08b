package hwpx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrArchive        = errors.New("invalid archive")
	ErrDuplicateEntry = errors.New("duplicate archive entry")
)

// Transform rewrites the uncompressed content of one archive entry.
type Transform func([]byte) ([]byte, error)

// Entry is a named archive member.
type Entry struct {
	Name string
	Data []byte
}

// Rewrite streams the ZIP archive in r to w in a single pass. Entries named in
// transforms are decompressed, transformed and recompressed; every other entry is
// copied with its compressed bytes untouched. additions are appended after the last
// original entry, in order. An addition may not reuse an existing entry name.
func Rewrite(r io.ReaderAt, size int64, w io.Writer, transforms map[string]Transform, additions []Entry) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}

	names := make(map[string]bool, len(zr.File)+len(additions))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, a := range additions {
		if names[a.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateEntry, a.Name)
		}
		names[a.Name] = true
	}

	zw := zip.NewWriter(w)
	for _, f := range zr.File {
		transform, ok := transforms[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("%w: copy %s: %v", ErrArchive, f.Name, err)
			}
			continue
		}
		if err := rewriteEntry(zw, f, transform); err != nil {
			return err
		}
	}

	now := time.Now()
	for _, a := range additions {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     a.Name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", a.Name, err)
		}
		if _, err := fw.Write(a.Data); err != nil {
			return fmt.Errorf("write %s: %w", a.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func rewriteEntry(zw *zip.Writer, f *zip.File, transform Transform) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrArchive, f.Name, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrArchive, f.Name, err)
	}

	out, err := transform(data)
	if err != nil {
		return fmt.Errorf("transform %s: %w", f.Name, err)
	}

	method := f.Method
	if method != zip.Store {
		method = zip.Deflate
	}
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     f.Name,
		Comment:  f.Comment,
		Method:   method,
		Modified: f.Modified,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", f.Name, err)
	}
	if _, err := fw.Write(out); err != nil {
		return fmt.Errorf("write %s: %w", f.Name, err)
	}
	return nil
}

// RewriteBytes is Rewrite over in-memory archives. The input slice is never modified.
func RewriteBytes(archive []byte, transforms map[string]Transform, additions []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(archive))
	if err := Rewrite(bytes.NewReader(archive), int64(len(archive)), &buf, transforms, additions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Entries decompresses every member of an in-memory archive, in archive order.
func Entries(archive []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrArchive, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrArchive, f.Name, err)
		}
		entries = append(entries, Entry{Name: f.Name, Data: data})
	}
	return entries, nil
}
