package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// Entry is one file destined for an archive.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// Archive bundles the entries into an in-memory zip. Entry order is
// preserved; an unwritable entry aborts the whole archive.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		hdr := &zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: entry.Modified,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}
