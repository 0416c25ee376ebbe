// Package archive packages a file set as a zip for download.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/extforge/extforge/pkg/types"
)

// DefaultName is the suggested download filename.
const DefaultName = "ai-generated-extension.zip"

// Write writes files to w as a zip archive, one deflated entry per file,
// in order. Content bytes are stored unmodified.
func Write(w io.Writer, files []types.File) error {
	zw := zip.NewWriter(w)
	modified := time.Now()

	for _, f := range files {
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Filename,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			zw.Close()
			return fmt.Errorf("add %s: %w", f.Filename, err)
		}
		if _, err := io.WriteString(entry, f.Content); err != nil {
			zw.Close()
			return fmt.Errorf("write %s: %w", f.Filename, err)
		}
	}
	return zw.Close()
}

// Bytes returns the archive as a byte slice.
func Bytes(files []types.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, files); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read decodes an archive produced by Write back into files.
func Read(data []byte) ([]types.File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	files := make([]types.File, 0, len(zr.File))
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", zf.Name, err)
		}
		files = append(files, types.File{Filename: zf.Name, Content: string(content)})
	}
	return files, nil
}
