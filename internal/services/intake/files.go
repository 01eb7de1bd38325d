package intake

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

type multipartFile struct {
	header *multipart.FileHeader
}

// FromMultipart adapts form file headers to intake candidates.
func FromMultipart(headers []*multipart.FileHeader) []File {
	files := make([]File, 0, len(headers))
	for _, h := range headers {
		files = append(files, multipartFile{header: h})
	}
	return files
}

func (f multipartFile) Name() string        { return f.header.Filename }
func (f multipartFile) ContentType() string { return f.header.Header.Get("Content-Type") }
func (f multipartFile) Size() int64         { return f.header.Size }

func (f multipartFile) Open() (io.ReadCloser, error) {
	return f.header.Open()
}

type localFile struct {
	path        string
	contentType string
	size        int64
}

// OpenLocal describes a file on disk, sniffing its media type from content.
func OpenLocal(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}

	return localFile{path: path, contentType: mt.String(), size: info.Size()}, nil
}

func (f localFile) Name() string        { return filepath.Base(f.path) }
func (f localFile) ContentType() string { return f.contentType }
func (f localFile) Size() int64         { return f.size }

func (f localFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Memory is an in-memory candidate, used by tests and API clients that
// already hold the bytes.
type Memory struct {
	Filename string
	Type     string
	Data     []byte
	// DeclaredSize overrides len(Data) when non-zero.
	DeclaredSize int64
}

func (m Memory) Name() string        { return m.Filename }
func (m Memory) ContentType() string { return m.Type }

func (m Memory) Size() int64 {
	if m.DeclaredSize != 0 {
		return m.DeclaredSize
	}
	return int64(len(m.Data))
}

func (m Memory) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.Data)), nil
}
