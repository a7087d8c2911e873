package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxSize is the upload limit applied when none is configured.
const DefaultMaxSize int64 = 10 << 20

// ErrTooLarge is returned by OpenAttachment for files above the limit.
var ErrTooLarge = errors.New("file exceeds upload limit")

// Attachment describes a local file about to be uploaded.
type Attachment struct {
	Path string
	Name string
	Type string
	Size int64
}

// OpenAttachment stats path, checks it against maxSize (DefaultMaxSize when
// maxSize <= 0) and sniffs its MIME type from content.
func OpenAttachment(path string, maxSize int64) (Attachment, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	fi, err := os.Stat(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return Attachment{}, fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() > maxSize {
		return Attachment{}, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, fi.Name(), fi.Size(), maxSize)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("detect type of %s: %w", path, err)
	}
	return Attachment{
		Path: path,
		Name: filepath.Base(path),
		Type: baseType(mt),
		Size: fi.Size(),
	}, nil
}

// Open returns the attachment content. The caller closes it.
func (a Attachment) Open() (io.ReadCloser, error) {
	return os.Open(a.Path)
}

// baseType drops parameters such as "; charset=utf-8".
func baseType(mt *mimetype.MIME) string {
	s := mt.String()
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			return s[:i]
		}
	}
	return s
}
