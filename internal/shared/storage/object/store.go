package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"

	"transcript-advisor/internal/shared/util"
)

const sniffLen = 512

// Object describes bytes held in a store.
type Object struct {
	Key         string
	Size        int64
	SniffedType string
}

// ObjectStore holds staged transcript bytes until they are submitted or discarded.
type ObjectStore interface {
	Put(ctx context.Context, scope, fileName string, r io.Reader) (Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes an object. Missing objects are not an error.
	Remove(ctx context.Context, key string) error
}

// NewKey returns a unique slash-separated key under the hashed scope.
func NewKey(scope, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashScope(scope), uuid.NewString()+"_"+name), nil
}

// Sniff detects the content type from the head of r. The returned reader
// yields every byte of r, including the sniffed head.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read head: %w", err)
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
