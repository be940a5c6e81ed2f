package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// MultipartBody is a form payload sent as-is with its own boundary.
// It is buffered so the request can be replayed after a CSRF refresh.
type MultipartBody struct {
	buf    bytes.Buffer
	w      *multipart.Writer
	closed bool
}

// NewMultipartBody creates an empty form payload.
func NewMultipartBody() *MultipartBody {
	m := &MultipartBody{}
	m.w = multipart.NewWriter(&m.buf)
	return m
}

// WriteField adds a plain form field.
func (m *MultipartBody) WriteField(name, value string) error {
	if m.closed {
		return fmt.Errorf("multipart body already encoded")
	}
	return m.w.WriteField(name, value)
}

// WriteFile adds a file part read fully from r.
func (m *MultipartBody) WriteFile(field, filename string, r io.Reader) error {
	if m.closed {
		return fmt.Errorf("multipart body already encoded")
	}
	part, err := m.w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create form file %s: %w", field, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("copy form file %s: %w", field, err)
	}
	return nil
}

func (m *MultipartBody) encode() ([]byte, string, error) {
	if !m.closed {
		if err := m.w.Close(); err != nil {
			return nil, "", fmt.Errorf("close multipart writer: %w", err)
		}
		m.closed = true
	}
	return m.buf.Bytes(), m.w.FormDataContentType(), nil
}
