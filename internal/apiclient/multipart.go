package apiclient

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// File is a binary attachment sent in a multipart body.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Multipart is a form body carrying text fields and files.
type Multipart struct {
	fields []field
	files  []filePart
}

type field struct {
	name, value string
}

type filePart struct {
	name string
	file File
}

// Field adds a text field. Empty values are skipped.
func (m *Multipart) Field(name, value string) *Multipart {
	if value != "" {
		m.fields = append(m.fields, field{name: name, value: value})
	}
	return m
}

// File adds a file part. A nil file is skipped.
func (m *Multipart) File(name string, f *File) *Multipart {
	if f != nil {
		m.files = append(m.files, filePart{name: name, file: *f})
	}
	return m
}

// encode writes the form and returns the body with its content type.
func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, f := range m.fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	for _, p := range m.files {
		ct := p.file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.name, p.file.Name))
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", p.name, err)
		}
		if _, err := part.Write(p.file.Data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", p.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
