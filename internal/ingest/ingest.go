// Package ingest turns an upload into a typed Submission.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Multipart field names.
const (
	FieldAnswer  = "answer"
	FieldDiagram = "diagram"
)

// DefaultMaxDiagramBytes caps an uploaded diagram held in memory.
const DefaultMaxDiagramBytes = 10 << 20

// ErrMethodNotAllowed is returned for any method other than POST. The body
// is left unread.
var ErrMethodNotAllowed = errors.New("method not allowed")

// ErrDiagramTooLarge is wrapped in a FormParseError when the diagram exceeds
// the configured cap.
var ErrDiagramTooLarge = errors.New("diagram exceeds size limit")

// FormParseError reports a body that could not be read as a multipart form.
type FormParseError struct {
	Err error
}

func (e *FormParseError) Error() string {
	return fmt.Sprintf("parse multipart form: %v", e.Err)
}

func (e *FormParseError) Unwrap() error { return e.Err }

// Submission is one student upload.
type Submission struct {
	// Answer is the submitted text, "" when the field is absent.
	Answer string

	// Diagram is nil when no diagram file was uploaded.
	Diagram *DiagramAsset
}

// DiagramAsset is an uploaded diagram held in memory for one request.
type DiagramAsset struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Supported reports whether the asset has an image or PDF media type.
func (d *DiagramAsset) Supported() bool {
	return strings.HasPrefix(d.MIMEType, "image/") || d.MIMEType == "application/pdf"
}

// Parse reads r's multipart body. The first "answer" part becomes the answer
// and the first "diagram" file part becomes the diagram, read fully into
// memory up to maxDiagramBytes. Other parts are skipped.
func Parse(r *http.Request, maxDiagramBytes int64) (*Submission, error) {
	if r.Method != http.MethodPost {
		return nil, ErrMethodNotAllowed
	}
	if maxDiagramBytes <= 0 {
		maxDiagramBytes = DefaultMaxDiagramBytes
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, &FormParseError{Err: err}
	}

	sub := &Submission{}
	var haveAnswer bool
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FormParseError{Err: err}
		}

		switch {
		case part.FormName() == FieldAnswer && !haveAnswer:
			b, err := io.ReadAll(part)
			if err != nil {
				part.Close()
				return nil, &FormParseError{Err: fmt.Errorf("read %s: %w", FieldAnswer, err)}
			}
			sub.Answer = string(b)
			haveAnswer = true

		case part.FormName() == FieldDiagram && part.FileName() != "" && sub.Diagram == nil:
			asset, err := readDiagram(part, maxDiagramBytes)
			if err != nil {
				part.Close()
				return nil, &FormParseError{Err: err}
			}
			sub.Diagram = asset
		}
		part.Close()
	}

	if d := sub.Diagram; d != nil && !d.Supported() {
		clog.FromContext(r.Context()).With("filename", d.Filename).With("mime", d.MIMEType).
			Warn("diagram is neither an image nor a PDF, passing it to the vision model anyway")
	}
	return sub, nil
}

func readDiagram(part *multipart.Part, limit int64) (*DiagramAsset, error) {
	data, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", FieldDiagram, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDiagramTooLarge, limit)
	}
	if len(data) == 0 {
		// A file input left empty still posts a named part on some clients.
		return nil, nil
	}
	return &DiagramAsset{
		Filename: part.FileName(),
		MIMEType: PickMIME(part.Header.Get("Content-Type"), data),
		Data:     data,
	}, nil
}

// PickMIME returns the declared media type without parameters, or the
// sniffed type when the declaration is missing or generic.
func PickMIME(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
