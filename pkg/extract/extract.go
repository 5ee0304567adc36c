// Package extract defines the boundary to the document extraction service:
// the documents sent to it, the records it returns and their validation.
package extract

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/ledger"
)

// Kind tags the variant held by a Document.
type Kind string

const (
	KindText   Kind = "text"
	KindBinary Kind = "binary"
)

// Document is either plain text or binary data with a MIME type.
// Build one with TextDocument or BinaryDocument.
type Document struct {
	kind     Kind
	text     string
	data     []byte
	mimeType string
	filename string
}

// TextDocument returns a text document.
func TextDocument(filename, content string) Document {
	return Document{kind: KindText, text: content, filename: filename}
}

// BinaryDocument returns a binary document.
func BinaryDocument(filename, mimeType string, data []byte) Document {
	return Document{kind: KindBinary, data: data, mimeType: mimeType, filename: filename}
}

// Kind returns the variant.
func (d Document) Kind() Kind { return d.kind }

// Text returns the content of a text document.
func (d Document) Text() string { return d.text }

// Data returns the bytes of a binary document.
func (d Document) Data() []byte { return d.data }

// Base64 returns the binary payload base64 encoded.
func (d Document) Base64() string { return base64.StdEncoding.EncodeToString(d.data) }

// MIMEType returns the MIME type of a binary document, or text/plain.
func (d Document) MIMEType() string {
	if d.kind == KindText {
		return "text/plain"
	}
	return d.mimeType
}

// Filename returns the name the document was uploaded with.
func (d Document) Filename() string { return d.filename }

// Validate checks that exactly one variant is populated.
func (d Document) Validate() error {
	switch d.kind {
	case KindText:
		if strings.TrimSpace(d.text) == "" {
			return errors.NewValidationError("document", d.filename, "text document is empty")
		}
	case KindBinary:
		if len(d.data) == 0 {
			return errors.NewValidationError("document", d.filename, "binary document is empty")
		}
		if d.mimeType == "" {
			return errors.NewValidationError("document", d.filename, "binary document needs a MIME type")
		}
	default:
		return errors.NewValidationError("document", d.filename, "document has no content")
	}
	return nil
}

// Result is what the extraction service found.
type Result struct {
	Payments   []ledger.Payment `json:"payments"`
	NewClients []ledger.Client  `json:"new_clients"`
}

// IsEmpty reports a result without payments and without clients.
func (r *Result) IsEmpty() bool {
	return r == nil || (len(r.Payments) == 0 && len(r.NewClients) == 0)
}

// TagAutomated sets the automated origin on every payment.
func (r *Result) TagAutomated() {
	for i := range r.Payments {
		r.Payments[i].Origin = ledger.OriginAutomated
	}
}

// KnownClient is the reference data sent along with the documents.
type KnownClient struct {
	ID   string `json:"id"`
	Name string `json:"nome"`
}

// Known converts clients to the reference list.
func Known(clients []ledger.Client) []KnownClient {
	out := make([]KnownClient, 0, len(clients))
	for _, c := range clients {
		out = append(out, KnownClient{ID: c.ID, Name: c.Name})
	}
	return out
}

// Extractor reads a billing list and a bank statement and returns the
// payments it could match plus clients it did not know.
type Extractor interface {
	Extract(ctx context.Context, billing, statement Document, known []ledger.Client) (*Result, error)
}

// Func adapts a function to Extractor.
type Func func(ctx context.Context, billing, statement Document, known []ledger.Client) (*Result, error)

// Extract implements Extractor.
func (f Func) Extract(ctx context.Context, billing, statement Document, known []ledger.Client) (*Result, error) {
	return f(ctx, billing, statement, known)
}

// Static returns an extractor that always yields a copy of r.
func Static(r Result) Extractor {
	return Func(func(context.Context, Document, Document, []ledger.Client) (*Result, error) {
		out := Result{
			Payments:   append([]ledger.Payment(nil), r.Payments...),
			NewClients: append([]ledger.Client(nil), r.NewClients...),
		}
		return &out, nil
	})
}
