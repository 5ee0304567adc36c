package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/agentstation/concilia/pkg/errors"
)

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{Resource: "client", ID: "42"}
		assert.Equal(t, "client with ID 42 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		wrapped := fmt.Errorf("toggle: %w", pkgerrors.NewNotFoundError("client", "7"))
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("month", 13, "must be between 1 and 12")
		assert.Equal(t, "validation failed for field month: must be between 1 and 12", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "empty batch"}
		assert.Equal(t, "validation failed: empty batch", err.Error())
	})
}

func TestUnsupportedDocumentError(t *testing.T) {
	err := pkgerrors.NewUnsupportedDocumentError("photo.png", "image/png")
	assert.Contains(t, err.Error(), "photo.png")
	assert.Contains(t, err.Error(), "image/png")
	assert.True(t, pkgerrors.IsUnsupportedDocument(err))
	assert.False(t, pkgerrors.IsNothingExtracted(err))

	bare := pkgerrors.NewUnsupportedDocumentError("notes.docx", "")
	assert.Equal(t, `unsupported document "notes.docx"`, bare.Error())
}

func TestInvariantError(t *testing.T) {
	err := pkgerrors.NewInvariantError("unique-cell", "2 payments for 1/3/2025", nil)
	assert.True(t, pkgerrors.IsInvariant(err))
	assert.Contains(t, err.Error(), "unique-cell")

	ineligible := fmt.Errorf("toggle 1/1/2020: %w", pkgerrors.ErrIneligibleCell)
	assert.True(t, pkgerrors.IsInvariant(ineligible))
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		rateLimit bool
		down      bool
	}{
		{"rate limited", 429, true, false},
		{"server error", 503, false, true},
		{"bad request", 400, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkgerrors.NewAPIError("gemini", tt.status, "boom")
			assert.Equal(t, tt.rateLimit, pkgerrors.IsRateLimited(err))
			assert.Equal(t, tt.down, errors.Is(err, pkgerrors.ErrProviderUnavailable))
			assert.Contains(t, err.Error(), "gemini")
		})
	}

	base := errors.New("connection reset")
	wrapped := pkgerrors.WrapAPI("gemini", 0, base)
	assert.ErrorIs(t, wrapped, base)
	assert.Nil(t, pkgerrors.WrapAPI("gemini", 0, nil))
}

func TestMergeError(t *testing.T) {
	base := errors.New("disk full")
	err := pkgerrors.NewMergeError("batch-1", base)
	assert.Contains(t, err.Error(), "batch-1")
	assert.ErrorIs(t, err, base)
}

func TestWrapHelpers(t *testing.T) {
	base := errors.New("eof")

	ioErr := pkgerrors.WrapIO("get", "concilia_ia_v1", base)
	var target *pkgerrors.IOError
	assert.ErrorAs(t, ioErr, &target)
	assert.Equal(t, "get", target.Operation)
	assert.ErrorIs(t, ioErr, base)

	parseErr := pkgerrors.WrapParse("json", "state.json", base)
	assert.Contains(t, parseErr.Error(), "state.json")

	assert.Nil(t, pkgerrors.WrapIO("get", "x", nil))
	assert.Nil(t, pkgerrors.WrapParse("json", "", nil))
	assert.Nil(t, pkgerrors.WrapValidation("f", nil))
	assert.True(t, pkgerrors.IsValidationError(pkgerrors.WrapValidation("f", base)))
}

func TestTimeoutError(t *testing.T) {
	err := pkgerrors.NewTimeoutError("extract", "2m0s", "no response")
	assert.True(t, pkgerrors.IsTimeout(err))
	assert.Contains(t, err.Error(), "2m0s")
}
