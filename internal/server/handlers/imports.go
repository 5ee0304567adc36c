package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/agentstation/concilia/internal/documents"
	"github.com/agentstation/concilia/internal/server/events"
	"github.com/agentstation/concilia/internal/server/response"
	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/extract"
	"github.com/agentstation/concilia/pkg/logging"
	"github.com/agentstation/concilia/pkg/reconcile"
)

// CommitView is the answer to a commit.
type CommitView struct {
	BatchID string            `json:"batch_id"`
	Summary string            `json:"summary"`
	Result  *reconcile.Result `json:"result"`
}

// HandleCreateImport handles POST /api/v1/imports.
// @Summary Preview import
// @Description Upload a billing list and a bank statement; returns the extracted batch and the would-be merge
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param billing formData file true "Billing list (.xlsx, .xls, .csv, .txt, .pdf)"
// @Param statement formData file true "Bank statement (.xlsx, .xls, .csv, .txt, .pdf)"
// @Success 201 {object} response.Response{data=importer.Preview}
// @Failure 400 {object} response.Response{error=response.Error}
// @Failure 415 {object} response.Response{error=response.Error}
// @Failure 422 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/imports [post].
func (h *Handlers) HandleCreateImport(w http.ResponseWriter, r *http.Request) {
	// Two documents plus multipart overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RequestTooLarge(w, "Each document must be smaller than the upload limit")
			return
		}
		response.BadRequest(w, "Invalid multipart form", err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	billing, err := h.formDocument(r, "billing")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	statement, err := h.formDocument(r, "statement")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	preview, err := h.client.PreviewImport(r.Context(), billing, statement)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.previews.Put(preview)

	h.broker.Publish(events.ImportPreviewed, map[string]any{
		"batch_id": preview.BatchID,
		"summary":  preview.DryRun.Summary(),
	})
	response.Created(w, preview)
}

// HandleGetImport handles GET /api/v1/imports/{id}.
// @Summary Get pending import
// @Tags imports
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Response{data=importer.Preview}
// @Failure 404 {object} response.Response{error=response.Error}
// @Router /api/v1/imports/{id} [get].
func (h *Handlers) HandleGetImport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	preview, ok := h.previews.Get(id)
	if !ok {
		response.NotFound(w, "Import not found or expired", id)
		return
	}
	response.OK(w, preview)
}

// HandleCommitImport handles POST /api/v1/imports/{id}/commit.
// @Summary Commit import
// @Description Merge a pending preview into the ledger; manual payments are kept
// @Tags imports
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Response{data=CommitView}
// @Failure 404 {object} response.Response{error=response.Error}
// @Security ApiKeyAuth
// @Router /api/v1/imports/{id}/commit [post].
func (h *Handlers) HandleCommitImport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	preview, ok := h.previews.Take(id)
	if !ok {
		response.NotFound(w, "Import not found or expired", id)
		return
	}

	ctx := logging.WithImport(r.Context(), id)
	res, err := h.client.CommitImport(ctx, preview)
	if err != nil {
		h.previews.Put(preview)
		h.fail(w, r.WithContext(ctx), err)
		return
	}

	view := CommitView{BatchID: id, Summary: res.Summary(), Result: res}
	h.broker.Publish(events.ImportCommitted, map[string]any{
		"batch_id": id,
		"summary":  res.Changeset.Summary(),
	})
	response.OK(w, view)
}

func (h *Handlers) formDocument(r *http.Request, field string) (extract.Document, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return extract.Document{}, errors.NewValidationError(field, nil, "file is required")
	}
	defer func() { _ = file.Close() }()

	data, err := readPart(file, header, h.maxUpload)
	if err != nil {
		return extract.Document{}, err
	}
	return documents.Prepare(header.Filename, data)
}

func readPart(file multipart.File, header *multipart.FileHeader, limit int64) ([]byte, error) {
	if header.Size > limit {
		return nil, errors.NewValidationError(header.Filename, header.Size, "file exceeds the upload limit")
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, errors.WrapIO("read", header.Filename, err)
	}
	return data, nil
}
