package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spendtrail/spendtrail/internal/api/middleware"
	"github.com/spendtrail/spendtrail/internal/logger"
	"github.com/spendtrail/spendtrail/internal/model"
	"github.com/spendtrail/spendtrail/internal/normalize"
	"github.com/spendtrail/spendtrail/internal/pipeline"
	"github.com/spendtrail/spendtrail/internal/store"
)

// TransactionsHandler serves /api/transactions.
type TransactionsHandler struct {
	pipeline  *pipeline.Pipeline
	store     store.Store
	maxUpload int64
	now       func() time.Time
}

// NewTransactionsHandler creates a handler. maxUpload is in bytes.
func NewTransactionsHandler(p *pipeline.Pipeline, st store.Store, maxUpload int64) *TransactionsHandler {
	return &TransactionsHandler{pipeline: p, store: st, maxUpload: maxUpload, now: time.Now}
}

type transactionJSON struct {
	ID          string      `json:"_id"`
	UserID      string      `json:"userId"`
	Date        time.Time   `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Type        string      `json:"type"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type summaryJSON struct {
	Category string      `json:"_id"`
	Total    json.Number `json:"total"`
	Count    int         `json:"count"`
}

// Upload handles POST /api/transactions/upload.
func (h *TransactionsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	owner, _ := middleware.OwnerFrom(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Msg("reading upload")
		middleware.WriteError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	out, err := h.pipeline.Run(ctx, owner, header.Filename, data)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrUnreadable):
		log.Info().Err(err).Str("file", header.Filename).Msg("rejected upload")
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported or unreadable file")
		return
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		log.Info().Str("file", header.Filename).Msg("upload canceled by client")
		return
	default:
		log.Error().Err(err).Str("file", header.Filename).Msg("upload failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Server error")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Upload successful",
		"saved":   out.Saved,
	})
}

// List handles GET /api/transactions.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFrom(r.Context())
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}

	recs, err := h.store.List(r.Context(), owner, rng)
	if err != nil {
		h.serverError(w, r, err, "listing transactions")
		return
	}

	out := make([]transactionJSON, len(recs))
	for i, rec := range recs {
		out[i] = transactionJSON{
			ID:          rec.ID.String(),
			UserID:      rec.Owner,
			Date:        rec.Date,
			Description: rec.Description,
			Amount:      json.Number(rec.Amount.String()),
			Category:    string(rec.Category),
			Type:        string(rec.Direction),
			CreatedAt:   rec.CreatedAt,
		}
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// Summary handles GET /api/transactions/summary.
func (h *TransactionsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFrom(r.Context())
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}

	totals, err := h.store.Summary(r.Context(), owner, rng)
	if err != nil {
		h.serverError(w, r, err, "summarizing transactions")
		return
	}

	out := make([]summaryJSON, len(totals))
	for i, t := range totals {
		out[i] = summaryJSON{Category: string(t.Category), Total: json.Number(t.Total.String()), Count: t.Count}
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// Export handles GET /api/transactions/export.
func (h *TransactionsHandler) Export(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFrom(r.Context())
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}

	recs, err := h.store.List(r.Context(), owner, rng)
	if err != nil {
		h.serverError(w, r, err, "exporting transactions")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expense_report_%d.csv"`, h.now().UnixMilli()))
	if err := store.WriteCSV(w, recs); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("writing export")
	}
}

// DeleteAll handles DELETE /api/transactions/all.
func (h *TransactionsHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	owner, _ := middleware.OwnerFrom(r.Context())
	n, err := h.store.DeleteAll(r.Context(), owner)
	if err != nil {
		h.serverError(w, r, err, "deleting transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "All transactions deleted",
		"deleted": n,
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *TransactionsHandler) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := logger.FromContext(r.Context())
	log.Error().Err(err).Msg(msg)
	middleware.WriteError(w, http.StatusInternalServerError, "Server error")
}

// dateRange reads startDate and endDate. The range only applies when both
// are present; otherwise every record matches.
func dateRange(w http.ResponseWriter, r *http.Request) (model.DateRange, bool) {
	q := r.URL.Query()
	start, end := q.Get("startDate"), q.Get("endDate")
	if start == "" || end == "" {
		return model.DateRange{}, true
	}
	from, okFrom := normalize.Date(start)
	to, okTo := normalize.Date(end)
	if !okFrom || !okTo {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date range")
		return model.DateRange{}, false
	}
	return model.DateRange{From: from, To: to}, true
}
