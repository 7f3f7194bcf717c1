package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

// submitUpload accepts the multipart file as a new attempt before answering;
// the backend calls run in the background. Progress is observed on
// /v1/upload/events.
func (rt *Router) submitUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file exceeds upload limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", err))
		return
	}

	run, err := rt.uploads.Begin(domain.FileFromBytes(fileHeader.Filename, data))
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap := rt.uploads.Snapshot()
	rt.runInBackground(r, "submit", run)
	writeJSON(w, http.StatusAccepted, snap)
}

func (rt *Router) confirmUpload(w http.ResponseWriter, r *http.Request) {
	if snap := rt.uploads.Snapshot(); snap.State != domain.UploadAwaitingDecision {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "confirm overwrite", fmt.Errorf("upload is %s", snap.State)))
		return
	}
	rt.runInBackground(r, "confirm overwrite", rt.uploads.ConfirmOverwrite)
	writeJSON(w, http.StatusAccepted, rt.uploads.Snapshot())
}

func (rt *Router) cancelUpload(w http.ResponseWriter, r *http.Request) {
	if err := rt.uploads.CancelOverwrite(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.uploads.Snapshot())
}

func (rt *Router) runInBackground(r *http.Request, op string, fn func(context.Context) error) {
	requestID := requestIDFromContext(r.Context())
	ctx := context.WithValue(rt.baseCtx, requestIDContextKey{}, requestID)
	go func() {
		if err := fn(ctx); err != nil {
			slog.Warn("upload_background_failed", "request_id", requestID, "operation", op, "error", err)
		}
	}()
}
