package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aarvika/storefront-backend/api/middleware"
	"github.com/aarvika/storefront-backend/api/responses"
	"github.com/aarvika/storefront-backend/api/validators"
	autosavesvc "github.com/aarvika/storefront-backend/internal/autosave"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/aarvika/storefront-backend/pkg/logger"
)

type formFieldsRequest struct {
	Fields map[string]string `json:"fields" validate:"required"`
}

type formRestoreResponse struct {
	Fields   map[string]string `json:"fields"`
	Restored bool              `json:"restored"`
}

// FormRestore returns the saved draft for a form, if any.
func FormRestore(svc autosavesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "autosave service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		formID := chi.URLParam(r, "formId")

		fields, restored, err := svc.Restore(r.Context(), userID, formID, map[string]string{})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, formRestoreResponse{Fields: fields, Restored: restored})
	}
}

// FormRecord accepts a draft write. The save happens after the debounce
// window, so the handler acknowledges with 202.
func FormRecord(svc autosavesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "autosave service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		formID := chi.URLParam(r, "formId")

		var body formFieldsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Record(r.Context(), userID, formID, body.Fields); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "recorded"})
	}
}

// FormFlush persists the draft immediately, bypassing the debounce window.
func FormFlush(svc autosavesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "autosave service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		formID := chi.URLParam(r, "formId")

		var body formFieldsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SaveNow(r.Context(), userID, formID, body.Fields); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "saved"})
	}
}

func FormClear(svc autosavesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "autosave service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		formID := chi.URLParam(r, "formId")

		if err := svc.Clear(r.Context(), userID, formID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
