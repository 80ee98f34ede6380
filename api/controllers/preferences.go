package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aarvika/storefront-backend/api/middleware"
	"github.com/aarvika/storefront-backend/api/responses"
	"github.com/aarvika/storefront-backend/api/validators"
	preferencessvc "github.com/aarvika/storefront-backend/internal/preferences"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/aarvika/storefront-backend/pkg/logger"
)

func PreferencesGet(svc preferencessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		prefs, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, prefs)
	}
}

func PreferencesUpdate(svc preferencessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		var body preferencessvc.PreferencesDTO
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		prefs, err := svc.Update(r.Context(), middleware.UserIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, prefs)
	}
}

// PreferencesRecordView pushes a product onto the recently-viewed list.
func PreferencesRecordView(svc preferencessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		slug := chi.URLParam(r, "productSlug")
		prefs, err := svc.RecordView(r.Context(), middleware.UserIDFromContext(r.Context()), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, prefs)
	}
}

func PreferencesClear(svc preferencessvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		if err := svc.Clear(r.Context(), middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}
