package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pnpstats/adminapi/core/actions"
	"github.com/pnpstats/adminapi/core/storage"
)

// handleActionTemplate returns the input template of an action handler,
// so clients know which fields the action expects.
func (a *API) handleActionTemplate(handlerID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		template, ok := a.actions.Template(handlerID)
		if !ok {
			writeError(w, http.StatusNotFound, "action handler not registered")
			return
		}
		if template == nil {
			template = map[string]any{}
		}
		writeJSON(w, http.StatusOK, template)
	}
}

// handleAction dispatches an action invocation. Detail actions resolve
// their record first and fail with 404 when it is gone. A choices_field
// parameter turns the request into a choices lookup instead.
func (a *API) handleAction(key, name, handlerID string, detail bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.serveChoices(w, r, key, storage.ListOptions{Filters: map[string]any{}}) {
			return
		}

		if !a.actions.Has(handlerID) {
			writeError(w, http.StatusNotFound, "action handler not registered")
			return
		}

		input, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req := actions.Request{Model: key, Input: input}

		if detail {
			record, err := a.store.Get(r.Context(), key, chi.URLParam(r, "id"))
			if err != nil {
				a.respondStoreError(w, key, err)
				return
			}
			req.Record = record
		}

		result, err := a.actions.Call(r.Context(), handlerID, req)
		if err != nil {
			a.logger.Warn().
				Err(err).
				Str("model", key).
				Str("action", name).
				Str("handler", handlerID).
				Msg("action failed")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if a.metrics != nil {
			a.metrics.ActionsTotal.WithLabelValues(name, handlerID).Inc()
		}

		writeJSON(w, http.StatusOK, result)
	}
}
