package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// BulkRequest is the body of POST /notifications/bulk.
type BulkRequest struct {
	Notifications []notifications.Request `json:"notifications"`
}

func outcomeStatus(out notifications.Outcome) int {
	if out.State == notifications.OutcomeDeferred {
		return http.StatusAccepted
	}
	return http.StatusOK
}

func (a *API) dispatch(w http.ResponseWriter, r *http.Request) {
	var req notifications.Request
	if err := a.decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	out, err := a.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, outcomeStatus(out), out)
}

func (a *API) dispatchBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := a.decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if len(req.Notifications) == 0 {
		a.writeError(w, r, invalid("notifications must not be empty"))
		return
	}
	if len(req.Notifications) > a.maxBulk {
		a.writeError(w, r, invalid("at most "+strconv.Itoa(a.maxBulk)+" notifications per request"))
		return
	}

	writeData(w, http.StatusOK, a.dispatcher.DispatchBulk(r.Context(), req.Notifications))
}

func (a *API) dispatchTemplate(w http.ResponseWriter, r *http.Request) {
	var req notifications.TemplateRequest
	if err := a.decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	out, err := a.dispatcher.DispatchFromTemplate(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, outcomeStatus(out), out)
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.dispatcher.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, n)
}

func (a *API) requeue(w http.ResponseWriter, r *http.Request) {
	entry, err := a.dispatcher.EnqueueRetry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusAccepted, entry)
}

func (a *API) retry(w http.ResponseWriter, r *http.Request) {
	out, err := a.dispatcher.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (a *API) sweep(w http.ResponseWriter, r *http.Request) {
	limit := a.sweepLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			a.writeError(w, r, invalid("limit must be a positive integer"))
			return
		}
		limit = n
	}

	res, err := a.dispatcher.RetryDue(r.Context(), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// getPreferences answers with the stored record, or the default policy
// the gate applies when the user has none.
func (a *API) getPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	p, err := a.preferences.Get(r.Context(), userID)
	if errors.Is(err, notifications.ErrPreferencesNotFound) {
		def := notifications.DefaultPreferences(userID)
		p, err = &def, nil
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (a *API) putPreferences(w http.ResponseWriter, r *http.Request) {
	var patch notifications.PreferencesPatch
	if err := a.decode(w, r, &patch); err != nil {
		a.writeError(w, r, err)
		return
	}

	p, err := a.preferences.Upsert(r.Context(), chi.URLParam(r, "userID"), patch)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", notifications.ErrInvalidInput, msg)
}
