package httpadapter

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

func (rt *Router) getSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.session.State())
}

// listDocuments re-fetches the listing. Without a search parameter the
// database view is shown with the current query.
func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	var err error
	if r.URL.Query().Has("search") {
		err = rt.session.Search(r.Context(), r.URL.Query().Get("search"))
	} else {
		err = rt.session.ShowListing(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	state := rt.session.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"search_query": state.SearchQuery,
		"documents":    state.Listing,
	})
}

// deleteDocument opens the confirmation dialog; with confirm=true it executes
// the pending delete, or deletes directly when no dialog is open for the id.
func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathDocumentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if !confirm {
		if err := rt.session.RequestDelete(id); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, rt.session.State())
		return
	}

	pending := rt.session.State().Pending
	if pending != nil && pending.Kind == domain.ConfirmDelete && pending.Target != nil && pending.Target.ID == id {
		err = rt.session.ConfirmDelete(r.Context())
	} else {
		err = rt.session.DeleteDocument(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.session.State())
}

func (rt *Router) cancelDelete(w http.ResponseWriter, r *http.Request) {
	if err := rt.session.CancelDelete(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.session.State())
}

// openTab opens a listed record, or activates it when its tab is already open.
func (rt *Router) openTab(w http.ResponseWriter, r *http.Request) {
	id, err := pathDocumentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, open := rt.session.State().Tab(id); open {
		err = rt.session.ShowDocument(id)
	} else {
		err = rt.session.OpenListed(id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.session.State())
}

func (rt *Router) closeTab(w http.ResponseWriter, r *http.Request) {
	id, err := pathDocumentID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.session.CloseTab(id)
	writeJSON(w, http.StatusOK, rt.session.State())
}

func (rt *Router) showView(w http.ResponseWriter, r *http.Request) {
	switch view := r.PathValue("view"); view {
	case "upload":
		rt.session.ShowUpload()
	case "database":
		if err := rt.session.ShowListing(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
	default:
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "show view", fmt.Errorf("unknown view %q", view)))
		return
	}
	writeJSON(w, http.StatusOK, rt.session.State())
}

func pathDocumentID(r *http.Request) (domain.DocumentID, error) {
	return domain.ParseDocumentIDString(r.PathValue("id"))
}
