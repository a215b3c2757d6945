package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/music-catalog/internal/errors"
	"github.com/pribylovaa/music-catalog/internal/http/middleware"
	"github.com/pribylovaa/music-catalog/internal/models"
	"github.com/pribylovaa/music-catalog/internal/service"
)

// Me возвращает профиль пользователя, установленного middleware.RequireAuth.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return
	}

	profile, err := h.svc.Profile(r.Context(), id.SubjectID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ProfileToResponse(profile))
}
