package handlers

import (
	"fmt"
	"net/http"

	apierrors "github.com/pribylovaa/music-catalog/internal/errors"
	"github.com/pribylovaa/music-catalog/internal/models"
	"github.com/pribylovaa/music-catalog/internal/service"
)

func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in models.AuthRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("%w: %w", service.ErrInvalidRequest, err))
		return
	}

	if _, err := h.svc.RegisterUser(r.Context(), in.Email, in.Password); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.RegisterResponse{
		Done:    true,
		Message: "User registered successfully",
	})
}

// LoginUser выдаёт пару токенов двумя каналами: в cookie и в теле ответа.
func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in models.AuthRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("%w: %w", service.ErrInvalidRequest, err))
		return
	}

	pair, _, err := h.svc.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.cookies.Set(w, r, pair)
	writeJSON(w, http.StatusOK, models.TokensFromPair(pair))
}

// RefreshToken принимает refresh-токен только из cookie; заголовок Authorization не читается.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var refresh string
	if c, err := r.Cookie(models.RefreshTokenCookie); err == nil {
		refresh = c.Value
	}

	pair, _, err := h.svc.RefreshToken(r.Context(), refresh)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.cookies.Set(w, r, pair)
	writeJSON(w, http.StatusOK, models.TokensFromPair(pair))
}

// Logout очищает обе cookie и всегда отвечает 200.
// Выпущенные ранее токены остаются действительными до истечения срока.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w, r)
	w.WriteHeader(http.StatusOK)
}
