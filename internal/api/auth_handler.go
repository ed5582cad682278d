package api

import (
	"errors"
	"net/http"

	"github.com/shaiso/kycdoc/internal/auth"
)

// Login выпускает токен администратора.
// POST /api/admin/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		Error(w, http.StatusBadRequest, ErrCodeValidation, "username and password required")
		return
	}

	res, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		Unauthorized(w, "invalid credentials")
		return
	}
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, LoginResponse{
		Token:     res.Token,
		Username:  res.Username,
		ExpiresAt: res.ExpiresAt,
	})
}

// Health — проверка живости API.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{Status: "OK", Timestamp: h.now().UTC()})
}

// Healthz — проверка готовности зависимостей (БД).
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
