package httpapi

import (
	"encoding/json"
	"net/http"
)

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type memberLoginRequest struct {
	LoginCode string `json:"login_code"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (r *Router) handleAdminLogin(w http.ResponseWriter, req *http.Request) {
	var body adminLoginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}
	pair, err := r.services.Auth.AdminLogin(req.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (r *Router) handleMemberLogin(w http.ResponseWriter, req *http.Request) {
	var body memberLoginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.LoginCode == "" {
		writeError(w, http.StatusBadRequest, "login_code required")
		return
	}
	pair, err := r.services.Auth.MemberLogin(req.Context(), body.LoginCode)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	var body refreshRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	pair, err := r.services.Auth.Refresh(req.Context(), body.Refresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (r *Router) handleVerifyToken(w http.ResponseWriter, req *http.Request) {
	var body verifyRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if _, err := r.services.Auth.ParseToken(req.Context(), body.Token); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "token valid"})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	var body refreshRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := r.services.Auth.Logout(req.Context(), body.Refresh); err != nil {
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
