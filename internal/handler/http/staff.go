package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rookgm/chowline/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

// StaffHandler issues staff bearer tokens. Staff identity management is
// external; this service only checks one configured credential.
type StaffHandler struct {
	login        string
	passwordHash string
	token        *auth.AuthToken
}

// NewStaffHandler creates new StaffHandler instance
func NewStaffHandler(login, passwordHash string, token *auth.AuthToken) *StaffHandler {
	return &StaffHandler{
		login:        login,
		passwordHash: passwordHash,
		token:        token,
	}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login verifies the staff credential and returns a bearer token
// 200 — token issued
// 401 — invalid login or password
func (sh *StaffHandler) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if req.Login != sh.login {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(sh.passwordHash), []byte(req.Password)); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		tokenString, err := sh.token.CreateToken(req.Login)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, loginResponse{Token: tokenString})
	}
}
