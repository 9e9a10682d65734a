package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/subtitle-studio/backend/internal/api/middleware"
	"github.com/subtitle-studio/backend/internal/auth"
	"github.com/subtitle-studio/backend/internal/db"
)

// AuthHandler issues and introspects editor tokens. There is no public
// signup; users come from the admin bootstrap.
type AuthHandler struct {
	db  *db.Database
	jwt *auth.JWTService
}

func NewAuthHandler(database *db.Database, jwt *auth.JWTService) *AuthHandler {
	return &AuthHandler{db: database, jwt: jwt}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.db.GetUserByUsername(creds.Username)
	if err != nil || !auth.CheckPassword(creds.Password, user.Password) {
		log.Printf("[auth] failed login for %q", creds.Username)
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	// models.User omits the password hash from JSON.
	respond(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.db.GetUserByID(claims.UserID)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respond(w, http.StatusOK, user)
}
