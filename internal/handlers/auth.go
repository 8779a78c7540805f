package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/davie-sparq/bizot/internal/database"
	"github.com/davie-sparq/bizot/internal/middleware"
)

func validatePassword(password string) string {
	if len(password) < 8 {
		return "password must be at least 8 characters"
	}
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case 'A' <= c && c <= 'Z':
			hasUpper = true
		case 'a' <= c && c <= 'z':
			hasLower = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return "password must contain uppercase, lowercase, and a digit"
	}
	return ""
}

// CredentialService is the slice of auth.Service the handlers need.
type CredentialService interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) error
	GenerateToken(userID, username string) (string, error)
}

type AuthHandler struct {
	db   *database.DB
	auth CredentialService
}

func NewAuthHandler(db *database.DB, authService CredentialService) *AuthHandler {
	return &AuthHandler{db: db, auth: authService}
}

// SetupStatus reports whether the first owner account exists yet.
func (h *AuthHandler) SetupStatus(w http.ResponseWriter, r *http.Request) {
	hasOwner, err := h.db.HasOwnerUser()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check setup status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"setup_complete": hasOwner})
}

// Setup creates the first owner account. Rejected once any user exists.
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	hasOwner, err := h.db.HasOwnerUser()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check setup status")
		return
	}
	if hasOwner {
		writeError(w, http.StatusForbidden, "setup already completed")
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 {
		writeError(w, http.StatusBadRequest, "username must be at least 3 characters")
		return
	}
	if msg := validatePassword(req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	user, err := h.db.CreateUser(req.Username, hash)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.db.LogAudit(user.ID, "setup", "auth", "user", user.ID, "Owner account created")
	if err := h.issueSession(w, r, user.ID, user.Username); err != nil {
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := h.db.GetUserByUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		h.db.LogAudit("", "login_failed", "auth", "user", "", "Failed login attempt for user: "+req.Username)
		return
	}

	h.db.LogAudit(user.ID, "login", "auth", "user", user.ID, "User logged in")
	if err := h.issueSession(w, r, user.ID, user.Username); err != nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// issueSession writes the auth cookie. On failure it writes the error
// response itself and reports it so callers skip their success body.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, userID, username string) error {
	token, err := h.auth.GenerateToken(userID, username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return err
	}
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   86400,
	})
	return nil
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	h.db.LogAudit(userID, "logout", "auth", "user", userID, "User logged out")
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.db.GetUser(userID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validatePassword(req.NewPassword); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	user, err := h.db.GetUser(userID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := h.auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	newHash, err := h.auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	_, err = h.db.Exec("UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?", newHash, time.Now().UTC(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	h.db.LogAudit(userID, "password_changed", "auth", "user", userID, "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}
