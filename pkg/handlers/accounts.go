package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/bestcars/dealership-engine/pkg/apperrors"
	"github.com/bestcars/dealership-engine/pkg/audit"
	"github.com/bestcars/dealership-engine/pkg/auth"
	"github.com/bestcars/dealership-engine/pkg/services"
)

// maxAccountBodyBytes caps login and registration bodies.
const maxAccountBodyBytes = 64 << 10

// Account status values returned to the frontend.
const (
	StatusAuthenticated       = "Authenticated"
	StatusFailedAuthenticated = "Failed to authenticate"
)

// LoginRequest is the body of POST /djangoapp/login.
type LoginRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /djangoapp/register.
type RegisterRequest struct {
	UserName  string `json:"userName" validate:"required,max=150"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required,max=150"`
	LastName  string `json:"lastName" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,max=254,email"`
}

// AccountResponse is returned by login and registration.
type AccountResponse struct {
	UserName string `json:"userName"`
	Status   string `json:"status"`
}

// AccountHandler handles registration, login and logout.
type AccountHandler struct {
	accounts services.AccountService
	sessions *auth.SessionManager
	auditor  *audit.SecurityAuditor
	logger   *zap.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(
	accounts services.AccountService,
	sessions *auth.SessionManager,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		sessions: sessions,
		auditor:  auditor,
		logger:   logger,
	}
}

// RegisterRoutes registers the account handler's routes on the given mux.
// Login and registration accept every method so non-POST calls get the JSON 405 body.
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/djangoapp/login", h.Login)
	mux.HandleFunc("/djangoapp/logout", h.Logout)
	mux.HandleFunc("/djangoapp/register", h.Register)
}

// Login handles POST /djangoapp/login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, MsgInvalidMethod)
		return
	}

	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.UserName, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			h.auditor.LogLoginFailure(r.Context(), req.UserName, clientIP(r))
			h.writeJSON(w, http.StatusUnauthorized, AccountResponse{
				UserName: req.UserName,
				Status:   StatusFailedAuthenticated,
			})
			return
		}
		h.logger.Error("Failed to authenticate user", zap.String("username", req.UserName), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	if err := h.sessions.Login(w, r, auth.SessionUser{ID: user.ID, Username: user.Username}); err != nil {
		h.logger.Error("Failed to establish session", zap.String("username", user.Username), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	h.auditor.LogLoginSuccess(r.Context(), user.Username, clientIP(r))
	h.writeJSON(w, http.StatusOK, AccountResponse{UserName: user.Username, Status: StatusAuthenticated})
}

// Logout handles /djangoapp/logout for any method. Logging out without a
// session still succeeds.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	username := ""
	if user, ok := auth.UserFromContext(r.Context()); ok {
		username = user.Username
	}

	if err := h.sessions.Logout(w, r); err != nil {
		h.logger.Warn("Failed to clear session", zap.Error(err))
	}

	h.auditor.LogLogout(r.Context(), username, clientIP(r))
	h.writeJSON(w, http.StatusOK, map[string]string{"userName": ""})
}

// Register handles POST /djangoapp/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, MsgInvalidMethod)
		return
	}

	var req RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Username:  req.UserName,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUsernameTaken):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{
				"userName": req.UserName,
				"error":    "Username already registered",
			})
		case errors.Is(err, apperrors.ErrEmailTaken):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{
				"email": req.Email,
				"error": "Email already registered",
			})
		case errors.Is(err, auth.ErrPasswordTooLong):
			h.writeError(w, http.StatusBadRequest, "password is too long")
		default:
			h.logger.Error("Failed to register user", zap.String("username", req.UserName), zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, MsgInternalError)
		}
		return
	}

	if err := h.sessions.Login(w, r, auth.SessionUser{ID: user.ID, Username: user.Username}); err != nil {
		h.logger.Error("Failed to establish session", zap.String("username", user.Username), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	h.auditor.LogRegistration(r.Context(), user.Username, clientIP(r))
	h.writeJSON(w, http.StatusOK, AccountResponse{UserName: user.Username, Status: StatusAuthenticated})
}

// decodeAndValidate decodes the JSON body into dst and validates it, writing
// a 400 response on failure.
func (h *AccountHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxAccountBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, MsgInvalidJSON)
		return false
	}

	if err := validateRequest(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *AccountHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	if err := WriteJSON(w, status, body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *AccountHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := ErrorResponse(w, status, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
