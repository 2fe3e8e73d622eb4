package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/bestcars/dealership-engine/pkg/apperrors"
	"github.com/bestcars/dealership-engine/pkg/audit"
	"github.com/bestcars/dealership-engine/pkg/auth"
	"github.com/bestcars/dealership-engine/pkg/jsonutil"
	"github.com/bestcars/dealership-engine/pkg/models"
	"github.com/bestcars/dealership-engine/pkg/services"
)

// maxReviewBodyBytes caps the size of a posted review.
const maxReviewBodyBytes = 1 << 20

// MsgReviewPostFailed is returned when the backend rejects or cannot take a review.
const MsgReviewPostFailed = "Error in posting review"

// DealersResponse is the body of GET /djangoapp/get_dealers[/{state}].
type DealersResponse struct {
	Status  int               `json:"status"`
	Dealers []json.RawMessage `json:"dealers"`
}

// DealerResponse is the body of GET /djangoapp/dealer/{dealer_id}.
type DealerResponse struct {
	Status int             `json:"status"`
	Dealer json.RawMessage `json:"dealer"`
}

// ReviewsResponse is the body of GET /djangoapp/reviews/dealer/{dealer_id}.
type ReviewsResponse struct {
	Status  int             `json:"status"`
	Reviews []models.Review `json:"reviews"`
}

// DealersHandler proxies dealer and review requests to the dealer backend.
type DealersHandler struct {
	dealers services.DealerService
	auditor *audit.SecurityAuditor
	logger  *zap.Logger
}

// NewDealersHandler creates a new dealers handler.
func NewDealersHandler(dealers services.DealerService, auditor *audit.SecurityAuditor, logger *zap.Logger) *DealersHandler {
	return &DealersHandler{
		dealers: dealers,
		auditor: auditor,
		logger:  logger,
	}
}

// RegisterRoutes registers the dealers handler's routes on the given mux.
func (h *DealersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /djangoapp/get_dealers", h.ListDealers)
	mux.HandleFunc("GET /djangoapp/get_dealers/{state}", h.ListDealers)
	mux.HandleFunc("GET /djangoapp/dealer/{dealer_id}", h.GetDealer)
	mux.HandleFunc("GET /djangoapp/reviews/dealer/{dealer_id}", h.ListReviews)
	mux.HandleFunc("POST /djangoapp/add_review", h.AddReview)
}

// ListDealers handles GET /djangoapp/get_dealers and /djangoapp/get_dealers/{state}.
func (h *DealersHandler) ListDealers(w http.ResponseWriter, r *http.Request) {
	state := r.PathValue("state")
	if state == "" {
		state = services.AllStates
	}

	dealers, err := h.dealers.ListDealers(r.Context(), state)
	if err != nil {
		h.upstreamError(w, "Failed to fetch dealers", err, zap.String("state", state))
		return
	}

	h.writeJSON(w, http.StatusOK, DealersResponse{Status: http.StatusOK, Dealers: dealers})
}

// GetDealer handles GET /djangoapp/dealer/{dealer_id}.
func (h *DealersHandler) GetDealer(w http.ResponseWriter, r *http.Request) {
	dealerID, ok := ParseDealerID(w, r, h.logger)
	if !ok {
		return
	}

	dealer, err := h.dealers.GetDealer(r.Context(), dealerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeStatus(w, http.StatusNotFound, "Dealer not found")
			return
		}
		h.upstreamError(w, "Failed to fetch dealer", err, zap.Int("dealer_id", dealerID))
		return
	}

	h.writeJSON(w, http.StatusOK, DealerResponse{Status: http.StatusOK, Dealer: dealer})
}

// ListReviews handles GET /djangoapp/reviews/dealer/{dealer_id}.
func (h *DealersHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	dealerID, ok := ParseDealerID(w, r, h.logger)
	if !ok {
		return
	}

	reviews, err := h.dealers.ListReviews(r.Context(), dealerID)
	if err != nil {
		h.upstreamError(w, "Failed to fetch reviews", err, zap.Int("dealer_id", dealerID))
		return
	}

	h.writeJSON(w, http.StatusOK, ReviewsResponse{Status: http.StatusOK, Reviews: reviews})
}

// AddReview handles POST /djangoapp/add_review. Only logged-in users may post;
// the body is forwarded to the backend byte for byte.
func (h *DealersHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	if !auth.IsAuthenticated(r.Context()) {
		h.auditor.LogUnauthorizedReview(r.Context(), clientIP(r))
		h.writeStatus(w, http.StatusForbidden, MsgUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReviewBodyBytes))
	if err != nil {
		h.writeStatus(w, http.StatusBadRequest, "Review body could not be read")
		return
	}
	if !jsonutil.IsObject(body) {
		h.writeStatus(w, http.StatusBadRequest, "Review must be a JSON object")
		return
	}

	if _, err := h.dealers.AddReview(r.Context(), body); err != nil {
		h.logger.Error("Failed to post review",
			zap.Int("bytes", len(body)),
			zap.Error(err))
		h.writeStatus(w, http.StatusBadGateway, MsgReviewPostFailed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"status": http.StatusOK})
}

// upstreamError maps a service failure to a response. Upstream failures are
// 502; anything else is a local 500.
func (h *DealersHandler) upstreamError(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	h.logger.Error(msg, fields...)

	if errors.Is(err, apperrors.ErrUpstreamUnavailable) {
		h.writeStatusError(w, http.StatusBadGateway, MsgUpstreamFailed)
		return
	}
	h.writeStatusError(w, http.StatusInternalServerError, MsgInternalError)
}

func (h *DealersHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	if err := WriteJSON(w, status, body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *DealersHandler) writeStatus(w http.ResponseWriter, status int, message string) {
	if err := StatusResponse(w, status, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *DealersHandler) writeStatusError(w http.ResponseWriter, status int, message string) {
	if err := StatusErrorResponse(w, status, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
