package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bestcars/dealership-engine/pkg/models"
	"github.com/bestcars/dealership-engine/pkg/services"
)

// CarsResponse is the body of GET /djangoapp/get_cars.
type CarsResponse struct {
	CarModels []models.CarListing `json:"CarModels"`
}

// CarsHandler serves the local car catalog.
type CarsHandler struct {
	catalog services.CatalogService
	logger  *zap.Logger
}

// NewCarsHandler creates a new cars handler.
func NewCarsHandler(catalog services.CatalogService, logger *zap.Logger) *CarsHandler {
	return &CarsHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers the cars handler's routes on the given mux.
func (h *CarsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /djangoapp/get_cars", h.GetCars)
}

// GetCars handles GET /djangoapp/get_cars, seeding the catalog on first use.
func (h *CarsHandler) GetCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.catalog.ListCars(r.Context())
	if err != nil {
		h.logger.Error("Failed to list cars", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "Failed to load car catalog"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, CarsResponse{CarModels: cars}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
