package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bestcars/dealership-engine/pkg/apperrors"
	"github.com/bestcars/dealership-engine/pkg/audit"
	"github.com/bestcars/dealership-engine/pkg/auth"
	"github.com/bestcars/dealership-engine/pkg/models"
	"github.com/bestcars/dealership-engine/pkg/services"
)

const testSessionSecret = "handlers-test-secret"

func newTestSessions() *auth.SessionManager {
	return auth.NewSessionManager(testSessionSecret, time.Hour, false)
}

func newTestAuditor() *audit.SecurityAuditor {
	return audit.NewSecurityAuditor(zap.NewNop())
}

// mockAccountService is a configurable AccountService for handler tests.
type mockAccountService struct {
	user        *models.User
	registerErr error
	authErr     error

	capturedInput    services.RegisterInput
	capturedUsername string
	capturedPassword string
}

func (m *mockAccountService) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	m.capturedInput = input
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &models.User{
		ID:        uuid.New(),
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}, nil
}

func (m *mockAccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	m.capturedUsername = username
	m.capturedPassword = password
	if m.authErr != nil {
		return nil, m.authErr
	}
	if m.user != nil {
		return m.user, nil
	}
	return &models.User{ID: uuid.New(), Username: username}, nil
}

// mockCatalogService returns a fixed list of cars.
type mockCatalogService struct {
	cars  []models.CarListing
	err   error
	calls int
}

func (m *mockCatalogService) EnsureSeeded(ctx context.Context) error {
	return m.err
}

func (m *mockCatalogService) ListCars(ctx context.Context) ([]models.CarListing, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.cars, nil
}

// mockDealerService records arguments and returns canned results.
type mockDealerService struct {
	dealers []json.RawMessage
	dealer  json.RawMessage
	reviews []models.Review
	err     error
	addErr  error

	listCalls      int
	capturedState  string
	capturedID     int
	addCalls       int
	capturedReview []byte
}

func (m *mockDealerService) ListDealers(ctx context.Context, state string) ([]json.RawMessage, error) {
	m.listCalls++
	m.capturedState = state
	if m.err != nil {
		return nil, m.err
	}
	return m.dealers, nil
}

func (m *mockDealerService) GetDealer(ctx context.Context, dealerID int) (json.RawMessage, error) {
	m.capturedID = dealerID
	if m.err != nil {
		return nil, m.err
	}
	if m.dealer == nil {
		return nil, apperrors.ErrNotFound
	}
	return m.dealer, nil
}

func (m *mockDealerService) ListReviews(ctx context.Context, dealerID int) ([]models.Review, error) {
	m.capturedID = dealerID
	if m.err != nil {
		return nil, m.err
	}
	return m.reviews, nil
}

func (m *mockDealerService) AddReview(ctx context.Context, payload []byte) (json.RawMessage, error) {
	m.addCalls++
	m.capturedReview = payload
	if m.addErr != nil {
		return nil, m.addErr
	}
	return json.RawMessage(`{"status":"ok"}`), nil
}

// mockPinger is a Pinger with a fixed answer.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}
