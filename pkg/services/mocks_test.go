package services

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bestcars/dealership-engine/pkg/apperrors"
	"github.com/bestcars/dealership-engine/pkg/jsonutil"
	"github.com/bestcars/dealership-engine/pkg/models"
	"github.com/bestcars/dealership-engine/pkg/upstream"
)

// mockUserRepository is an in-memory UserRepository.
type mockUserRepository struct {
	users map[string]*models.User

	existsErr      error
	createErr      error
	getErr         error
	lastLoginErr   error
	lastLoginCalls int

	capturedUser *models.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*models.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.capturedUser = user
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	user, ok := m.users[username]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.users[username]
	return ok, nil
}

func (m *mockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	m.lastLoginCalls++
	return m.lastLoginErr
}

// mockCatalogRepository records seeding calls against an in-memory catalog.
type mockCatalogRepository struct {
	makes     int
	cars      []models.CarListing
	countErr  error
	seedErr   error
	listErr   error
	seedCalls int
}

func (m *mockCatalogRepository) CountMakes(ctx context.Context) (int, error) {
	return m.makes, m.countErr
}

func (m *mockCatalogRepository) SeedIfEmpty(ctx context.Context, seeds []models.CarMakeSeed) (bool, error) {
	m.seedCalls++
	if m.seedErr != nil {
		return false, m.seedErr
	}
	if m.makes > 0 {
		return false, nil
	}
	for _, mk := range seeds {
		m.makes++
		for _, model := range mk.Models {
			m.cars = append(m.cars, models.CarListing{CarModel: model.Name, CarMake: mk.Name})
		}
	}
	return true, nil
}

func (m *mockCatalogRepository) ListCarsWithMakes(ctx context.Context) ([]models.CarListing, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.CarListing{}, m.cars...), nil
}

// sentimentOf returns the label attached to a review.
func sentimentOf(r models.Review) string {
	return jsonutil.FlexibleStringValue(r["sentiment"])
}

// mockDealerBackend returns canned bodies keyed by endpoint.
type mockDealerBackend struct {
	mu        sync.Mutex
	responses map[string]string
	getErr    error
	postErr   error
	postResp  string

	endpoints   []string
	postedBytes []byte
}

func (m *mockDealerBackend) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints = append(m.endpoints, endpoint)
	if m.getErr != nil {
		return nil, m.getErr
	}
	body, ok := m.responses[endpoint]
	if !ok {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

func (m *mockDealerBackend) PostReview(ctx context.Context, payload []byte) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postedBytes = payload
	if m.postErr != nil {
		return nil, m.postErr
	}
	return json.RawMessage(m.postResp), nil
}

// mockSentimentAnalyzer answers from a text→label table and tracks concurrency.
type mockSentimentAnalyzer struct {
	mu       sync.Mutex
	labels   map[string]string
	errs     map[string]error
	delay    time.Duration
	calls    []string
	inFlight int
	peak     int
}

func (m *mockSentimentAnalyzer) AnalyzeSentiment(ctx context.Context, text string) (*upstream.SentimentResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--

	if err, ok := m.errs[text]; ok {
		return nil, err
	}
	return &upstream.SentimentResult{Sentiment: m.labels[text]}, nil
}

// mockSentimentCache is an in-memory SentimentCache.
type mockSentimentCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	setErr  error
	sets    int
}

func newMockSentimentCache() *mockSentimentCache {
	return &mockSentimentCache{entries: make(map[string]string)}
}

func (m *mockSentimentCache) Get(ctx context.Context, text string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	label, ok := m.entries[text]
	return label, ok, nil
}

func (m *mockSentimentCache) Set(ctx context.Context, text, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[text] = label
	return nil
}
