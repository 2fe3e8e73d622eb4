package services

import (
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bestcars/dealership-engine/pkg/models"
	"github.com/bestcars/dealership-engine/pkg/repositories"
)

//go:embed fixtures/car_catalog.yaml
var carCatalogFixture []byte

// Model years accepted by the car_models table.
const (
	MinModelYear = 2015
	MaxModelYear = 2023
)

// LoadCatalogFixture parses and validates the embedded car catalog.
func LoadCatalogFixture() ([]models.CarMakeSeed, error) {
	return ParseCatalogFixture(carCatalogFixture)
}

// ParseCatalogFixture parses a catalog document of the form {makes: [...]}.
func ParseCatalogFixture(data []byte) ([]models.CarMakeSeed, error) {
	var doc struct {
		Makes []models.CarMakeSeed `yaml:"makes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse car catalog: %w", err)
	}

	for _, m := range doc.Makes {
		if m.Name == "" {
			return nil, fmt.Errorf("car catalog: make without a name")
		}
		for _, model := range m.Models {
			if model.Name == "" {
				return nil, fmt.Errorf("car catalog: %s has a model without a name", m.Name)
			}
			if !models.IsValidCarType(model.Type) {
				return nil, fmt.Errorf("car catalog: %s %s has invalid type %q", m.Name, model.Name, model.Type)
			}
			if model.Year < MinModelYear || model.Year > MaxModelYear {
				return nil, fmt.Errorf("car catalog: %s %s year %d outside %d-%d",
					m.Name, model.Name, model.Year, MinModelYear, MaxModelYear)
			}
		}
	}

	return doc.Makes, nil
}

// CatalogService serves the local car catalog, seeding it on first use.
type CatalogService interface {
	// EnsureSeeded inserts the initial catalog when no make exists yet.
	EnsureSeeded(ctx context.Context) error
	// ListCars seeds if needed and returns every model with its make name.
	ListCars(ctx context.Context) ([]models.CarListing, error)
}

type catalogService struct {
	repo   repositories.CatalogRepository
	seeds  []models.CarMakeSeed
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service seeded from seeds.
func NewCatalogService(repo repositories.CatalogRepository, seeds []models.CarMakeSeed, logger *zap.Logger) CatalogService {
	return &catalogService{
		repo:   repo,
		seeds:  seeds,
		logger: logger.Named("catalog"),
	}
}

func (s *catalogService) EnsureSeeded(ctx context.Context) error {
	count, err := s.repo.CountMakes(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seeded, err := s.repo.SeedIfEmpty(ctx, s.seeds)
	if err != nil {
		return fmt.Errorf("failed to seed car catalog: %w", err)
	}

	if seeded {
		s.logger.Info("Seeded car catalog", zap.Int("makes", len(s.seeds)))
	}
	return nil
}

func (s *catalogService) ListCars(ctx context.Context) ([]models.CarListing, error) {
	if err := s.EnsureSeeded(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListCarsWithMakes(ctx)
}
