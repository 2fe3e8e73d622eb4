package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bestcars/dealership-engine/pkg/database"
	"github.com/bestcars/dealership-engine/pkg/models"
)

// catalogSeedLockKey is the advisory lock key that serializes catalog seeding
// across concurrent requests and replicas.
const catalogSeedLockKey int64 = 0x6361725f73656564 // "car_seed"

// CatalogRepository defines the interface for car catalog data access.
type CatalogRepository interface {
	CountMakes(ctx context.Context) (int, error)
	// SeedIfEmpty inserts the given makes and models when no make exists yet.
	// Returns false when another caller already seeded the catalog.
	SeedIfEmpty(ctx context.Context, seeds []models.CarMakeSeed) (bool, error)
	// ListCarsWithMakes returns every model joined with its make, in insertion order.
	ListCarsWithMakes(ctx context.Context) ([]models.CarListing, error)
}

// catalogRepository implements CatalogRepository using PostgreSQL.
type catalogRepository struct {
	db *database.DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *database.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// CountMakes returns the number of car makes in the catalog.
func (r *catalogRepository) CountMakes(ctx context.Context) (int, error) {
	return countMakes(ctx, r.db)
}

func countMakes(ctx context.Context, q database.Querier) (int, error) {
	var count int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM car_makes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count car makes: %w", err)
	}
	return count, nil
}

// SeedIfEmpty seeds the catalog inside one transaction holding an advisory lock,
// re-checking emptiness under the lock.
func (r *catalogRepository) SeedIfEmpty(ctx context.Context, seeds []models.CarMakeSeed) (bool, error) {
	seeded := false

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, catalogSeedLockKey); err != nil {
			return fmt.Errorf("failed to acquire seed lock: %w", err)
		}

		count, err := countMakes(ctx, tx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		for _, carMake := range seeds {
			makeID, err := insertMake(ctx, tx, carMake)
			if err != nil {
				return err
			}
			for _, model := range carMake.Models {
				if err := insertModel(ctx, tx, makeID, model); err != nil {
					return err
				}
			}
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return seeded, nil
}

func insertMake(ctx context.Context, q database.Querier, seed models.CarMakeSeed) (int64, error) {
	query := `
		INSERT INTO car_makes (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id int64
	if err := q.QueryRow(ctx, query, seed.Name, seed.Description).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert car make %q: %w", seed.Name, err)
	}
	return id, nil
}

func insertModel(ctx context.Context, q database.Querier, makeID int64, seed models.CarModelSeed) error {
	query := `
		INSERT INTO car_models (car_make_id, name, type, year, dealer_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (car_make_id, name) DO NOTHING`

	if _, err := q.Exec(ctx, query, makeID, seed.Name, seed.Type, seed.Year, seed.DealerID); err != nil {
		return fmt.Errorf("failed to insert car model %q: %w", seed.Name, err)
	}
	return nil
}

// ListCarsWithMakes returns one listing per model, ordered by model id.
func (r *catalogRepository) ListCarsWithMakes(ctx context.Context) ([]models.CarListing, error) {
	query := `
		SELECT m.name, mk.name
		FROM car_models m
		JOIN car_makes mk ON mk.id = m.car_make_id
		ORDER BY m.id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	defer rows.Close()

	cars := make([]models.CarListing, 0)
	for rows.Next() {
		var car models.CarListing
		if err := rows.Scan(&car.CarModel, &car.CarMake); err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cars: %w", err)
	}

	return cars, nil
}
