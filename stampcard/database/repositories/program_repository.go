package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/stampcard-app/stampcard/stampcard/database/models"
	"github.com/uptrace/bun"
)

var (
	ErrProgramNotFound = errors.New("program not found")
)

const (
	programCacheSize   = 1024
	programCacheExpiry = 5 * time.Minute
)

type ProgramRepository interface {
	Create(ctx context.Context, program *models.Program) error
	GetByID(ctx context.Context, id string) (*models.Program, error)
	GetByCode(ctx context.Context, code string) (*models.Program, error)
	GetAll(ctx context.Context) ([]*models.Program, error)
	UpdateImageURL(ctx context.Context, id, imageURL string) error
	Delete(ctx context.Context, id string) error
}

type programRepository struct {
	db    *bun.DB
	cache *lru.Cache
}

type cachedProgram struct {
	program   *models.Program
	timestamp time.Time
}

func NewProgramRepository(db *bun.DB) ProgramRepository {
	cache, _ := lru.New(programCacheSize)
	return &programRepository{db: db, cache: cache}
}

func (r *programRepository) Create(ctx context.Context, program *models.Program) error {
	program.CreatedAt = time.Now()
	program.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(program).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create program: %w", err)
	}
	r.cache.Add(program.ID, cachedProgram{program: program, timestamp: time.Now()})
	return nil
}

// GetByID serves the check-in validation path, which re-fetches the
// program on every attempt to read its secret code. Entries are cached
// with a TTL; programs are immutable from the app's perspective so a
// slightly stale read is harmless.
func (r *programRepository) GetByID(ctx context.Context, id string) (*models.Program, error) {
	if v, ok := r.cache.Get(id); ok {
		entry := v.(cachedProgram)
		if time.Since(entry.timestamp) < programCacheExpiry {
			return entry.program, nil
		}
		r.cache.Remove(id)
	}

	program := new(models.Program)
	err := r.db.NewSelect().
		Model(program).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		slog.Error("Database error when getting program",
			slog.String("type", "db"),
			slog.String("operation", "GetByID"),
			slog.String("program_id", id),
			slog.Any("error", err))
		return nil, err
	}

	r.cache.Add(id, cachedProgram{program: program, timestamp: time.Now()})
	return program, nil
}

// GetByCode returns the oldest program with the given join code.
// Duplicate codes are possible; first match wins.
func (r *programRepository) GetByCode(ctx context.Context, code string) (*models.Program, error) {
	program := new(models.Program)
	err := r.db.NewSelect().
		Model(program).
		Where("code = ?", code).
		Order("created_at ASC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}

	return program, nil
}

func (r *programRepository) GetAll(ctx context.Context) ([]*models.Program, error) {
	var programs []*models.Program
	err := r.db.NewSelect().
		Model(&programs).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *programRepository) UpdateImageURL(ctx context.Context, id, imageURL string) error {
	result, err := r.db.NewUpdate().
		Model((*models.Program)(nil)).
		Set("image_url = ?", imageURL).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrProgramNotFound
	}

	r.cache.Remove(id)
	return err
}

func (r *programRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Program)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrProgramNotFound
	}

	r.cache.Remove(id)
	return err
}
