package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/chowline/internal/models"
	"github.com/rookgm/chowline/internal/repository/postgres"
)

// unique_violation
const pgErrUniqueViolationCode = "23505"

const (
	selectMenuItemQuery = `
						SELECT id, name, description, price, available, prep_minutes FROM menu_items
						WHERE id = $1
`
	selectMenuItemsQuery = `
						SELECT id, name, description, price, available, prep_minutes FROM menu_items
						ORDER BY name
`
)

// MenuRepository reads the menu catalog. The catalog is maintained
// elsewhere; this service never writes it.
type MenuRepository struct {
	db *postgres.DB
}

// NewMenuRepository creates new MenuRepository instance
func NewMenuRepository(db *postgres.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

// GetMenuItem returns one catalog item by id
func (mr *MenuRepository) GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	item := models.MenuItem{}
	var prepMinutes int32

	err := mr.db.QueryRow(ctx, selectMenuItemQuery, id).
		Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.Available, &prepMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	item.PrepTime = time.Duration(prepMinutes) * time.Minute

	return &item, nil
}

// ListMenuItems returns entire menu
func (mr *MenuRepository) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := mr.db.Query(ctx, selectMenuItemsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.MenuItem{}

	for rows.Next() {
		item := models.MenuItem{}
		var prepMinutes int32
		err = rows.Scan(&item.ID, &item.Name, &item.Description, &item.Price, &item.Available, &prepMinutes)
		if err != nil {
			continue
		}
		item.PrepTime = time.Duration(prepMinutes) * time.Minute
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
