package service

import (
	"context"

	"github.com/rookgm/chowline/internal/models"
)

// MenuRepository is interface for reading the menu catalog
type MenuRepository interface {
	// ListMenuItems returns entire menu
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
}

// MenuService exposes the read-only menu
type MenuService struct {
	repo MenuRepository
}

// NewMenuService creates new MenuService instance
func NewMenuService(repo MenuRepository) *MenuService {
	return &MenuService{repo: repo}
}

// List returns entire menu
func (ms *MenuService) List(ctx context.Context) ([]models.MenuItem, error) {
	return ms.repo.ListMenuItems(ctx)
}
