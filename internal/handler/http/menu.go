package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rookgm/chowline/internal/models"
)

type MenuService interface {
	// List returns entire menu
	List(ctx context.Context) ([]models.MenuItem, error)
}

// MenuHandler represents HTTP handler for menu requests
type MenuHandler struct {
	svc MenuService
}

// NewMenuHandler creates new MenuHandler instance
func NewMenuHandler(svc MenuService) *MenuHandler {
	return &MenuHandler{svc: svc}
}

type menuItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Available   bool   `json:"available"`
	PrepMinutes int    `json:"prep_minutes"`
}

// ListMenu returns the menu
func (mh *MenuHandler) ListMenu() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := mh.svc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		resp := make([]menuItemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, menuItemResponse{
				ID:          item.ID.String(),
				Name:        item.Name,
				Description: item.Description,
				Price:       item.Price,
				Available:   item.Available,
				PrepMinutes: int(item.PrepTime / time.Minute),
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
