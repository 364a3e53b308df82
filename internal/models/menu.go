package models

import (
	"time"

	"github.com/google/uuid"
)

// MenuItem is a catalog entry. Price is in minor currency units.
// The catalog is read-only for this service.
type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       int64
	Available   bool
	PrepTime    time.Duration
}
