package model

import "time"

// Category is a catalog category. CRUD for categories lives outside this
// core; the orchestrator only resolves them by id.
type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}
