package models

import "time"

// Business is a micro-business enrolled in the product. Only the fields the
// document lifecycle needs are modeled here; the rest of the aggregate
// belongs to the out-of-scope product layer.
type Business struct {
	ID          string
	OwnerUserID string
	Name        string
	CreatedAt   time.Time
}
