package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry is an item embedded in a theater container array.
type Entry interface {
	EntryID() primitive.ObjectID
	EntryActive() bool
}

// Metadata holds the derived counts stored next to a container's array.
type Metadata struct {
	TotalItems    int       `bson:"totalItems" json:"totalItems"`
	ActiveItems   int       `bson:"activeItems" json:"activeItems"`
	InactiveItems int       `bson:"inactiveItems" json:"inactiveItems"`
	LastUpdated   time.Time `bson:"lastUpdated" json:"lastUpdated"`
}

// Container is the decoded form of a per-theater container document. The
// array field name differs per collection, so the store decodes it by hand.
type Container[T Entry] struct {
	ID        primitive.ObjectID `json:"id"`
	Theater   primitive.ObjectID `json:"theater"`
	Items     []T                `json:"items"`
	Metadata  Metadata           `json:"metadata"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Find returns the item with the given id using a linear scan.
func (c Container[T]) Find(id primitive.ObjectID) (T, bool) {
	for _, item := range c.Items {
		if item.EntryID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Active returns only the active items, keeping array order.
func (c Container[T]) Active() []T {
	out := make([]T, 0, len(c.Items))
	for _, item := range c.Items {
		if item.EntryActive() {
			out = append(out, item)
		}
	}
	return out
}

// CountMetadata recomputes metadata from the array contents.
func CountMetadata[T Entry](items []T, now time.Time) Metadata {
	m := Metadata{TotalItems: len(items), LastUpdated: now}
	for _, item := range items {
		if item.EntryActive() {
			m.ActiveItems++
		} else {
			m.InactiveItems++
		}
	}
	return m
}
