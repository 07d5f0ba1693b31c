package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PagePermission grants or denies access to one front-end page.
type PagePermission struct {
	Page      string `bson:"page" json:"page"`
	PageName  string `bson:"pageName" json:"pageName"`
	Route     string `bson:"route" json:"route"`
	HasAccess bool   `bson:"hasAccess" json:"hasAccess"`
}

type Role struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Permissions []PagePermission   `bson:"permissions" json:"permissions"`
	IsDefault   bool               `bson:"isDefault" json:"isDefault"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (r Role) EntryID() primitive.ObjectID { return r.ID }
func (r Role) EntryActive() bool           { return r.IsActive }

// CanAccess reports whether the role grants the named page.
func (r Role) CanAccess(page string) bool {
	for _, p := range r.Permissions {
		if p.Page == page {
			return p.HasAccess
		}
	}
	return false
}
