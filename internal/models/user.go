package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserTypeSuperAdmin   = "super_admin"
	UserTypeTheaterAdmin = "theater_admin"
	UserTypeTheaterUser  = "theater_user"
)

func IsValidUserType(t string) bool {
	return t == UserTypeSuperAdmin || t == UserTypeTheaterAdmin || t == UserTypeTheaterUser
}

// StaffAccess lists what a staff member may see in sales reports. An empty
// list means no restriction on that dimension.
type StaffAccess struct {
	Categories StringList `bson:"categories" json:"categories"`
	Products   StringList `bson:"products" json:"products"`
	Sections   StringList `bson:"sections" json:"sections"`
}

// Empty reports whether no assignment exists at all.
func (a StaffAccess) Empty() bool {
	return len(a.Categories) == 0 && len(a.Products) == 0 && len(a.Sections) == 0
}

// User represents a back-office staff account.
type User struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Email        string              `bson:"email" json:"email"`
	Username     string              `bson:"username" json:"username"`
	FullName     string              `bson:"fullName,omitempty" json:"fullName,omitempty"`
	PasswordHash string              `bson:"passwordHash" json:"-"`
	UserType     string              `bson:"userType" json:"userType"`
	Theater      *primitive.ObjectID `bson:"theater,omitempty" json:"theater,omitempty"`
	RoleID       *primitive.ObjectID `bson:"roleId,omitempty" json:"roleId,omitempty"`
	Access       StaffAccess         `bson:"access" json:"access"`
	IsActive     bool                `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}
