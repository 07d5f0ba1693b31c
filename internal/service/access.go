package service

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/models"
)

// Caller is the authenticated staff member behind a request.
type Caller struct {
	UserID   primitive.ObjectID
	Username string
	Role     string
	Theater  *primitive.ObjectID
}

func (c Caller) IsSuperAdmin() bool {
	return c.Role == models.UserTypeSuperAdmin
}

func (c Caller) IsTheaterAdmin() bool {
	return c.Role == models.UserTypeTheaterAdmin
}

// CanAccessTheater is true for super admins and for staff bound to theater.
func (c Caller) CanAccessTheater(theater primitive.ObjectID) bool {
	if c.IsSuperAdmin() {
		return true
	}
	return c.Theater != nil && *c.Theater == theater
}

// RequireTheater returns ACCESS_DENIED when the caller is bound to another
// theater.
func (c Caller) RequireTheater(theater primitive.ObjectID) error {
	if !c.CanAccessTheater(theater) {
		return forbidden(CodeAccessDenied, "you do not have access to this theater")
	}
	return nil
}

// ResolveTheater picks the theater a listing is scoped to: super admins may
// name one explicitly, everyone else gets the theater from their token.
func (c Caller) ResolveTheater(requested string) (primitive.ObjectID, error) {
	if c.IsSuperAdmin() && requested != "" {
		id, err := primitive.ObjectIDFromHex(requested)
		if err != nil {
			return primitive.NilObjectID, badRequest(CodeTheaterIDRequired, "theaterId is invalid")
		}
		return id, nil
	}
	if c.Theater == nil {
		return primitive.NilObjectID, badRequest(CodeTheaterIDRequired, "theater id is required")
	}
	return *c.Theater, nil
}

// DateRange is an inclusive day range; zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange reads YYYY-MM-DD bounds as calendar days in loc. The end
// date covers the whole day. A nil loc means UTC.
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	var r DateRange
	if start != "" {
		t, err := time.ParseInLocation("2006-01-02", start, loc)
		if err != nil {
			return r, badRequest(CodeInvalidDate, "startDate must be YYYY-MM-DD")
		}
		r.From = t
	}
	if end != "" {
		t, err := time.ParseInLocation("2006-01-02", end, loc)
		if err != nil {
			return r, badRequest(CodeInvalidDate, "endDate must be YYYY-MM-DD")
		}
		r.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return r, nil
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Label renders the range for report headers.
func (r DateRange) Label() string {
	switch {
	case r.From.IsZero() && r.To.IsZero():
		return "All time"
	case r.From.IsZero():
		return "Until " + r.To.Format("2006-01-02")
	case r.To.IsZero():
		return "From " + r.From.Format("2006-01-02")
	default:
		return r.From.Format("2006-01-02") + " to " + r.To.Format("2006-01-02")
	}
}
