package service

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/logger"
	"canteen/internal/models"
	"canteen/internal/store"
)

// Page is one front-end screen a role can be granted.
type Page struct {
	Page     string
	PageName string
	Route    string
}

// Pages is the registry of every screen in the admin front end.
var Pages = []Page{
	{Page: "dashboard", PageName: "Dashboard", Route: "/theater-dashboard/:theaterId"},
	{Page: "orders", PageName: "Order History", Route: "/theater-order-history/:theaterId"},
	{Page: "online-pos", PageName: "Online POS", Route: "/online-pos/:theaterId"},
	{Page: "products", PageName: "Products", Route: "/theater-products/:theaterId"},
	{Page: "categories", PageName: "Categories", Route: "/theater-categories/:theaterId"},
	{Page: "product-types", PageName: "Product Types", Route: "/theater-product-types/:theaterId"},
	{Page: "stock", PageName: "Stock Management", Route: "/theater-stock-management/:theaterId"},
	{Page: "qr-management", PageName: "QR Management", Route: "/theater-qr-management/:theaterId"},
	{Page: "qr-names", PageName: "QR Code Names", Route: "/theater-qr-code-names/:theaterId"},
	{Page: "reports", PageName: "Reports", Route: "/theater-reports/:theaterId"},
	{Page: "settings", PageName: "Settings", Route: "/theater-settings/:theaterId"},
	{Page: "roles", PageName: "Roles", Route: "/theater-roles/:theaterId"},
	{Page: "theater-users", PageName: "Theater Users", Route: "/theater-user-management/:theaterId"},
	{Page: "messages", PageName: "Messages", Route: "/theater-messages/:theaterId"},
	{Page: "theaters", PageName: "Theaters", Route: "/theaters"},
	{Page: "add-theater", PageName: "Add Theater", Route: "/add-theater"},
	{Page: "user-management", PageName: "User Management", Route: "/user-management"},
	{Page: "role-management", PageName: "Role Management", Route: "/role-management"},
}

// adminOnlyPages are super admin screens never granted to a theater role.
var adminOnlyPages = map[string]bool{
	"theaters":        true,
	"add-theater":     true,
	"user-management": true,
	"role-management": true,
}

const DefaultRoleName = "Theater Admin"

// DefaultRoleEditableFields are the only keys accepted when updating a
// default role.
var DefaultRoleEditableFields = []string{"permissions", "isActive"}

// DefaultTheaterAdminRole builds the role every theater starts with.
func DefaultTheaterAdminRole(now time.Time) models.Role {
	perms := make([]models.PagePermission, 0, len(Pages))
	for _, p := range Pages {
		if adminOnlyPages[p.Page] {
			continue
		}
		perms = append(perms, models.PagePermission{
			Page:      p.Page,
			PageName:  p.PageName,
			Route:     p.Route,
			HasAccess: true,
		})
	}
	return models.Role{
		ID:          primitive.NewObjectID(),
		Name:        DefaultRoleName,
		Description: "Default administrator role with access to every theater page",
		Permissions: perms,
		IsDefault:   true,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RoleUpdateCheck reports which payload keys a role update may not touch.
type RoleUpdateCheck struct {
	Allowed       bool
	BlockedFields []string
	AllowedFields []string
}

// ValidateRoleUpdate limits default roles to permissions and isActive.
// Non-default roles accept every field.
func ValidateRoleUpdate(isDefault bool, payloadKeys []string) RoleUpdateCheck {
	if !isDefault {
		return RoleUpdateCheck{Allowed: true}
	}
	allowed := make(map[string]bool, len(DefaultRoleEditableFields))
	for _, f := range DefaultRoleEditableFields {
		allowed[f] = true
	}
	var blocked []string
	for _, k := range payloadKeys {
		if !allowed[k] {
			blocked = append(blocked, k)
		}
	}
	sort.Strings(blocked)
	return RoleUpdateCheck{
		Allowed:       len(blocked) == 0,
		BlockedFields: blocked,
		AllowedFields: DefaultRoleEditableFields,
	}
}

type Roles struct {
	store store.Containers[models.Role]
	now   func() time.Time
}

func NewRoles(s store.Containers[models.Role]) *Roles {
	return &Roles{store: s, now: time.Now}
}

func (s *Roles) List(ctx context.Context, theater primitive.ObjectID, includeInactive bool) ([]models.Role, error) {
	c, err := s.store.Load(ctx, theater)
	if errors.Is(err, store.ErrNotFound) {
		return []models.Role{}, nil
	}
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return c.Items, nil
	}
	return c.Active(), nil
}

// EnsureDefaultRole returns the theater's default role, creating it on first
// call.
func (s *Roles) EnsureDefaultRole(ctx context.Context, theater primitive.ObjectID) (models.Role, bool, error) {
	c, err := s.store.Load(ctx, theater)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.Role{}, false, err
	}
	for _, r := range c.Items {
		if r.IsDefault {
			return r, false, nil
		}
	}

	role := DefaultTheaterAdminRole(s.now())
	if _, err := s.store.Create(ctx, theater, role); err != nil {
		return models.Role{}, false, err
	}
	logger.For("role").WithField("theater", theater.Hex()).Info("default theater admin role created")
	return role, true, nil
}

type RoleInput struct {
	Name        string
	Description string
	Permissions []models.PagePermission
	IsActive    *bool
}

func (s *Roles) Create(ctx context.Context, theater primitive.ObjectID, in RoleInput) (models.Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Role{}, badRequest("ROLE_NAME_REQUIRED", "role name is required")
	}
	exists, err := s.store.Exists(ctx, theater, map[string]any{"name": name, "isActive": true}, primitive.NilObjectID)
	if err != nil {
		return models.Role{}, err
	}
	if exists {
		return models.Role{}, badRequest("DUPLICATE_ROLE", "a role named %q already exists", name)
	}
	perms, err := normalizePermissions(in.Permissions)
	if err != nil {
		return models.Role{}, err
	}
	now := s.now()
	role := models.Role{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Permissions: perms,
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.store.Create(ctx, theater, role); err != nil {
		return models.Role{}, err
	}
	return role, nil
}

// Update applies payload after ValidateRoleUpdate. payload holds the raw
// request keys so a default role rejects fields even when they are empty.
func (s *Roles) Update(ctx context.Context, theater, roleID primitive.ObjectID, payload map[string]any, in RoleInput) (models.Role, error) {
	role, err := s.store.Get(ctx, theater, roleID)
	if err != nil {
		return role, err
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	check := ValidateRoleUpdate(role.IsDefault, keys)
	if !check.Allowed {
		return role, &BusinessError{
			Code:    CodeDefaultRoleUpdate,
			Message: "default roles only allow updating permissions and isActive",
			Status:  http.StatusBadRequest,
			Details: map[string]any{
				"blockedFields": check.BlockedFields,
				"allowedFields": check.AllowedFields,
			},
		}
	}

	fields := map[string]any{}
	if _, ok := payload["name"]; ok {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return role, badRequest("ROLE_NAME_REQUIRED", "role name is required")
		}
		fields["name"] = name
	}
	if _, ok := payload["description"]; ok {
		fields["description"] = strings.TrimSpace(in.Description)
	}
	if _, ok := payload["permissions"]; ok {
		perms, err := normalizePermissions(in.Permissions)
		if err != nil {
			return role, err
		}
		fields["permissions"] = perms
	}
	if _, ok := payload["isActive"]; ok && in.IsActive != nil {
		fields["isActive"] = *in.IsActive
	}
	if len(fields) == 0 {
		return role, nil
	}
	return s.store.Update(ctx, theater, roleID, fields)
}

// Delete soft-deletes a role. The default role cannot be removed.
func (s *Roles) Delete(ctx context.Context, theater, roleID primitive.ObjectID) (models.Role, error) {
	role, err := s.store.Get(ctx, theater, roleID)
	if err != nil {
		return role, err
	}
	if role.IsDefault {
		return role, badRequest(CodeDefaultRoleUpdate, "the default role cannot be deleted")
	}
	return s.store.SetActive(ctx, theater, roleID, false)
}

// normalizePermissions fills names and routes from the registry and drops
// admin-only pages.
func normalizePermissions(in []models.PagePermission) ([]models.PagePermission, error) {
	byPage := make(map[string]Page, len(Pages))
	for _, p := range Pages {
		byPage[p.Page] = p
	}
	out := make([]models.PagePermission, 0, len(in))
	seen := map[string]bool{}
	for _, perm := range in {
		p, ok := byPage[perm.Page]
		if !ok {
			return nil, badRequest("INVALID_PERMISSION", "unknown page %q", perm.Page)
		}
		if adminOnlyPages[p.Page] || seen[p.Page] {
			continue
		}
		seen[p.Page] = true
		out = append(out, models.PagePermission{
			Page:      p.Page,
			PageName:  p.PageName,
			Route:     p.Route,
			HasAccess: perm.HasAccess,
		})
	}
	return out, nil
}
