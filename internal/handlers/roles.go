package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"canteen/internal/models"
	"canteen/internal/service"
	"canteen/internal/store"
)

type roleRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Permissions []models.PagePermission `json:"permissions"`
	IsActive    *bool                   `json:"isActive"`
}

func (r roleRequest) input() service.RoleInput {
	return service.RoleInput{
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		IsActive:    r.IsActive,
	}
}

func ListRoles(roles *service.Roles) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/roles/:theaterId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := roles.List(ctx, theater, includeInactive(c))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, list)
	}
}

// Pages exposes the page registry the role editor renders.
func Pages() gin.HandlerFunc {
	return func(c *gin.Context) {
		pages := make([]gin.H, 0, len(service.Pages))
		for _, p := range service.Pages {
			pages = append(pages, gin.H{"page": p.Page, "pageName": p.PageName, "route": p.Route})
		}
		respondOK(c, http.StatusOK, pages)
	}
}

func CreateRole(roles *service.Roles) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/roles/:theaterId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}

		var req roleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		role, err := roles.Create(ctx, theater, req.input())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusCreated, role)
	}
}

// UpdateRole keeps the raw payload keys so a default role can reject any
// field it does not allow, even when the value is empty.
func UpdateRole(roles *service.Roles) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/roles/:theaterId/:roleId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		roleID, ok := objectIDParam(c, route, "roleId")
		if !ok {
			return
		}

		var payload map[string]any
		if err := c.ShouldBindBodyWith(&payload, binding.JSON); err != nil {
			respondValidationError(c, err)
			return
		}
		var req roleRequest
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		role, err := roles.Update(ctx, theater, roleID, payload, req.input())
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		respondOK(c, http.StatusOK, role)
	}
}

func DeleteRole(roles *service.Roles) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/roles/:theaterId/:roleId"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}
		roleID, ok := objectIDParam(c, route, "roleId")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		role, err := roles.Delete(ctx, theater, roleID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "deleted successfully", "data": role})
	}
}

func RestoreRole(st *store.Store) gin.HandlerFunc {
	return setEntryActive(st.Roles, "PUT /api/roles/:theaterId/:roleId/restore", "roleId", true, nil)
}

// EnsureDefaultRole creates the theater's default role if it is missing.
func EnsureDefaultRole(roles *service.Roles) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/roles/:theaterId/default"
		defer handlePanic(c, route)

		theater, _, ok := theaterScope(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		role, created, err := roles.EnsureDefaultRole(ctx, theater)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"success": true, "created": created, "data": role})
	}
}
