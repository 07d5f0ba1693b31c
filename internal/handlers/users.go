package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"canteen/internal/logger"
	"canteen/internal/models"
	"canteen/internal/service"
	"canteen/internal/store"
)

type staffAccessRequest struct {
	Categories []string `json:"categories"`
	Products   []string `json:"products"`
	Sections   []string `json:"sections"`
}

type createStaffRequest struct {
	Email     string             `json:"email" binding:"required,email"`
	Username  string             `json:"username" binding:"required,min=3"`
	Password  string             `json:"password" binding:"required,min=6"`
	FullName  string             `json:"fullName"`
	UserType  string             `json:"userType" binding:"required,oneof=super_admin theater_admin theater_user"`
	TheaterID string             `json:"theaterId"`
	RoleID    string             `json:"roleId"`
	Access    staffAccessRequest `json:"access"`
}

// CreateStaffUser registers a back-office account. Theater admins may only
// add staff to their own theater and never create super admins.
func CreateStaffUser(st *store.Store, roles *service.Roles) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/auth/users"
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}

		var req createStaffRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if req.UserType == models.UserTypeSuperAdmin && !caller.IsSuperAdmin() {
			respondServiceError(c, route, &service.BusinessError{Code: service.CodeAccessDenied, Message: "only super admins can create super admins", Status: http.StatusForbidden})
			return
		}

		var theater *primitive.ObjectID
		if req.UserType != models.UserTypeSuperAdmin {
			id, err := caller.ResolveTheater(strings.TrimSpace(req.TheaterID))
			if err != nil {
				respondServiceError(c, route, err)
				return
			}
			if !caller.IsSuperAdmin() && !caller.IsTheaterAdmin() {
				respondServiceError(c, route, &service.BusinessError{Code: service.CodeAccessDenied, Message: "only admins can create staff", Status: http.StatusForbidden})
				return
			}
			theater = &id
		}

		var roleID *primitive.ObjectID
		if req.RoleID != "" {
			id, err := primitive.ObjectIDFromHex(req.RoleID)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, "invalid roleId")
				return
			}
			roleID = &id
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if req.UserType == models.UserTypeTheaterAdmin {
			role, created, err := roles.EnsureDefaultRole(ctx, *theater)
			if err != nil {
				respondServiceError(c, route, err)
				return
			}
			if created {
				logger.For("auth").WithField("theater", theater.Hex()).Info("default role created for new theater admin")
			}
			if roleID == nil {
				roleID = &role.ID
			}
		}

		now := time.Now()
		user, err := st.Users.Create(ctx, models.User{
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			Username:     strings.ToLower(strings.TrimSpace(req.Username)),
			FullName:     strings.TrimSpace(req.FullName),
			PasswordHash: string(hash),
			UserType:     req.UserType,
			Theater:      theater,
			RoleID:       roleID,
			Access: models.StaffAccess{
				Categories: cleanList(req.Access.Categories),
				Products:   cleanList(req.Access.Products),
				Sections:   cleanList(req.Access.Sections),
			},
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if errors.Is(err, store.ErrDuplicate) {
			respondWithError(c, http.StatusConflict, route, "email or username already registered")
			return
		}
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		logger.For("auth").WithField("user", user.Username).Info("staff user created")
		respondOK(c, http.StatusCreated, user)
	}
}

func cleanList(values []string) models.StringList {
	out := make(models.StringList, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
