package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/ribotflow/backend/internal/application/identity"
)

// UserService is the member management use case consumed by UserHandler
type UserService interface {
	Create(ctx context.Context, tenantID, actorID uuid.UUID, req identityapp.CreateUserRequest) (*identityapp.UserResponse, error)
	GetByID(ctx context.Context, tenantID, userID uuid.UUID) (*identityapp.UserResponse, error)
	ChangeRole(ctx context.Context, tenantID, actorID, userID uuid.UUID, req identityapp.ChangeRoleRequest) (*identityapp.UserResponse, error)
	Deactivate(ctx context.Context, tenantID, actorID, userID uuid.UUID) error
}

// UserHandler manages the members of the caller's organisation
type UserHandler struct {
	BaseHandler
	userService UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Create godoc
// @Summary      Add a user
// @Description  Only owners can add other owners
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body identityapp.CreateUserRequest true "User"
// @Success      201 {object} APIResponse[identityapp.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	tenantID, actorID, ok := h.caller(c)
	if !ok {
		return
	}
	var req identityapp.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.userService.Create(c.Request.Context(), tenantID, actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetByID godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UserHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	userID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.userService.GetByID(c.Request.Context(), tenantID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ChangeRole godoc
// @Summary      Change a user's role
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        request body identityapp.ChangeRoleRequest true "Role"
// @Success      200 {object} APIResponse[identityapp.UserResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/role [put]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	tenantID, actorID, ok := h.caller(c)
	if !ok {
		return
	}
	userID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req identityapp.ChangeRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.userService.ChangeRole(c.Request.Context(), tenantID, actorID, userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate godoc
// @Summary      Deactivate a user
// @Tags         users
// @Param        id path string true "User ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	tenantID, actorID, ok := h.caller(c)
	if !ok {
		return
	}
	userID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Deactivate(c.Request.Context(), tenantID, actorID, userID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
