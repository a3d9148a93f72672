package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bhaskarRao-22/attendance-sync/internal/models"
	"github.com/bhaskarRao-22/attendance-sync/internal/store"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler manages the stored biometric roster.
type UserHandler struct {
	users *store.GormUserStore
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{users: store.NewGormUserStore(db)}
}

// createUserRequest defines the request body for manual enrollment.
type createUserRequest struct {
	BioID       string  `json:"bioId"`
	BioName     string  `json:"bioName"`
	Designation string  `json:"designation"`
	Avatar      *string `json:"avatar"`
}

// Create enrolls a user by hand.
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.BioID) == "" || strings.TrimSpace(body.BioName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bioId and bioName are required"})
		return
	}
	user := models.BiometricUser{
		BioID:       body.BioID,
		BioName:     body.BioName,
		Designation: strings.TrimSpace(body.Designation),
	}
	if body.Avatar != nil {
		if avatar := strings.TrimSpace(*body.Avatar); avatar != "" {
			user.Avatar = &avatar
		}
	}
	if errCreate := h.users.Create(c.Request.Context(), &user); errCreate != nil {
		if errors.Is(errCreate, store.ErrUserExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}
	c.JSON(http.StatusCreated, userView(user))
}

// List returns active users sorted by name, optionally filtered by ?search=.
func (h *UserHandler) List(c *gin.Context) {
	rows, errList := h.users.Active(c.Request.Context(), c.Query("search"))
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, userView(row))
	}
	c.JSON(http.StatusOK, out)
}

func userView(user models.BiometricUser) gin.H {
	return gin.H{
		"id":          user.ID,
		"bioId":       user.BioID,
		"bioName":     user.BioName,
		"designation": user.Designation,
		"avatar":      user.Avatar,
		"isActive":    user.IsActive,
		"createdAt":   user.CreatedAt,
		"updatedAt":   user.UpdatedAt,
	}
}
