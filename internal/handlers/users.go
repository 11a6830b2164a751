package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"lemonade/internal/models"
	"lemonade/internal/repository"
	"lemonade/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

// POST /api/auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid signup request")
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = normalizePhone(in.Phone)

	if in.Name == "" {
		fail(c, http.StatusBadRequest, "Name is required")
		return
	}
	if in.Email == "" && in.Phone == "" {
		fail(c, http.StatusBadRequest, "Email or phone is required")
		return
	}
	hash, err := utils.HashPassword(in.Password)
	if errors.Is(err, utils.ErrWeakPassword) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.internal(c, "hash password", err)
		return
	}

	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	user := models.User{Name: in.Name, Email: in.Email, Phone: in.Phone, PasswordHash: hash}
	err = h.Store.Users.Create(ctx, &user)
	if errors.Is(err, repository.ErrDuplicate) {
		fail(c, http.StatusConflict, "An account with this email or phone already exists")
		return
	}
	if err != nil {
		h.internal(c, "create user", err)
		return
	}

	h.Logger.Info("✅ account created", zap.Int("user", user.ID))
	profile := user.Profile()
	c.JSON(http.StatusCreated, models.UserResponse{Envelope: ok(), User: &profile})
}

// POST /api/auth/login accepts an email or a phone number.
func (h *Handler) Login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid login request")
		return
	}
	identifier := strings.TrimSpace(in.Email)
	if identifier == "" {
		identifier = normalizePhone(in.Phone)
	}
	if identifier == "" || in.Password == "" {
		fail(c, http.StatusBadRequest, "Email or phone and password are required")
		return
	}

	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	user, err := h.Store.Users.FindByLogin(ctx, identifier)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.internal(c, "find user", err)
		return
	}
	if user == nil {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	match, err := utils.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil {
		h.Logger.Warn("⚠️ unreadable password hash", zap.Int("user", user.ID), zap.Error(err))
	}
	if !match {
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	profile := user.Profile()
	c.JSON(http.StatusOK, models.UserResponse{Envelope: ok(), User: &profile})
}

// PUT /api/user/address/:userId
func (h *Handler) SaveAddress(c *gin.Context) {
	userID, valid := intParam(c, "userId")
	if !valid {
		return
	}
	var body struct {
		Address models.Address `json:"address"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Invalid address")
		return
	}
	addr := models.NewAddress(body.Address.Street, body.Address.Landmark, body.Address.City)
	if addr.Street == "" || addr.City == "" {
		fail(c, http.StatusBadRequest, "Street and city are required")
		return
	}

	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	user, err := h.Store.Users.SetAddress(ctx, userID, addr)
	if errors.Is(err, repository.ErrNotFound) {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.internal(c, "save address", err)
		return
	}
	profile := user.Profile()
	c.JSON(http.StatusOK, models.UserResponse{Envelope: ok(), User: &profile})
}
