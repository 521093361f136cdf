package controllers

import (
	"context"
	"errors"
	"eventhub/src/config"
	"eventhub/src/models"
	"eventhub/src/notifications"
	"eventhub/src/types"
	"eventhub/src/utils"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthController struct {
	db       *gorm.DB
	cfg      config.Config
	notifier notifications.Notifier
	log      *logrus.Logger
}

func NewAuthController(db *gorm.DB, cfg config.Config, notifier notifications.Notifier, log *logrus.Logger) *AuthController {
	return &AuthController{db: db, cfg: cfg, notifier: notifier, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *AuthController) issue(user *models.User) (*AuthResponse, error) {
	token, err := utils.GenerateJWT(c.cfg.JWT.Secret, c.cfg.JWT.TTL, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

func (c *AuthController) Register(ctx *gin.Context) (*AuthResponse, int, error) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	hash, err := utils.HashPassword(body.Password)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	user := models.User{
		Name:     strings.TrimSpace(body.Name),
		Email:    normalizeEmail(body.Email),
		Password: hash,
		Phone:    body.Phone,
		Role:     types.ROLE_USER,
	}
	if c.cfg.IsAdminEmail(user.Email) {
		user.Role = types.ROLE_ADMIN
	}
	if err := c.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, http.StatusBadRequest, types.ErrEmailTaken
		}
		c.log.WithError(err).Error("error creating user")
		return nil, http.StatusInternalServerError, err
	}
	c.log.WithFields(logrus.Fields{"user": user.ID, "role": user.Role}).Info("user registered")

	res, err := c.issue(&user)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	c.notifier.Notify(ctx.Request.Context(), notifications.Welcome(&user))
	return res, http.StatusCreated, nil
}

func (c *AuthController) Login(ctx *gin.Context) (*AuthResponse, int, error) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var user models.User
	err := c.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(body.Email)).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, http.StatusUnauthorized, types.ErrInvalidCredentials
		}
		return nil, http.StatusInternalServerError, err
	}
	if !utils.VerifyPassword(user.Password, body.Password) {
		return nil, http.StatusUnauthorized, types.ErrInvalidCredentials
	}
	res, err := c.issue(&user)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return res, http.StatusOK, nil
}

func (c *AuthController) Me(ctx context.Context, id uint) (*models.User, int, error) {
	var user models.User
	if err := c.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, http.StatusNotFound, types.ErrUserNotFound
		}
		return nil, http.StatusInternalServerError, err
	}
	return &user, http.StatusOK, nil
}
