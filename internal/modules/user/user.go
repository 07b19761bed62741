package user

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quicknotes/core/internal/models"
	"github.com/quicknotes/core/internal/pkg/response"
)

const (
	notFoundMessage  = "User not found"
	duplicateMessage = "Username or email already exists"
)

type CreateUserDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UpdateUserDTO carries a partial update; nil means "leave unchanged".
type UpdateUserDTO struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (d *UpdateUserDTO) isEmpty() bool {
	return d.Username == nil && d.Email == nil
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID returns (nil, nil) when the user does not exist.
func (s *Service) GetByID(id int64) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) Create(dto *CreateUserDTO) (*models.User, error) {
	u := models.User{Username: dto.Username, Email: dto.Email}
	if err := s.db.Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Update applies the fields present in dto. It returns (nil, nil) when the
// user does not exist; unique violations surface as the driver error.
func (s *Service) Update(id int64, dto *UpdateUserDTO) (*models.User, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return u, err
	}

	updates := map[string]interface{}{}
	if dto.Username != nil {
		updates["username"] = *dto.Username
	}
	if dto.Email != nil {
		updates["email"] = *dto.Email
	}
	if len(updates) == 0 {
		return u, nil
	}

	if err := s.db.Model(u).Updates(updates).Error; err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Delete(id int64) (bool, error) {
	res := s.db.Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// isDuplicateKey reports whether err is a MySQL 1062 unique key violation.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")

	users.GET("", h.list)
	users.GET("/:id", h.get)
	users.POST("", h.create)
	users.PUT("/:id", h.update)
	users.DELETE("/:id", h.delete)
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (h *Handler) list(c *gin.Context) {
	users, err := h.svc.List()
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.InternalError(c)
		return
	}
	items := make([]userResponse, len(users))
	for i := range users {
		items[i] = toResponse(&users[i])
	}
	response.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		response.NotFound(c, notFoundMessage)
		return
	}
	u, err := h.svc.GetByID(id)
	if err != nil {
		h.logger.Error("get user", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c)
		return
	}
	if u == nil {
		response.NotFound(c, notFoundMessage)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(dto.Username) == "" || strings.TrimSpace(dto.Email) == "" {
		response.BadRequest(c, "Username and email are required")
		return
	}

	u, err := h.svc.Create(&dto)
	if err != nil {
		if isDuplicateKey(err) {
			response.Conflict(c, duplicateMessage)
			return
		}
		h.logger.Error("create user", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Created(c, toResponse(u))
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		response.NotFound(c, notFoundMessage)
		return
	}
	var dto UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Invalid JSON body")
		return
	}
	if dto.isEmpty() {
		response.BadRequest(c, "No data provided")
		return
	}
	if dto.Username != nil && strings.TrimSpace(*dto.Username) == "" {
		response.BadRequest(c, "Username cannot be empty")
		return
	}
	if dto.Email != nil && strings.TrimSpace(*dto.Email) == "" {
		response.BadRequest(c, "Email cannot be empty")
		return
	}

	u, err := h.svc.Update(id, &dto)
	if err != nil {
		if isDuplicateKey(err) {
			response.Conflict(c, duplicateMessage)
			return
		}
		h.logger.Error("update user", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c)
		return
	}
	if u == nil {
		response.NotFound(c, notFoundMessage)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		response.NotFound(c, notFoundMessage)
		return
	}
	deleted, err := h.svc.Delete(id)
	if err != nil {
		h.logger.Error("delete user", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c)
		return
	}
	if !deleted {
		response.NotFound(c, notFoundMessage)
		return
	}
	response.NoContent(c)
}
