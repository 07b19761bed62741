package note

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quicknotes/core/internal/pkg/response"
)

const notFoundMessage = "Note not found"

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	notes := rg.Group("/notes")

	notes.GET("", h.list)
	notes.GET("/search", h.search)
	notes.GET("/:id", h.get)
	notes.POST("", h.create)
	notes.PUT("/:id", h.update)
	notes.DELETE("/:id", h.delete)
}

// parseNoteID treats non-numeric path ids as unknown notes, matching the
// 404-for-bad-id route contract.
func parseNoteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (h *Handler) list(c *gin.Context) {
	notes, err := h.svc.List()
	if err != nil {
		h.logger.Error("list notes", zap.Error(err))
		response.InternalError(c)
		return
	}
	items := make([]noteResponse, len(notes))
	for i := range notes {
		items[i] = toResponse(&notes[i])
	}
	response.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := parseNoteID(c)
	if !ok {
		response.NotFound(c, notFoundMessage)
		return
	}
	note, err := h.svc.GetByID(id)
	if err != nil {
		h.logger.Error("get note", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c)
		return
	}
	if note == nil {
		response.NotFound(c, notFoundMessage)
		return
	}
	response.OK(c, toResponse(note))
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateNoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(dto.Title) == "" || strings.TrimSpace(dto.Content) == "" {
		response.BadRequest(c, "Title and content are required")
		return
	}
	if utf8.RuneCountInString(dto.Title) > maxTitleLength {
		response.BadRequest(c, "Title must be 200 characters or less")
		return
	}

	note, err := h.svc.Create(&dto)
	if err != nil {
		h.logger.Error("create note", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.Created(c, toResponse(note))
}

func (h *Handler) update(c *gin.Context) {
	id, ok := parseNoteID(c)
	if !ok {
		response.NotFound(c, notFoundMessage)
		return
	}
	var dto UpdateNoteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Invalid JSON body")
		return
	}
	if dto.isEmpty() {
		response.BadRequest(c, "No data provided")
		return
	}
	if msg := validateUpdate(&dto); msg != "" {
		response.BadRequest(c, msg)
		return
	}

	note, err := h.svc.Update(id, &dto)
	if err != nil {
		h.logger.Error("update note", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c)
		return
	}
	if note == nil {
		response.NotFound(c, notFoundMessage)
		return
	}
	response.OK(c, toResponse(note))
}

func validateUpdate(dto *UpdateNoteDTO) string {
	if dto.Title != nil {
		if strings.TrimSpace(*dto.Title) == "" {
			return "Title cannot be empty"
		}
		if utf8.RuneCountInString(*dto.Title) > maxTitleLength {
			return "Title must be 200 characters or less"
		}
	}
	if dto.Content != nil && strings.TrimSpace(*dto.Content) == "" {
		return "Content cannot be empty"
	}
	return ""
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseNoteID(c)
	if !ok {
		response.NotFound(c, notFoundMessage)
		return
	}
	deleted, err := h.svc.Delete(id)
	if err != nil {
		h.logger.Error("delete note", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c)
		return
	}
	if !deleted {
		response.NotFound(c, notFoundMessage)
		return
	}
	response.NoContent(c)
}

func (h *Handler) search(c *gin.Context) {
	notes, err := h.svc.Search(c.Query("q"))
	if err != nil {
		h.logger.Error("search notes", zap.Error(err))
		response.InternalError(c)
		return
	}
	items := make([]noteResponse, len(notes))
	for i := range notes {
		items[i] = toResponse(&notes[i])
	}
	response.OK(c, items)
}
