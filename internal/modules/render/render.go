package render

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/quicknotes/core/internal/modules/note"
	"github.com/quicknotes/core/internal/pkg/response"
)

const notFoundMessage = "Note not found"

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// RenderMarkdown converts markdown to HTML. On a conversion failure the raw
// text comes back escaped instead of erroring.
func RenderMarkdown(markdown string) string {
	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &out); err != nil {
		return template.HTMLEscapeString(markdown)
	}
	return out.String()
}

type Handler struct {
	notes  *note.Service
	logger *zap.Logger
}

func NewHandler(notes *note.Service, logger *zap.Logger) *Handler {
	return &Handler{notes: notes, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	notes := rg.Group("/notes")

	notes.GET("/:id/html", h.renderNote)
}

func (h *Handler) renderNote(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.NotFound(c, notFoundMessage)
		return
	}

	n, err := h.notes.GetByID(id)
	if err != nil {
		h.logger.Error("render note", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c)
		return
	}
	if n == nil {
		response.NotFound(c, notFoundMessage)
		return
	}

	response.OK(c, gin.H{"html": RenderMarkdown(n.Content)})
}
