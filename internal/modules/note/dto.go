package note

import (
	"time"

	"github.com/quicknotes/core/internal/models"
)

// maxTitleLength mirrors the varchar(200) column.
const maxTitleLength = 200

type CreateNoteDTO struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	EventDate *string  `json:"event_date"`
	EventTime *string  `json:"event_time"`
}

// UpdateNoteDTO carries a partial update. Pointer and nil-slice fields
// distinguish "absent" from "set to zero"; JSON null counts as absent.
// Tags clear with an explicit [], event fields clear with "".
type UpdateNoteDTO struct {
	Title     *string  `json:"title"`
	Content   *string  `json:"content"`
	Tags      []string `json:"tags"`
	EventDate *string  `json:"event_date"`
	EventTime *string  `json:"event_time"`
}

func (d *UpdateNoteDTO) isEmpty() bool {
	return d.Title == nil && d.Content == nil && d.Tags == nil &&
		d.EventDate == nil && d.EventTime == nil
}

type noteResponse struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Tags      models.TagList `json:"tags"`
	EventDate *string        `json:"event_date"`
	EventTime *string        `json:"event_time"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func toResponse(n *models.Note) noteResponse {
	tags := n.Tags
	if tags == nil {
		tags = models.TagList{}
	}
	return noteResponse{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      tags,
		EventDate: n.EventDate,
		EventTime: n.EventTime,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
