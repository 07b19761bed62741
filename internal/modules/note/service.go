package note

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/quicknotes/core/internal/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns every note, most recently touched first.
func (s *Service) List() ([]models.Note, error) {
	var notes []models.Note
	if err := s.db.Order("updated_at DESC").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// GetByID returns (nil, nil) when the note does not exist.
func (s *Service) GetByID(id int64) (*models.Note, error) {
	var note models.Note
	if err := s.db.First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

func (s *Service) Create(dto *CreateNoteDTO) (*models.Note, error) {
	note := models.Note{
		Title:     dto.Title,
		Content:   dto.Content,
		Tags:      models.TagList(dto.Tags),
		EventDate: normalizeEventField(dto.EventDate),
		EventTime: normalizeEventField(dto.EventTime),
	}
	if err := s.db.Create(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

// Update applies the fields present in dto and refreshes updated_at. It
// returns (nil, nil) when the note does not exist.
func (s *Service) Update(id int64, dto *UpdateNoteDTO) (*models.Note, error) {
	note, err := s.GetByID(id)
	if err != nil || note == nil {
		return note, err
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Content != nil {
		updates["content"] = *dto.Content
	}
	if dto.Tags != nil {
		updates["tags"] = models.TagList(dto.Tags)
	}
	if dto.EventDate != nil {
		updates["event_date"] = normalizeEventField(dto.EventDate)
	}
	if dto.EventTime != nil {
		updates["event_time"] = normalizeEventField(dto.EventTime)
	}
	if len(updates) == 0 {
		return note, nil
	}

	if err := s.db.Model(note).Updates(updates).Error; err != nil {
		return nil, err
	}
	return note, nil
}

// Delete reports whether a row was actually removed so the handler can 404
// on unknown ids.
func (s *Service) Delete(id int64) (bool, error) {
	res := s.db.Delete(&models.Note{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Search filters notes by a case-insensitive substring over title and
// content. An empty query matches nothing.
func (s *Service) Search(q string) ([]models.Note, error) {
	query := strings.TrimSpace(q)
	if query == "" {
		return []models.Note{}, nil
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var notes []models.Note
	if err := s.db.
		Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern).
		Order("updated_at DESC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// normalizeEventField maps blank strings to NULL so cleared fields surface
// as JSON null rather than "".
func normalizeEventField(v *string) *string {
	if v == nil {
		return nil
	}
	if strings.TrimSpace(*v) == "" {
		return nil
	}
	value := *v
	return &value
}
