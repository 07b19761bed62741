package models

import "time"

// Note is a single user-authored note. Tags live in one nullable text
// column, with TagList handling the round-trip.
type Note struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title" gorm:"size:200;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Tags      TagList   `json:"tags" gorm:"type:text"`
	EventDate *string   `json:"event_date" gorm:"size:20"`
	EventTime *string   `json:"event_time" gorm:"size:20"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Note) TableName() string {
	return "notes"
}
