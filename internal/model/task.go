package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the calendar-date format used for due dates.
const DateLayout = "2006-01-02"

// Task is a single action item extracted from a conversation.
type Task struct {
	ID            string    `gorm:"primaryKey;type:text" json:"id"`
	Title         string    `gorm:"type:text;not null" json:"title"`
	Description   *string   `gorm:"type:text" json:"description"`
	Category      Category  `gorm:"type:text;not null;default:Other;check:category IN ('Work','Personal','Follow-up','Meeting','Review','Other')" json:"category"`
	Priority      Priority  `gorm:"type:text;not null;default:medium;check:priority IN ('high','medium','low')" json:"priority"`
	DueDate       *string   `gorm:"type:text" json:"due_date"`
	SourceAuthor  *string   `gorm:"type:text" json:"source_author"`
	SourceContext *string   `gorm:"type:text" json:"source_context"`
	CreatedAt     time.Time `gorm:"autoCreateTime;<-:create" json:"created_at"`
}

// TableName keeps the table name stable regardless of the struct name.
func (Task) TableName() string {
	return "action_items"
}

// BeforeCreate fills the id and the enum defaults.
func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Category == "" {
		t.Category = CategoryOther
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	return nil
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority matches s case-insensitively against the known priorities.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, true
	}
	return "", false
}

// Category is the fixed set of task groups.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryFollowUp Category = "Follow-up"
	CategoryMeeting  Category = "Meeting"
	CategoryReview   Category = "Review"
	CategoryOther    Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryFollowUp,
	CategoryMeeting,
	CategoryReview,
	CategoryOther,
}

// ParseCategory matches s case-insensitively and returns the canonical spelling.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// ParseDueDate validates a YYYY-MM-DD date string.
func ParseDueDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", false
	}
	return d.Format(DateLayout), true
}
