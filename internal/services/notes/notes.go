package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"shop-system/internal/database/models"
)

const DefaultListLimit = 20

var (
	ErrEmptyNote = errors.New("note content is required")
	ErrNotFound  = errors.New("note not found")
)

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

type NoteInput struct {
	Content     string `json:"content" binding:"required"`
	IsImportant bool   `json:"is_important"`
}

func (s *Service) Create(ctx context.Context, in NoteInput) (*models.Note, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyNote
	}

	note := models.Note{
		Content:     content,
		IsImportant: in.IsImportant,
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &note, nil
}

// List returns the newest notes first. A non-positive limit means
// DefaultListLimit.
func (s *Service) List(ctx context.Context, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	notes := []models.Note{}
	if err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&models.Note{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete note: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}
