package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/fridgechef/backend/internal/model"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// HistoryService records completed analyses
type HistoryService struct {
	db *gorm.DB
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Record stores an analysis
func (s *HistoryService) Record(ctx context.Context, analysis *model.Analysis) error {
	if err := s.db.WithContext(ctx).Create(analysis).Error; err != nil {
		return fmt.Errorf("failed to record analysis: %w", err)
	}
	return nil
}

// Recent returns the newest analyses first. limit is clamped to [1, MaxHistoryLimit];
// zero or less means DefaultHistoryLimit.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]model.Analysis, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	var analyses []model.Analysis
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&analyses).Error; err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return analyses, nil
}
