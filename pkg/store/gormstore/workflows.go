package gormstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/appcanvas/appcanvas/pkg/models"
)

func (s *Store) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "app_id"}, {Name: "element_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"nodes", "edges", "metadata", "updated_at"}),
		}).Create(workflow).Error
		if err != nil {
			return err
		}
		// The id reported by an upsert that hit the conflict path is not
		// reliable across dialects; reload the stored row.
		var saved models.Workflow
		if err := tx.Where("app_id = ? AND element_id = ?", workflow.AppID, workflow.ElementID).First(&saved).Error; err != nil {
			return err
		}
		*workflow = saved
		return nil
	})
}

func (s *Store) GetWorkflow(ctx context.Context, appID uint, elementID string) (*models.Workflow, error) {
	var wf models.Workflow
	found, err := first(s.db.WithContext(ctx), &wf, "app_id = ? AND element_id = ?", appID, elementID)
	if err != nil || !found {
		return nil, err
	}
	return &wf, nil
}

func (s *Store) ListWorkflows(ctx context.Context, appID uint) ([]*models.Workflow, error) {
	workflows := []*models.Workflow{}
	err := s.db.WithContext(ctx).Where("app_id = ?", appID).Order("element_id asc").Find(&workflows).Error
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return workflows, err
}
