package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/store"
)

func (s *Store) CreateApp(ctx context.Context, app *models.App) error {
	return s.db.WithContext(ctx).Create(app).Error
}

func (s *Store) GetApp(ctx context.Context, id uint) (*models.App, error) {
	var app models.App
	found, err := first(s.db.WithContext(ctx), &app, "id = ?", id)
	if err != nil || !found {
		return nil, err
	}
	return &app, nil
}

func (s *Store) ListApps(ctx context.Context, ownerID uint) ([]*models.App, error) {
	apps := []*models.App{}
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc, id desc").
		Find(&apps).Error
	if apps == nil {
		apps = []*models.App{}
	}
	return apps, err
}

func (s *Store) DeleteApp(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var app models.App
		found, err := first(tx, &app, "id = ?", id)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}

		var canvas models.Canvas
		found, err = first(tx, &canvas, "app_id = ?", id)
		if err != nil {
			return err
		}
		if found {
			steps := []struct {
				what  string
				model any
				query string
				arg   any
			}{
				{"interactions", &models.ElementInteraction{}, "canvas_id = ?", canvas.ID},
				{"validations", &models.ElementValidation{}, "canvas_id = ?", canvas.ID},
				{"elements", &models.CanvasElement{}, "canvas_id = ?", canvas.ID},
				{"history", &models.CanvasHistory{}, "canvas_id = ?", canvas.ID},
				{"canvas", &models.Canvas{}, "id = ?", canvas.ID},
			}
			for _, step := range steps {
				if err := tx.Where(step.query, step.arg).Delete(step.model).Error; err != nil {
					return fmt.Errorf("delete %s of app %d: %w", step.what, id, err)
				}
			}
		}

		if err := tx.Where("app_id = ?", id).Delete(&models.Workflow{}).Error; err != nil {
			return fmt.Errorf("delete workflows of app %d: %w", id, err)
		}
		return tx.Delete(&app).Error
	})
}

func (s *Store) GetCanvas(ctx context.Context, appID uint) (*models.Canvas, error) {
	var canvas models.Canvas
	found, err := first(s.db.WithContext(ctx), &canvas, "app_id = ?", appID)
	if err != nil || !found {
		return nil, err
	}
	return &canvas, nil
}

func (s *Store) SaveCanvas(ctx context.Context, canvas *models.Canvas) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if canvas.ID == 0 {
			var existing models.Canvas
			err := tx.Select("id", "created_at").Where("app_id = ?", canvas.AppID).First(&existing).Error
			switch {
			case err == nil:
				canvas.ID = existing.ID
				canvas.CreatedAt = existing.CreatedAt
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}
		return tx.Save(canvas).Error
	})
}
