package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/store"
)

const elementOrder = "z_index asc, created_at asc, id asc"

func withNested(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Interactions", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Validations", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Children", func(db *gorm.DB) *gorm.DB { return db.Order(elementOrder) })
}

func (s *Store) ListElements(ctx context.Context, canvasID uint) ([]*models.CanvasElement, error) {
	elements := []*models.CanvasElement{}
	err := withNested(s.db.WithContext(ctx)).
		Where("canvas_id = ?", canvasID).
		Order(elementOrder).
		Find(&elements).Error
	if elements == nil {
		elements = []*models.CanvasElement{}
	}
	return elements, err
}

func (s *Store) GetElement(ctx context.Context, canvasID uint, id string) (*models.CanvasElement, error) {
	return getElement(s.db.WithContext(ctx), canvasID, id)
}

func getElement(q *gorm.DB, canvasID uint, id string) (*models.CanvasElement, error) {
	var el models.CanvasElement
	found, err := first(withNested(q), &el, "canvas_id = ? AND id = ?", canvasID, id)
	if err != nil || !found {
		return nil, err
	}
	return &el, nil
}

func (s *Store) CreateElement(ctx context.Context, element *models.CanvasElement) error {
	err := s.db.WithContext(ctx).Omit("Children").Create(element).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", store.ErrElementExists, element.ID)
	}
	return err
}

func (s *Store) UpdateElement(ctx context.Context, canvasID uint, patch store.ElementPatch) (before, after *models.CanvasElement, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, after, err = updateElement(tx, canvasID, patch)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func updateElement(tx *gorm.DB, canvasID uint, patch store.ElementPatch) (*models.CanvasElement, *models.CanvasElement, error) {
	before, err := getElement(tx, canvasID, patch.ID)
	if err != nil {
		return nil, nil, err
	}
	if before == nil {
		return nil, nil, fmt.Errorf("%w: %s", store.ErrElementNotFound, patch.ID)
	}

	if cols := patch.Columns(); len(cols) > 0 {
		err := tx.Model(&models.CanvasElement{}).
			Where("canvas_id = ? AND id = ?", canvasID, patch.ID).
			Updates(cols).Error
		if err != nil {
			return nil, nil, fmt.Errorf("update element %s: %w", patch.ID, err)
		}
	}
	if patch.Interactions != nil {
		if err := tx.Where("canvas_id = ? AND element_id = ?", canvasID, patch.ID).Delete(&models.ElementInteraction{}).Error; err != nil {
			return nil, nil, err
		}
		rows := make([]models.ElementInteraction, len(*patch.Interactions))
		for i, in := range *patch.Interactions {
			in.ID = 0
			in.CanvasID = canvasID
			in.ElementID = patch.ID
			rows[i] = in
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return nil, nil, err
			}
		}
	}
	if patch.Validations != nil {
		if err := tx.Where("canvas_id = ? AND element_id = ?", canvasID, patch.ID).Delete(&models.ElementValidation{}).Error; err != nil {
			return nil, nil, err
		}
		rows := make([]models.ElementValidation, len(*patch.Validations))
		for i, v := range *patch.Validations {
			v.ID = 0
			v.CanvasID = canvasID
			v.ElementID = patch.ID
			rows[i] = v
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return nil, nil, err
			}
		}
	}

	after, err := getElement(tx, canvasID, patch.ID)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func (s *Store) DeleteElement(ctx context.Context, canvasID uint, id string) (*models.CanvasElement, error) {
	var deleted *models.CanvasElement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = deleteElement(tx, canvasID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func deleteElement(tx *gorm.DB, canvasID uint, id string) (*models.CanvasElement, error) {
	before, err := getElement(tx, canvasID, id)
	if err != nil {
		return nil, err
	}
	if before == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrElementNotFound, id)
	}
	if err := tx.Where("canvas_id = ? AND element_id = ?", canvasID, id).Delete(&models.ElementInteraction{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("canvas_id = ? AND element_id = ?", canvasID, id).Delete(&models.ElementValidation{}).Error; err != nil {
		return nil, err
	}
	err = tx.Model(&models.CanvasElement{}).
		Where("canvas_id = ? AND parent_id = ?", canvasID, id).
		Update("parent_id", nil).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Where("canvas_id = ? AND id = ?", canvasID, id).Delete(&models.CanvasElement{}).Error; err != nil {
		return nil, err
	}
	return before, nil
}

// BulkUpdateElements runs one short transaction per item. There is no
// transaction around the batch, so concurrent writers may interleave.
func (s *Store) BulkUpdateElements(ctx context.Context, canvasID uint, patches []store.ElementPatch) (store.BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return store.BatchResult{}, err
	}
	res := store.BatchResult{Outcomes: make([]store.ItemOutcome, 0, len(patches))}
	for _, patch := range patches {
		outcome := store.ItemOutcome{ElementID: patch.ID}
		if patch.ID == "" {
			outcome.Err = fmt.Errorf("%w: empty id", store.ErrElementNotFound)
		} else {
			outcome.Before, outcome.After, outcome.Err = s.UpdateElement(ctx, canvasID, patch)
		}
		res.Outcomes = append(res.Outcomes, outcome)
	}
	return res, nil
}

func (s *Store) BulkDeleteElements(ctx context.Context, canvasID uint, ids []string) (store.BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return store.BatchResult{}, err
	}
	res := store.BatchResult{Outcomes: make([]store.ItemOutcome, 0, len(ids))}
	for _, id := range ids {
		outcome := store.ItemOutcome{ElementID: id}
		outcome.Before, outcome.Err = s.DeleteElement(ctx, canvasID, id)
		res.Outcomes = append(res.Outcomes, outcome)
	}
	return res, nil
}

func (s *Store) GroupElements(ctx context.Context, canvasID uint, ids []string, groupID string) ([]*models.CanvasElement, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no element ids", store.ErrElementNotFound)
	}
	var grouped []*models.CanvasElement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CanvasElement{}).
			Where("canvas_id = ? AND id IN ?", canvasID, ids).
			Update("group_id", groupID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrElementNotFound
		}
		return tx.Where("canvas_id = ? AND id IN ?", canvasID, ids).Order(elementOrder).Find(&grouped).Error
	})
	if err != nil {
		return nil, err
	}
	return grouped, nil
}

func (s *Store) UngroupElements(ctx context.Context, canvasID uint, groupID string) ([]*models.CanvasElement, error) {
	var members []*models.CanvasElement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("canvas_id = ? AND group_id = ?", canvasID, groupID).Order(elementOrder).Find(&members).Error
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return store.ErrElementNotFound
		}
		return tx.Model(&models.CanvasElement{}).
			Where("canvas_id = ? AND group_id = ?", canvasID, groupID).
			Update("group_id", nil).Error
	})
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		m.GroupID = nil
	}
	return members, nil
}
