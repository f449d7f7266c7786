package gormstore

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/store"
)

const pruneChunk = 500

func (s *Store) AppendHistory(ctx context.Context, entries ...*models.CanvasHistory) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(entries).Error; err != nil {
		return fmt.Errorf("append %d history entries: %w", len(entries), err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, canvasID uint, limit int) ([]*models.CanvasHistory, error) {
	entries := []*models.CanvasHistory{}
	q := s.db.WithContext(ctx).Where("canvas_id = ?", canvasID).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	if entries == nil {
		entries = []*models.CanvasHistory{}
	}
	return entries, err
}

func (s *Store) PruneHistory(ctx context.Context, policy store.PrunePolicy, archive store.ArchiveFunc) (int, error) {
	if policy.IsZero() {
		return 0, nil
	}
	var pruned int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		victims, err := selectPrunable(tx, policy)
		if err != nil {
			return err
		}
		if len(victims) == 0 {
			return nil
		}
		if archive != nil {
			if err := archive(ctx, victims); err != nil {
				return fmt.Errorf("archive history: %w", err)
			}
		}
		ids := make([]uint, len(victims))
		for i, v := range victims {
			ids[i] = v.ID
		}
		for start := 0; start < len(ids); start += pruneChunk {
			end := min(start+pruneChunk, len(ids))
			if err := tx.Where("id IN ?", ids[start:end]).Delete(&models.CanvasHistory{}).Error; err != nil {
				return fmt.Errorf("delete history: %w", err)
			}
		}
		pruned = len(ids)
		return nil
	})
	return pruned, err
}

// selectPrunable returns the rows matched by either rule of the policy,
// ordered by canvas and age.
func selectPrunable(tx *gorm.DB, policy store.PrunePolicy) ([]*models.CanvasHistory, error) {
	selected := make(map[uint]*models.CanvasHistory)

	if !policy.Before.IsZero() {
		var old []*models.CanvasHistory
		if err := tx.Where("created_at < ?", policy.Before).Find(&old).Error; err != nil {
			return nil, err
		}
		for _, row := range old {
			selected[row.ID] = row
		}
	}

	if policy.KeepPerCanvas > 0 {
		var canvasIDs []uint
		if err := tx.Model(&models.CanvasHistory{}).Distinct("canvas_id").Pluck("canvas_id", &canvasIDs).Error; err != nil {
			return nil, err
		}
		for _, canvasID := range canvasIDs {
			var rows []*models.CanvasHistory
			err := tx.Where("canvas_id = ?", canvasID).Order("created_at desc, id desc").Find(&rows).Error
			if err != nil {
				return nil, err
			}
			if len(rows) <= policy.KeepPerCanvas {
				continue
			}
			for _, row := range rows[policy.KeepPerCanvas:] {
				selected[row.ID] = row
			}
		}
	}

	out := make([]*models.CanvasHistory, 0, len(selected))
	for _, row := range selected {
		out = append(out, row)
	}
	sortHistory(out)
	return out, nil
}

func sortHistory(rows []*models.CanvasHistory) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CanvasID != rows[j].CanvasID {
			return rows[i].CanvasID < rows[j].CanvasID
		}
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
}
