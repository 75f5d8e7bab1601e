package persistence

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
)

// deleteDownstreamOf removes the derived batch chain below (stage,
// batchID) inside the caller's transaction. Returned ids are ordered
// deepest stage first (labeling before packaging). Raw unit assignments
// are untouched; only derived batch rows go away.
//
// Cascading is an application invariant, not a storage foreign key:
// reopen must remove downstream batches while the upstream row survives,
// which ON DELETE CASCADE cannot express.
func deleteDownstreamOf(tx *gorm.DB, stage batch.Stage, batchID string) ([]string, error) {
	switch stage {
	case batch.StageProcessing:
		var pkg PackagingBatchModel
		err := lockForUpdate(tx).Where("source_batch_id = ?", batchID).First(&pkg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find derived packaging batch: %w", err)
		}

		deleted, err := deleteDownstreamOf(tx, batch.StagePackaging, pkg.ID)
		if err != nil {
			return nil, err
		}
		if err := tx.Delete(&PackagingBatchModel{}, "id = ?", pkg.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to delete packaging batch: %w", err)
		}
		return append(deleted, pkg.ID), nil

	case batch.StagePackaging:
		var lbl LabelingBatchModel
		err := lockForUpdate(tx).Where("source_batch_id = ?", batchID).First(&lbl).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find derived labeling batch: %w", err)
		}
		if err := tx.Delete(&LabelingBatchModel{}, "id = ?", lbl.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to delete labeling batch: %w", err)
		}
		return []string{lbl.ID}, nil

	case batch.StageLabeling:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
}
