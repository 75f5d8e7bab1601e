package persistence

import (
	"fmt"
	"sort"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
)

// sequenceNumberWidth is the zero-padded width of human-facing batch numbers
const sequenceNumberWidth = 2

// sequenceTables is the compile-time registry mapping stage to the table
// whose number column feeds the dense sequence. Table names are never
// assembled from request input.
var sequenceTables = map[batch.Stage]string{
	batch.StageProcessing: "processing_batches",
	batch.StagePackaging:  "packaging_batches",
	batch.StageLabeling:   "labeling_batches",
}

// lockForUpdate adds a SELECT ... FOR UPDATE clause on Postgres. SQLite
// has no row-lock syntax and serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// nextNumber computes and reserves the next dense sequence number for
// (line, stage). It must run inside the transaction that inserts the new
// batch row; the rows it scans are locked so two concurrent creations
// cannot claim the same number. A unique index on (product_line, number)
// backs this as defense in depth.
func nextNumber(tx *gorm.DB, stage batch.Stage, line batch.ProductLine) (string, error) {
	table, ok := sequenceTables[stage]
	if !ok {
		return "", fmt.Errorf("no sequence table registered for stage %q", stage)
	}

	var numbers []string
	if err := lockForUpdate(tx).Table(table).
		Where("product_line = ?", string(line)).
		Pluck("number", &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to scan %s numbers: %w", table, err)
	}

	max := 0
	for _, n := range numbers {
		v, err := strconv.Atoi(n)
		if err != nil {
			// Non-numeric legacy numbers don't participate in the sequence
			continue
		}
		if v > max {
			max = v
		}
	}

	return fmt.Sprintf("%0*d", sequenceNumberWidth, max+1), nil
}

// sortedIDs returns a deterministic copy for error payloads
func sortedIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
