package batch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taigaharvest/saphouse-go/internal/domain/batch"
	"github.com/taigaharvest/saphouse-go/internal/domain/shared"
)

func usage(qty int, cost float64) *batch.MaterialUsage {
	return &batch.MaterialUsage{Quantity: qty, UnitCost: cost}
}

func TestPackagingMaterials_Validate(t *testing.T) {
	var validationErr *shared.ValidationError

	// Sap takes bottles and lids
	sap := batch.PackagingMaterials{Bottles: usage(100, 0.8), Lids: usage(100, 0.1)}
	require.NoError(t, sap.Validate(batch.LineSap))

	// Herb materials on the sap line are rejected
	sap.Alufoil = usage(5, 2)
	require.ErrorAs(t, sap.Validate(batch.LineSap), &validationErr)

	// Herb takes alufoil, vacuum bags and parchment
	herb := batch.PackagingMaterials{
		Alufoil:    usage(20, 1.5),
		VacuumBags: usage(50, 0.3),
		Parchment:  usage(10, 0.9),
	}
	require.NoError(t, herb.Validate(batch.LineHerb))

	herb.Bottles = usage(1, 1)
	require.ErrorAs(t, herb.Validate(batch.LineHerb), &validationErr)

	// Negative figures are rejected before the vocabulary check
	bad := batch.PackagingMaterials{Bottles: usage(-1, 0.8)}
	require.ErrorAs(t, bad.Validate(batch.LineSap), &validationErr)
}

func TestLabelingMaterials_Validate(t *testing.T) {
	var validationErr *shared.ValidationError

	// Sap takes the full set
	sap := batch.LabelingMaterials{
		Stickers:      usage(100, 0.05),
		Cartons:       usage(10, 1.2),
		ShrinkSleeves: usage(100, 0.07),
		NeckTags:      usage(100, 0.04),
	}
	require.NoError(t, sap.Validate(batch.LineSap))

	// Herb takes only stickers and cartons
	herb := batch.LabelingMaterials{Stickers: usage(40, 0.05), Cartons: usage(4, 1.2)}
	require.NoError(t, herb.Validate(batch.LineHerb))

	herb.NeckTags = usage(1, 0.04)
	require.ErrorAs(t, herb.Validate(batch.LineHerb), &validationErr)

	bad := batch.LabelingMaterials{Cartons: usage(2, -1)}
	require.ErrorAs(t, bad.Validate(batch.LineSap), &validationErr)
}
