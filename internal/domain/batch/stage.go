package batch

import "github.com/taigaharvest/saphouse-go/internal/domain/shared"

// Stage identifies a step of the production pipeline. Sequence numbers
// are dense per (product line, stage), and each downstream stage derives
// 1:1 from exactly one completed batch of the stage before it.
type Stage string

const (
	StageProcessing Stage = "processing"
	StagePackaging  Stage = "packaging"
	StageLabeling   Stage = "labeling"
)

// ParseStage validates a request-supplied stage value
func ParseStage(value string) (Stage, error) {
	switch Stage(value) {
	case StageProcessing:
		return StageProcessing, nil
	case StagePackaging:
		return StagePackaging, nil
	case StageLabeling:
		return StageLabeling, nil
	default:
		return "", shared.NewValidationError("stage", "must be one of: processing, packaging, labeling")
	}
}

// Downstream returns the stage derived from this one, or false for the
// last stage of the pipeline.
func (s Stage) Downstream() (Stage, bool) {
	switch s {
	case StageProcessing:
		return StagePackaging, true
	case StagePackaging:
		return StageLabeling, true
	default:
		return "", false
	}
}

// Upstream returns the stage this one derives from, or false for the
// first stage.
func (s Stage) Upstream() (Stage, bool) {
	switch s {
	case StageLabeling:
		return StagePackaging, true
	case StagePackaging:
		return StageProcessing, true
	default:
		return "", false
	}
}
