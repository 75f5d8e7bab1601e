package batch

import "github.com/taigaharvest/saphouse-go/internal/domain/shared"

// ProductLine identifies one of the two parallel material streams.
// Each line has its own measurement vocabulary and packaging/labeling
// material set, but both flow through the same pipeline stages.
type ProductLine string

const (
	// LineSap is the bottled liquid line (bottles, lids, shrink sleeves, neck tags)
	LineSap ProductLine = "sap"

	// LineHerb is the dried product line (alufoil, vacuum bags, parchment)
	LineHerb ProductLine = "herb"
)

// ProductLines lists every known line in a stable order
var ProductLines = []ProductLine{LineSap, LineHerb}

// ParseProductLine validates a request-supplied line value
func ParseProductLine(value string) (ProductLine, error) {
	switch ProductLine(value) {
	case LineSap:
		return LineSap, nil
	case LineHerb:
		return LineHerb, nil
	default:
		return "", shared.NewValidationError("productLine", "must be one of: sap, herb")
	}
}

// Valid reports whether the line is one of the known lines
func (l ProductLine) Valid() bool {
	return l == LineSap || l == LineHerb
}
