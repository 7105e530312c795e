package layout

import "io"

// LayoutStrategy renders one frame in a particular arrangement
type LayoutStrategy interface {
	Render(w io.Writer, frame Frame)
	GetName() string
}

// strategies is indexed by layout style
var strategies = []LayoutStrategy{
	&FullLayoutStrategy{},
	&MinimalLayoutStrategy{},
}

// StyleCount is the number of layout styles GetLayoutStrategy knows
var StyleCount = len(strategies)

// GetLayoutStrategy returns the strategy for layoutStyle, falling back to
// the full dashboard for unknown styles
func GetLayoutStrategy(layoutStyle int) LayoutStrategy {
	if layoutStyle >= 0 && layoutStyle < len(strategies) {
		return strategies[layoutStyle]
	}
	return strategies[0]
}
