package scene

import (
	"unicode/utf8"

	"github.com/meikuraledutech/nodegraph"
)

// Style holds the metrics the default geometry lays nodes out with. It is
// passed explicitly to each scene; there is no process-wide style.
type Style struct {
	CharWidth     float64 `json:"charWidth" yaml:"char_width"`
	CaptionHeight float64 `json:"captionHeight" yaml:"caption_height"`
	PortSpacing   float64 `json:"portSpacing" yaml:"port_spacing"`
	Padding       float64 `json:"padding" yaml:"padding"`
	MinWidth      float64 `json:"minWidth" yaml:"min_width"`
	MinHeight     float64 `json:"minHeight" yaml:"min_height"`
}

// DefaultStyle returns the metrics used when none are configured.
func DefaultStyle() Style {
	return Style{
		CharWidth:     7,
		CaptionHeight: 24,
		PortSpacing:   20,
		Padding:       8,
		MinWidth:      80,
		MinHeight:     40,
	}
}

// Geometry computes node extents and port anchors from model data.
type Geometry interface {
	// Size returns the node's extent.
	Size(m nodegraph.Model, id nodegraph.NodeID) nodegraph.Size
	// PortPosition returns a port's anchor relative to the node origin.
	PortPosition(m nodegraph.Model, id nodegraph.NodeID, t nodegraph.PortType, port nodegraph.PortIndex) nodegraph.Point
}

// DefaultGeometry lays ports out horizontally: inputs on the left edge,
// outputs on the right, one row per port below the caption.
type DefaultGeometry struct {
	Style Style
}

func (g DefaultGeometry) Size(m nodegraph.Model, id nodegraph.NodeID) nodegraph.Size {
	if s := nodegraph.NodeValue[nodegraph.Size](m, id, nodegraph.RoleSize); !s.Empty() {
		return s
	}
	st := g.Style

	width := st.MinWidth
	if nodegraph.NodeValue[bool](m, id, nodegraph.RoleCaptionVisible) {
		caption := nodegraph.NodeValue[string](m, id, nodegraph.RoleCaption)
		width = max(width, float64(utf8.RuneCountInString(caption))*st.CharWidth+2*st.Padding)
	}

	rows := max(nodegraph.PortCount(m, id, nodegraph.PortIn), nodegraph.PortCount(m, id, nodegraph.PortOut))
	height := g.captionHeight(m, id) + float64(rows)*st.PortSpacing + st.Padding
	return nodegraph.Size{W: width, H: max(height, st.MinHeight)}
}

func (g DefaultGeometry) PortPosition(m nodegraph.Model, id nodegraph.NodeID, t nodegraph.PortType, port nodegraph.PortIndex) nodegraph.Point {
	y := g.captionHeight(m, id) + (float64(port)+0.5)*g.Style.PortSpacing
	if t == nodegraph.PortOut {
		return nodegraph.Point{X: g.Size(m, id).W, Y: y}
	}
	return nodegraph.Point{X: 0, Y: y}
}

func (g DefaultGeometry) captionHeight(m nodegraph.Model, id nodegraph.NodeID) float64 {
	if nodegraph.NodeValue[bool](m, id, nodegraph.RoleCaptionVisible) {
		return g.Style.CaptionHeight
	}
	return 0
}
