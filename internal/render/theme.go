package render

import "fmt"

// Theme holds colors for flow graph and callgraph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Control-flow edges.
	EdgeTaken       string // conditional branch taken
	EdgeFallthrough string // conditional branch not taken
	EdgeSwitch      string // switch case or default
	EdgeFlow        string // unconditional flow
	EntryBorder     string

	// Call edges by invoke instruction.
	EdgeVirtual    string
	EdgeInterface  string
	EdgeStatic     string
	EdgeSpecial    string // constructors, super and private calls
	EdgeDynamic    string
	EdgeUnresolved string // operand did not resolve to a member

	// Node accents.
	StubFill        string // blocks that leave the method
	UnreachableFill string
	ExternalText    string // callees outside the analyzed classes

	// Cluster styling.
	ClusterBorder string
	ClusterLabel  string
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeTaken:       "#0B3D91", // NASA blue
	EdgeFallthrough: "#FC3D21", // NASA red
	EdgeSwitch:      "#00695C", // teal
	EdgeFlow:        "#424242", // dark gray
	EntryBorder:     "#0B3D91",

	EdgeVirtual:    "#424242",
	EdgeInterface:  "#9E9E9E", // gray
	EdgeStatic:     "#0B3D91",
	EdgeSpecial:    "#00695C",
	EdgeDynamic:    "#E65100", // deep orange
	EdgeUnresolved: "#FC3D21",

	StubFill:        "#ECEFF1", // blue-gray 50
	UnreachableFill: "#FFEBEE", // red 50
	ExternalText:    "#9E9E9E",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}

// Dark is a low-glare variant for terminals and dark viewers.
var Dark = Theme{
	Background: "#1E1E1E",
	NodeFill:   "#2D2D2D",
	NodeBorder: "#858585",
	TextColor:  "#D4D4D4",

	EdgeTaken:       "#569CD6",
	EdgeFallthrough: "#F44747",
	EdgeSwitch:      "#4EC9B0",
	EdgeFlow:        "#9E9E9E",
	EntryBorder:     "#569CD6",

	EdgeVirtual:    "#9E9E9E",
	EdgeInterface:  "#6A6A6A",
	EdgeStatic:     "#569CD6",
	EdgeSpecial:    "#4EC9B0",
	EdgeDynamic:    "#CE9178",
	EdgeUnresolved: "#F44747",

	StubFill:        "#252526",
	UnreachableFill: "#3A1D1D",
	ExternalText:    "#808080",

	ClusterBorder: "#505050",
	ClusterLabel:  "#808080",
}

// ThemeByName returns a built-in theme. The empty name selects NASA.
func ThemeByName(name string) (Theme, error) {
	switch name {
	case "", "nasa":
		return NASA, nil
	case "dark":
		return Dark, nil
	}
	return Theme{}, fmt.Errorf("unknown theme %q", name)
}
