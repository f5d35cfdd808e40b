package graphmodel

import "github.com/vanderheijden86/csvboard/pkg/model"

// LibraryOptions translates a graph tab's layout settings into the option
// schema of the browser graph library (vis-network).
func LibraryOptions(cfg *model.GraphConfig) map[string]any {
	physics := cfg.Physics()
	arrows := map[string]any{"to": map[string]any{"enabled": cfg.IsDirected(), "scaleFactor": 0.5}}

	if cfg.LayoutEngine == model.LayoutHierarchical {
		return map[string]any{
			"layout": map[string]any{
				"hierarchical": map[string]any{
					"enabled":         true,
					"direction":       "UD",
					"sortMethod":      "directed",
					"levelSeparation": 150,
				},
			},
			"physics": map[string]any{
				"enabled": physics,
				"solver":  "hierarchicalRepulsion",
			},
			"edges":       map[string]any{"arrows": arrows, "smooth": false},
			"interaction": map[string]any{"hover": true},
		}
	}
	return map[string]any{
		"layout": map[string]any{
			"hierarchical":   map[string]any{"enabled": false},
			"improvedLayout": true,
		},
		"physics": map[string]any{
			"enabled": physics,
			"solver":  "forceAtlas2Based",
			"stabilization": map[string]any{
				"enabled":    true,
				"iterations": 200,
				"fit":        true,
			},
		},
		"edges":       map[string]any{"arrows": arrows, "smooth": map[string]any{"type": "continuous"}},
		"interaction": map[string]any{"hover": true},
	}
}
