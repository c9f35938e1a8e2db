package planreport

import (
	"fmt"
	"strings"

	"imputedb/pkg/debug/ui"
	"imputedb/pkg/optimizer"
	"imputedb/pkg/plan"

	"github.com/charmbracelet/lipgloss"
)

// RenderSummary formats a planning result for a terminal: the headline
// numbers, the executable plan tree and the cache occupancy.
func RenderSummary(res *optimizer.Result) string {
	chosen := res.Plan
	dirty := ui.SuccessStyle.Render(res.DirtySet.String())
	if !res.DirtySet.IsEmpty() {
		dirty = ui.WarningStyle.Render(res.DirtySet.String())
	}

	fields := ui.RenderFields([][2]string{
		{"run", res.RunID},
		{"tables", strings.Join(res.Graph.Aliases(), ", ")},
		{"kind", chosen.Kind().String()},
		{"loss", fmt.Sprintf("%.4f", chosen.Penalty().Value())},
		{"time", fmt.Sprintf("%.2f", chosen.Time())},
		{"rows", fmt.Sprintf("%.0f", chosen.Cardinality())},
		{"policy", res.Cache.Policy().Name()},
		{"approximate", fmt.Sprintf("%t", res.Cache.Approximate())},
	})
	fields += "\n" + ui.LabelStyle.Render("dirty:") + " " + dirty

	tree := plan.NewPlanVisualizer().Visualize(res.Physical)

	return lipgloss.JoinVertical(lipgloss.Left,
		ui.RenderTitle("◆", "Imputation-aware plan"),
		ui.DetailStyle.Render(fields),
		ui.RenderHeaderWithCount("Plan", -1),
		ui.MutedStyle.Render(strings.TrimRight(tree, "\n")),
		ui.RenderHeaderWithCount("Cached plans", res.Cache.Len()),
	)
}
