package planreport

import (
	"fmt"
	"io"

	"imputedb/pkg/optimizer/imputed"
	"imputedb/pkg/optimizer/plancache"

	"github.com/olekukonko/tablewriter"
)

// WriteCacheTable prints one row per cached plan.
func WriteCacheTable(w io.Writer, c *plancache.Cache[imputed.Node]) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"tables", "dirty", "kind", "loss", "time", "rows"})
	tw.SetAutoFormatHeaders(false)
	tw.SetBorder(false)
	tw.SetAutoMergeCells(true)

	for _, slot := range NewCacheSnapshot(c).Slots {
		for _, p := range slot.Plans {
			tw.Append([]string{
				slot.Tables,
				slot.Dirty,
				p.Kind,
				fmt.Sprintf("%.4f", p.Loss),
				fmt.Sprintf("%.2f", p.Time),
				fmt.Sprintf("%.0f", p.Rows),
			})
		}
	}
	tw.Render()
}
