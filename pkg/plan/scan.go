package plan

import (
	"fmt"
)

// ScanNode represents a sequential table scan
type ScanNode struct {
	BasePlanNode
	TableName string // Name of the table being scanned
	Alias     string // Table alias
}

// NewScanNode creates a scan of tableName bound to alias.
func NewScanNode(tableName, alias string) *ScanNode {
	return &ScanNode{
		TableName: tableName,
		Alias:     alias,
	}
}

func (s *ScanNode) GetNodeType() string {
	return "Scan"
}

func (s *ScanNode) GetChildren() []PlanNode {
	return nil
}

func (s *ScanNode) String() string {
	if s.Alias != "" && s.Alias != s.TableName {
		return fmt.Sprintf("Scan(%s AS %s, cost=%.2f, rows=%.0f)", s.TableName, s.Alias, s.Cost, s.Cardinality)
	}
	return fmt.Sprintf("Scan(%s, cost=%.2f, rows=%.0f)", s.TableName, s.Cost, s.Cardinality)
}
