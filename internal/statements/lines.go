package statements

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

func amount(v decimal.Decimal) *decimal.Decimal {
	return &v
}

func titleLine(description string, level int) Line {
	return Line{Kind: LineTitle, Description: description, Level: level}
}

func subtotalLine(description string, v decimal.Decimal, level int) Line {
	return Line{Kind: LineSubtotal, Description: description, Value: amount(v), Level: level}
}

func resultLine(description string, v decimal.Decimal, level int) Line {
	return Line{Kind: LineResult, Description: description, Value: amount(v), Level: level}
}

func itemLine(code, description string, v decimal.Decimal, level int) Line {
	return Line{Kind: LineItem, Code: code, Description: description, Value: amount(v), Level: level}
}

// nodeLines flattens a sorted rollup into item lines, one level per tier.
func nodeLines(nodes []rollup.Node, level int) []Line {
	lines := make([]Line, 0, len(nodes))
	for _, n := range nodes {
		lines = append(lines, itemLine(n.Code, n.Name, n.Balance, level))
		lines = append(lines, nodeLines(n.Children, level+1)...)
	}
	return lines
}

func itemLines(items []Item, level int) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, itemLine(it.Code, it.Name, it.Amount, level))
	}
	return lines
}

func sumItems(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

func boolPtr(v bool) *bool {
	return &v
}
