package score

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/CraigKelly/riskmap/model"
)

// Row is one line of the comparison table: one disease under one model run.
type Row struct {
	Disease  string
	Model    string
	DIC      float64
	TotalCPO float64
	Note     string
}

// BuildTable computes per-disease DIC and total CPO for every supplied run.
// Numeric failures are reported in the row's Note instead of aborting the
// table; rows come back sorted by disease then model name.
func BuildTable(results []*model.Result) []Row {
	var rows []Row

	for _, res := range results {
		for j, name := range res.Diseases {
			row := Row{
				Disease: name,
				Model:   res.Name,
			}

			dic, err := DiseaseDIC(res, j)
			if err != nil {
				row.Note = appendNote(row.Note, fmt.Sprintf("DIC failed: %v", err))
			} else {
				row.DIC = dic.DIC
			}

			cpo, err := DiseaseCPO(res, j)
			if err != nil {
				row.Note = appendNote(row.Note, fmt.Sprintf("CPO failed: %v", err))
			} else {
				row.TotalCPO = cpo.TotalLog
				if cpo.Unstable {
					row.Note = appendNote(row.Note, "unstable CPO")
				}
			}

			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Disease != rows[j].Disease {
			return rows[i].Disease < rows[j].Disease
		}
		return rows[i].Model < rows[j].Model
	})

	return rows
}

// FormatTable renders the rows as an aligned text table.
func FormatTable(rows []Row) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 2, 4, 2, ' ', 0)

	fmt.Fprintln(w, "Disease\tModel\tDIC\tTotal CPO\tNotes")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%s\n", r.Disease, r.Model, r.DIC, r.TotalCPO, r.Note)
	}

	w.Flush()
	return sb.String()
}

func appendNote(cur, add string) string {
	if cur == "" {
		return add
	}
	return cur + "; " + add
}
