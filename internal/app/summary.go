package app

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sadopc/smartvault/internal/aggregate"
	"github.com/sadopc/smartvault/internal/provision"
	"github.com/sadopc/smartvault/internal/schema"
	"github.com/sadopc/smartvault/internal/theme"
	"github.com/sadopc/smartvault/internal/ui/highlight"
)

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

func count[T ~int | ~int64](n T) string {
	return humanize.Comma(int64(n))
}

func (a *App) printProvision(res *provision.Result) {
	fields := []theme.Field{
		{Label: "Tables", Value: strings.Join(res.Tables, ", ")},
		{Label: "Indexes", Value: strings.Join(res.Indexes, ", ")},
	}
	if n := len(res.Skipped) + len(res.LoadErrors); n > 0 {
		fields = append(fields, theme.Field{Label: "Skipped", Value: a.th.Warning.Render(count(n))})
	}
	a.println(a.th.Summary("Provisioning complete", fields...))
}

func (a *App) printGenerate(res *GenerateResult, path string) {
	fields := []theme.Field{
		{Label: "AccountCount", Value: count(res.Counts.Accounts)},
		{Label: "DocumentCount", Value: count(res.Counts.Documents)},
		{Label: "UserCount", Value: count(res.Counts.Users)},
		{Label: "Database", Value: a.th.Path.Render(path)},
	}
	if g := res.Generate; g != nil {
		fields = append(fields,
			theme.Field{Label: "Sample file", Value: a.th.Path.Render(g.SampleFile.Path)},
			theme.Field{Label: "Sample size", Value: humanize.Bytes(uint64(g.SampleFile.Size))},
			theme.Field{Label: "Commits", Value: count(g.Commits)},
		)
	}
	a.println(a.th.Summary("Generation complete", fields...))
}

func (a *App) printScan(r *aggregate.ScanResult) {
	fields := []theme.Field{
		{Label: "Documents", Value: count(r.Total)},
		{Label: "Sampled", Value: count(r.Sampled)},
		{Label: "Matches", Value: count(r.Matches)},
	}
	if r.Missing > 0 {
		fields = append(fields, theme.Field{Label: "Missing", Value: a.th.Warning.Render(count(r.Missing))})
	}
	if r.Unreadable > 0 {
		fields = append(fields, theme.Field{Label: "Unreadable", Value: a.th.Warning.Render(count(r.Unreadable))})
	}
	switch r.Status {
	case aggregate.StatusConsolidated:
		fields = append(fields, theme.Field{Label: "Output", Value: a.th.Path.Render(r.Output)})
	default:
		fields = append(fields, theme.Field{Label: "Output", Value: a.th.Muted.Render("none (" + r.Status.String() + ")")})
	}
	a.println(a.th.Summary("Account "+r.AccountID, fields...))
}

func (a *App) printSize(r *aggregate.SizeResult) {
	fields := []theme.Field{
		{Label: "Total size", Value: fmt.Sprintf("%s (%s bytes)", r.Human(), count(r.Total))},
		{Label: "Files", Value: count(r.Files)},
	}
	if r.Missing > 0 {
		fields = append(fields, theme.Field{Label: "Missing", Value: a.th.Warning.Render(count(r.Missing))})
	}
	a.println(a.th.Summary("All files", fields...))
}

func (a *App) printSchema(defs []schema.Definition) {
	h := highlight.New(a.th)
	for i, d := range defs {
		if i > 0 {
			a.println("")
		}
		a.println(a.th.Title.Render(d.Table) + " " + a.th.Muted.Render("("+d.Source+")"))
		a.println(h.Indent(d.Script, "  "))
	}
}

func (a *App) printTables(tables []schema.Table) {
	if len(tables) == 0 {
		a.println(a.th.Muted.Render("store has no tables"))
		return
	}
	for _, t := range tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name + " " + a.th.Muted.Render(c.Type)
			if c.IsPK {
				cols[i] += " " + a.th.Success.Render("PK")
			}
		}
		fields := []theme.Field{{Label: "Columns", Value: strings.Join(cols, ", ")}}
		for _, ix := range t.Indexes {
			label := "Index"
			if ix.Unique {
				label = "Unique index"
			}
			fields = append(fields, theme.Field{
				Label: label,
				Value: ix.Name + " (" + strings.Join(ix.Columns, ", ") + ")",
			})
		}
		a.println(a.th.Summary(t.Name, fields...))
	}
}
