package report

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
)

var markdownFuncs = template.FuncMap{
	"comma": humanize.Comma,
	"int64": func(n int) int64 { return int64(n) },
}

const markdownSource = `# Simulation Report

Run: ` + "`{{.RunID}}`" + `
Generated: {{.GeneratedAt.Format "2006-01-02 15:04:05 UTC"}}

| Metric | Count |
|---|---|
| Total | {{comma (int64 .Total)}} |
| Passed | {{comma (int64 .Passed)}} |
| Failed | {{comma (int64 .Failed)}} |
| Stub misses | {{comma (int64 .StubMisses)}} |
| Blocked writes | {{comma (int64 .BlockedWrites)}} |
{{if .Errors}}
## Errors

{{range .Errors}}- {{.}}
{{end}}{{end}}
{{if .StubMissDetail}}
## Stub misses

{{range .StubMissDetail}}- **{{.Endpoint}}** / {{.FixtureID}}: ` + "`{{.Qualname}}`" + ` fingerprint={{.Fingerprint}} ordinal={{.Ordinal}} expected at {{.ExpectedAt}}
{{end}}{{end}}
{{if .BlockedDetail}}
## Blocked writes

{{range .BlockedDetail}}- **{{.Endpoint}}** / {{.FixtureID}}: ` + "`{{.SQL}}`" + ` on connection {{.Label}}
{{end}}{{end}}
## Regressions
{{range .Results}}{{if not .Passed}}
### {{.Endpoint}} / {{.FixtureID}}
{{range .Differences}}- **{{.Kind}}** at ` + "`{{.Path}}`" + `: {{.Message}} (golden={{.GoldenValue}}, candidate={{.CandidateValue}})
{{end}}{{if .IgnoredPaths}}Ignored paths: {{range .IgnoredPaths}}` + "`{{.}}`" + ` {{end}}
{{end}}{{end}}{{end}}
`

var markdownTemplate = template.Must(template.New("report.md").Funcs(markdownFuncs).Parse(markdownSource))

// RenderMarkdown renders r as a Markdown report: summary counters, then
// regressions by endpoint and fixture, with dedicated stub-miss and
// blocked-write sections.
func RenderMarkdown(r SimulationReport) (string, error) {
	var sb strings.Builder
	if err := markdownTemplate.Execute(&sb, r); err != nil {
		return "", fmt.Errorf("report: render markdown: %w", err)
	}
	return sb.String(), nil
}
