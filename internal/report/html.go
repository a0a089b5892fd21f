package report

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/dustin/go-humanize"
)

var htmlFuncs = template.FuncMap{
	"comma": humanize.Comma,
	"int64": func(n int) int64 { return int64(n) },
}

const htmlSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Simulation Report {{.RunID}}</title>
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; margin: 2rem; color: #1a1a1a; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #ccc; padding: 0.35rem 0.75rem; text-align: left; }
.pass { color: #0a7a28; }
.fail { color: #b3261e; }
code { background: #f2f2f2; padding: 0.1rem 0.3rem; border-radius: 3px; }
section { margin-bottom: 2rem; }
</style>
</head>
<body>
<h1>Simulation Report</h1>
<p>Run <code>{{.RunID}}</code> &mdash; generated {{.GeneratedAt.Format "2006-01-02 15:04:05 UTC"}}</p>

<table>
<tr><th>Metric</th><th>Count</th></tr>
<tr><td>Total</td><td>{{comma (int64 .Total)}}</td></tr>
<tr><td>Passed</td><td class="pass">{{comma (int64 .Passed)}}</td></tr>
<tr><td>Failed</td><td class="fail">{{comma (int64 .Failed)}}</td></tr>
<tr><td>Stub misses</td><td>{{comma (int64 .StubMisses)}}</td></tr>
<tr><td>Blocked writes</td><td>{{comma (int64 .BlockedWrites)}}</td></tr>
</table>

{{if .Errors}}
<section>
<h2>Errors</h2>
<ul>{{range .Errors}}<li>{{.}}</li>{{end}}</ul>
</section>
{{end}}

{{if .StubMissDetail}}
<section>
<h2>Stub misses</h2>
<ul>{{range .StubMissDetail}}<li><strong>{{.Endpoint}}</strong> / {{.FixtureID}}: <code>{{.Qualname}}</code> fingerprint={{.Fingerprint}} ordinal={{.Ordinal}} expected at {{.ExpectedAt}}</li>{{end}}</ul>
</section>
{{end}}

{{if .BlockedDetail}}
<section>
<h2>Blocked writes</h2>
<ul>{{range .BlockedDetail}}<li><strong>{{.Endpoint}}</strong> / {{.FixtureID}}: <code>{{.SQL}}</code> on connection {{.Label}}</li>{{end}}</ul>
</section>
{{end}}

<section>
<h2>Regressions</h2>
{{range .Results}}{{if not .Passed}}
<h3>{{.Endpoint}} / {{.FixtureID}}</h3>
<ul>
{{range .Differences}}<li><strong>{{.Kind}}</strong> at <code>{{.Path}}</code>: {{.Message}} (golden={{.GoldenValue}}, candidate={{.CandidateValue}})</li>{{end}}
</ul>
{{if .IgnoredPaths}}<p>Ignored paths: {{range .IgnoredPaths}}<code>{{.}}</code> {{end}}</p>{{end}}
{{end}}{{end}}
</section>
</body>
</html>
`

var htmlTemplate = template.Must(template.New("report.html").Funcs(htmlFuncs).Parse(htmlSource))

// RenderHTML renders r as a single self-contained HTML document (inline
// CSS, no external assets).
func RenderHTML(r SimulationReport) (string, error) {
	var sb strings.Builder
	if err := htmlTemplate.Execute(&sb, r); err != nil {
		return "", fmt.Errorf("report: render html: %w", err)
	}
	return sb.String(), nil
}
