package report

import (
	"bytes"
	"html/template"
	"time"
)

// Table is one titled grid of a document.
type Table struct {
	Heading string
	Columns []string
	Rows    [][]string
}

// Document is a printable report.
type Document struct {
	Title     string
	Subtitle  string
	Generated time.Time
	// Summary is rendered as label/value pairs above the tables.
	Summary [][2]string
	Tables  []Table
	Note    string
}

var documentTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="id"><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{font-family:sans-serif;margin:24px;color:#1f2933}
h1{font-size:20px;margin:0 0 4px}
.sub{color:#52606d;margin:0 0 16px}
table{width:100%;border-collapse:collapse;margin-bottom:16px;font-size:12px}
th,td{border:1px solid #d9e2ec;padding:6px;text-align:left}
th{background:#f0f4f8}
.summary td:first-child{width:40%}
.note{color:#b44d12;font-size:12px}
</style></head><body>
<h1>{{.Title}}</h1>
<p class="sub">{{.Subtitle}}{{if not .Generated.IsZero}} &middot; dibuat {{.Generated.Format "02-01-2006 15:04"}}{{end}}</p>
{{if .Note}}<p class="note">{{.Note}}</p>{{end}}
{{if .Summary}}<table class="summary"><tbody>{{range .Summary}}<tr><td>{{index . 0}}</td><td>{{index . 1}}</td></tr>{{end}}</tbody></table>{{end}}
{{range .Tables}}<h2>{{.Heading}}</h2>
<table><thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody></table>
{{end}}</body></html>`))

// HTML renders the document with all values escaped.
func (d Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
