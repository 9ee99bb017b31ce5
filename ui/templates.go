package ui

import "html/template"

const pageStyle = `
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 60rem; padding: 0 1rem; color: #1a1a1a; }
h1 { font-size: 1.4rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #ddd; }
a { color: #0a5ad4; text-decoration: none; }
a:hover { text-decoration: underline; }
pre { background: #f6f6f6; padding: 0.6rem; overflow-x: auto; border-radius: 4px; }
pre.tool { border-left: 3px solid #c9a33b; }
.entry { border: 1px solid #ddd; border-radius: 4px; margin: 0.8rem 0; padding: 0.6rem 0.8rem; }
.entry.off-path { opacity: 0.55; }
.entry .meta { font-size: 0.8rem; color: #666; margin-bottom: 0.4rem; }
.entry .meta .type { font-weight: 600; color: #333; }
.entry.compaction { border-left: 3px solid #7a4dc9; }
.entry.branch_summary { border-left: 3px solid #3b8c3f; }
.leaf-badge { background: #0a5ad4; color: white; border-radius: 3px; padding: 0 0.3rem; font-size: 0.75rem; }
`

var listTemplate = template.Must(template.New("list").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Sessions</title>
<style>` + pageStyle + `</style>
</head>
<body>
<h1>Sessions ({{.Total}})</h1>
<table>
<tr><th>Session</th><th>Name</th><th>Cwd</th><th>Entries</th><th>Created</th></tr>
{{range .Sessions}}
<tr>
<td><a href="{{$.BasePath}}/sessions/{{.ID}}">{{.ID}}</a></td>
<td>{{.Name}}</td>
<td>{{.Cwd}}</td>
<td>{{.EntryCount}}</td>
<td>{{.CreatedAt.Format "2006-01-02 15:04"}}</td>
</tr>
{{else}}
<tr><td colspan="5">No sessions found.</td></tr>
{{end}}
</table>
{{if or .PrevPage .NextPage}}
<p class="pager">
{{if .PrevPage}}<a href="{{.BasePath}}/?page={{.PrevPage}}">&larr; newer</a>{{end}}
page {{.Page}}
{{if .NextPage}}<a href="{{.BasePath}}/?page={{.NextPage}}">older &rarr;</a>{{end}}
</p>
{{end}}
</body>
</html>
`))

var sessionTemplate = template.Must(template.New("session").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Session {{.Header.ID}}</title>
<style>` + pageStyle + `</style>
</head>
<body>
<p><a href="{{.BasePath}}/">&larr; all sessions</a></p>
<h1>{{if .Name}}{{.Name}}{{else}}Session {{.Header.ID}}{{end}}</h1>
<p class="meta">
id {{.Header.ID}} &middot; created {{.Header.Timestamp.Format "2006-01-02 15:04:05"}} &middot; cwd {{.Header.Cwd}}
{{if .Header.ParentSession}} &middot; forked from {{.Header.ParentSession}}{{end}}
</p>

<h2>Tree</h2>
<pre>{{range .TreeLines}}{{.}}
{{end}}</pre>

<h2>Entries</h2>
{{range .Entries}}
<div class="entry {{.Type}}{{if not .OnPath}} off-path{{end}}">
<div class="meta">
<span class="type">{{.Type}}</span>
{{if .Role}}&middot; {{.Role}}{{end}}
{{if .Label}}&middot; {{.Label}}{{end}}
&middot; {{.ID}}
{{if .Parent}}&middot; parent {{.Parent}}{{end}}
&middot; {{.Timestamp.Format "15:04:05"}}
{{if .IsLeaf}}<span class="leaf-badge">leaf</span>{{end}}
</div>
{{.HTML}}
</div>
{{end}}
</body>
</html>
`))
