package uitemplates

import "html/template"

// ReportParams renders the date-range form and, after a successful run, the
// pivot table with its download link.
type ReportParams struct {
	UserError string

	Start string
	End   string

	// HasTable gates the result section; an empty aggregation renders the
	// form plus a warning and nothing else.
	HasTable     bool
	Months       []string
	Rows         []ReportRow
	DownloadLink string
}

type ReportRow struct {
	Name   string
	Counts []int
	Total  int
}

var reportText = `{{define "title"}}Shift counts{{end}}

{{define "content"}}
<h1>&#128202; Shift counts</h1>
<p><a href="/">&laquo; Back to the calendar</a></p>

<form method="POST" action="/report" class="row g-2 mb-4">
  <div class="col-auto">
    <label for="start" class="form-label">Start date</label>
    <input type="date" name="start" id="start" class="form-control" value="{{.Start}}" required>
  </div>
  <div class="col-auto">
    <label for="end" class="form-label">End date</label>
    <input type="date" name="end" id="end" class="form-control" value="{{.End}}" required>
  </div>
  <div class="col-auto align-self-end">
    <button type="submit" class="btn btn-primary">Aggregate</button>
  </div>
</form>

{{if .HasTable}}
<table class="table table-striped w-auto">
  <thead>
    <tr>
      <th>name</th>
      {{range .Months}}<th>{{.}}</th>{{end}}
      <th>total</th>
    </tr>
  </thead>
  <tbody>
    {{range .Rows}}
    <tr>
      <td>{{.Name}}</td>
      {{range .Counts}}<td>{{.}}</td>{{end}}
      <td><strong>{{.Total}}</strong></td>
    </tr>
    {{end}}
  </tbody>
</table>

<a href="{{.DownloadLink}}" class="btn btn-outline-primary">Download CSV</a>
{{end}}
{{end}}
`

var ReportTemplate = template.Must(template.Must(template.Must(template.New("base").Parse(baseText)).Parse(warningText)).Parse(reportText))
