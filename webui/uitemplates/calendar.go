package uitemplates

import "html/template"

// CalendarParams renders the month view: navigation, the day grid, the
// bulletin board, and the admin panel.
type CalendarParams struct {
	UserError string

	Name  string
	Admin bool

	MonthLabel string
	Locked     bool
	Weeks      [][]DayCell

	Board BoardParams
}

// DayCell is one cell of the 7-column grid.  A zero Day is padding before
// the first or after the last day of the month.
type DayCell struct {
	Day     int
	Date    string
	Weekday string

	Saturday bool
	Sunday   bool

	Held   bool
	Locked bool

	// Full is set when the day is held, unlocked, and at capacity.
	Full bool

	// CanSignUp shows the self-service signup button.
	CanSignUp bool

	// ShowProxyForm shows the admin's add-on-behalf-of form.
	ShowProxyForm bool

	Signups []SignupView
}

type SignupView struct {
	ID   string
	Name string

	// Mine highlights the viewer's own signup.
	Mine bool

	CanRemove bool
}

type BoardParams struct {
	Locked   bool
	Name     string
	Messages []BoardMessageView
}

type BoardMessageView struct {
	Name    string
	Time    string
	Message string
}

var calendarText = `{{define "title"}}{{.MonthLabel}}{{end}}

{{define "navextra"}}
{{if .Admin}}<span class="badge text-bg-success">admin</span>{{end}}
<span class="navbar-text">Hello, <strong>{{.Name}}</strong>!</span>
{{end}}

{{define "content"}}
<div class="d-flex justify-content-between align-items-center mb-3">
  <form method="POST" action="/navigate">
    <input type="hidden" name="dir" value="prev">
    <button type="submit" class="btn btn-outline-secondary">&laquo; Previous month</button>
  </form>
  <h1>{{.MonthLabel}}</h1>
  <form method="POST" action="/navigate">
    <input type="hidden" name="dir" value="next">
    <button type="submit" class="btn btn-outline-secondary">Next month &raquo;</button>
  </form>
</div>

{{if .Locked}}
<div class="alert alert-danger" role="alert">
  &#128274; This month is locked.  Shifts and the bulletin board cannot be edited.
</div>
{{end}}

<table class="table table-bordered align-top">
  <tbody>
    {{range .Weeks}}
    <tr>
      {{range .}}
      <td style="width:14%">
        {{if .Day}}
        <p class="text-center mb-1{{if .Sunday}} text-danger{{else if .Saturday}} text-primary{{end}}">
          <strong>{{.Day}}</strong> ({{.Weekday}})
        </p>

        {{if $.Admin}}
        <form method="POST" action="/toggle-held" class="mb-1">
          <input type="hidden" name="date" value="{{.Date}}">
          <div class="form-check">
            <input type="checkbox" name="held" class="form-check-input" id="held-{{.Date}}"{{if .Held}} checked{{end}}{{if .Locked}} disabled{{end}}>
            <label class="form-check-label" for="held-{{.Date}}">held</label>
          </div>
          {{if not .Locked}}<button type="submit" class="btn btn-sm btn-outline-secondary">Save</button>{{end}}
        </form>
        {{else if .Held}}
        <p class="mb-1"><span class="badge text-bg-success">held</span></p>
        {{end}}

        {{range .Signups}}
        <div class="d-flex justify-content-between">
          {{if .Mine}}<span class="text-info">&#128100; {{.Name}}</span>{{else}}<span>&#128100; {{.Name}}</span>{{end}}
          {{if .CanRemove}}
          <form method="POST" action="/remove-signup">
            <input type="hidden" name="id" value="{{.ID}}">
            <button type="submit" class="btn btn-sm btn-link p-0" title="Remove shift">&#10060;</button>
          </form>
          {{end}}
        </div>
        {{end}}

        {{if .CanSignUp}}
        <form method="POST" action="/add-signup">
          <input type="hidden" name="date" value="{{.Date}}">
          <button type="submit" class="btn btn-sm btn-primary mt-1">Sign up</button>
        </form>
        {{end}}
        {{if .ShowProxyForm}}
        <form method="POST" action="/add-signup" class="mt-1">
          <input type="hidden" name="date" value="{{.Date}}">
          <input type="text" name="name" class="form-control form-control-sm" placeholder="Name">
          <button type="submit" class="btn btn-sm btn-secondary mt-1">Add</button>
        </form>
        {{end}}
        {{if .Full}}
        <p class="text-warning mb-0">Full</p>
        {{end}}
        {{end}}
      </td>
      {{end}}
    </tr>
    {{end}}
  </tbody>
</table>

<div class="row">
  <div class="col-md-6">
    <h2>&#128226; Bulletin board</h2>
    <p class="text-muted">Posts are removed automatically two weeks after posting.</p>

    <form method="POST" action="/board-post" class="mb-3">
      <label for="board-name" class="form-label">Name</label>
      <input type="text" name="name" id="board-name" class="form-control" value="{{.Board.Name}}"{{if .Board.Locked}} disabled{{end}}>
      <label for="board-message" class="form-label">Message</label>
      <textarea name="message" id="board-message" class="form-control"{{if .Board.Locked}} disabled{{end}}></textarea>
      <button type="submit" class="btn btn-primary mt-2"{{if .Board.Locked}} disabled{{end}}>Post</button>
    </form>

    {{range .Board.Messages}}
    <div class="border-bottom pb-2 mb-2">
      <p class="mb-0"><strong>{{.Name}}</strong> <small>({{.Time}})</small></p>
      <p class="mb-0" style="white-space: pre-wrap;">{{.Message}}</p>
    </div>
    {{end}}
  </div>

  <div class="col-md-6">
    <h2>&#128295; Admin</h2>
    {{if .Admin}}
    <p>Logged in as administrator.</p>
    <form method="POST" action="/admin/log-out" class="mb-3">
      <button type="submit" class="btn btn-outline-secondary">Log out</button>
    </form>

    <h3>Month lock</h3>
    <form method="POST" action="/toggle-lock" class="mb-3">
      {{if .Locked}}
      <input type="hidden" name="locked" value="false">
      <button type="submit" class="btn btn-warning">Unlock {{.MonthLabel}}</button>
      {{else}}
      <input type="hidden" name="locked" value="true">
      <button type="submit" class="btn btn-danger">&#128308; Lock {{.MonthLabel}}</button>
      {{end}}
    </form>

    <h3>Shift counts</h3>
    <p><a href="/report">Aggregate shift counts by date range</a></p>
    {{else}}
    <form method="POST" action="/admin/log-in">
      <label for="password" class="form-label">Password</label>
      <input type="password" name="password" id="password" class="form-control">
      <button type="submit" class="btn btn-primary mt-2">Log in</button>
    </form>
    {{end}}
  </div>
</div>
{{end}}
`

var CalendarTemplate = template.Must(template.Must(template.Must(template.New("base").Parse(baseText)).Parse(warningText)).Parse(calendarText))
