package uitemplates

import "html/template"

type WelcomeParams struct {
	UserError string
}

var welcomeText = `{{define "title"}}Welcome{{end}}

{{define "content"}}
<h1>Welcome!</h1>
<p>To start managing shifts, please tell us your name first.</p>
<p class="text-muted">You can close the browser at any time after entering
it; your signups are saved automatically.</p>
<form method="POST" action="/set-name">
  <label for="name" class="form-label">Your full name</label>
  <input type="text" name="name" id="name" class="form-control" placeholder="e.g. Taro Yamada" required>
  <div class="form-text">Please write your given and family name without a space in between.</div>
  <button type="submit" class="btn btn-primary mt-2">Get started</button>
</form>
{{end}}
`

var WelcomeTemplate = template.Must(template.Must(template.Must(template.New("base").Parse(baseText)).Parse(warningText)).Parse(welcomeText))
