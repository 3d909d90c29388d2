// Package webui serves the shift calendar's HTML interface.
package webui

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yiwamoto0208/asa-katsu-calender/dblayer"
	"github.com/yiwamoto0208/asa-katsu-calender/report"
	"github.com/yiwamoto0208/asa-katsu-calender/session"
	"github.com/yiwamoto0208/asa-katsu-calender/webui/uitemplates"

	"github.com/golang/glog"
	"golang.org/x/crypto/bcrypt"
)

type WebUI struct {
	db                *dblayer.DB
	sessions          *session.Store
	adminPasswordHash []byte

	// archiver is nil when report archiving is not configured.
	archiver *report.Archiver
}

func New(db *dblayer.DB, sessions *session.Store, adminPasswordHash []byte, archiver *report.Archiver) *WebUI {
	return &WebUI{
		db:                db,
		sessions:          sessions,
		adminPasswordHash: adminPasswordHash,
		archiver:          archiver,
	}
}

func (u *WebUI) Register(m *http.ServeMux) {
	m.HandleFunc("/", u.homeHandler)
	m.HandleFunc("/set-name", u.setNameHandler)
	m.HandleFunc("/navigate", u.navigateHandler)
	m.HandleFunc("/add-signup", u.addSignupHandler)
	m.HandleFunc("/remove-signup", u.removeSignupHandler)
	m.HandleFunc("/toggle-held", u.toggleHeldHandler)
	m.HandleFunc("/toggle-lock", u.toggleLockHandler)
	m.HandleFunc("/board-post", u.boardPostHandler)
	m.HandleFunc("/admin/log-in", u.adminLogInHandler)
	m.HandleFunc("/admin/log-out", u.adminLogOutHandler)
	m.HandleFunc("/report", u.reportHandler)
	m.HandleFunc("/report.csv", u.reportCSVHandler)
}

// getSession returns the session for the request's cookie, starting a new
// session (and setting its cookie) for first-time visitors.
func (u *WebUI) getSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if s, ok := u.sessions.FromRequest(r); ok {
		return s, nil
	}

	s, cookie, err := u.sessions.Begin()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, cookie)
	return s, nil
}

// userMessage maps rule-violation sentinels to the warning shown to the
// user.  It returns "" for errors that are not the user's doing.
func userMessage(err error) string {
	switch {
	case errors.Is(err, dblayer.ErrNameMustNotBeEmpty):
		return "Please enter your name."
	case errors.Is(err, dblayer.ErrMessageMustNotBeEmpty):
		return "Please enter a message."
	case errors.Is(err, dblayer.ErrCouldNotParseDate):
		return "Could not parse the date."
	case errors.Is(err, dblayer.ErrMonthLocked):
		return "This month is locked and cannot be edited."
	case errors.Is(err, dblayer.ErrDayNotHeld):
		return "That day is not a held day."
	case errors.Is(err, dblayer.ErrDayFull):
		return "That day is already full."
	case errors.Is(err, dblayer.ErrAlreadySignedUp):
		return "You are already signed up on that day."
	case errors.Is(err, dblayer.ErrSignupNotFound):
		return "That shift no longer exists."
	case errors.Is(err, dblayer.ErrPermissionDenied):
		return "You can only remove your own shifts."
	}
	return ""
}

// HomeLink builds the home URL, optionally carrying a warning to display.
func HomeLink(userError string) string {
	q := url.Values{}
	if userError != "" {
		q.Add("user-error", userError)
	}
	link := &url.URL{
		Path:     "/",
		RawQuery: q.Encode(),
	}
	return link.String()
}

func (u *WebUI) render(w http.ResponseWriter, tmpl *template.Template, params any) {
	content := bytes.Buffer{}
	if err := tmpl.Execute(&content, params); err != nil {
		glog.Errorf("Error while executing template: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if _, err := io.Copy(w, &content); err != nil {
		// It's too late to write an error to the HTTP response.
		glog.Errorf("Error while writing output: %v", err)
		return
	}
}

// homeHandler renders the name gate for new visitors, and the calendar plus
// bulletin board otherwise.
func (u *WebUI) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	state := s.Snapshot()

	// The board retention sweep runs inline, at most once per session.
	if !state.Swept {
		if _, err := u.db.SweepBoard(ctx); err != nil {
			glog.Errorf("Error while sweeping the bulletin board: %v", err)
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}
		s.MarkSwept()
	}

	if state.Name == "" {
		u.render(w, uitemplates.WelcomeTemplate, &uitemplates.WelcomeParams{
			UserError: r.URL.Query().Get("user-error"),
		})
		return
	}

	md, err := u.db.FetchMonth(ctx, state.Year, state.Month)
	if err != nil {
		glog.Errorf("Error while fetching month %04d-%02d: %v", state.Year, state.Month, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	params := &uitemplates.CalendarParams{
		UserError:  r.URL.Query().Get("user-error"),
		Name:       state.Name,
		Admin:      state.Admin,
		MonthLabel: time.Date(state.Year, time.Month(state.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006"),
		Locked:     md.Locked,
		Weeks:      BuildMonthGrid(md, state.Year, state.Month, state.Name, state.Admin),
		Board: uitemplates.BoardParams{
			Locked: md.Locked,
			Name:   state.Name,
		},
	}

	for _, msg := range md.Board {
		// Server timestamps can be missing right after a post, before the
		// store round-trips them.
		timeLabel := "unknown time"
		if !msg.Timestamp.IsZero() {
			timeLabel = msg.Timestamp.Format("2006-01-02 15:04")
		}
		params.Board.Messages = append(params.Board.Messages, uitemplates.BoardMessageView{
			Name:    msg.Name,
			Time:    timeLabel,
			Message: msg.Message,
		})
	}

	u.render(w, uitemplates.CalendarTemplate, params)
}

func (u *WebUI) setNameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if err := s.SetName(r.PostForm.Get("name")); err != nil {
		http.Redirect(w, r, HomeLink("Please enter your name."), http.StatusFound)
		return
	}

	http.Redirect(w, r, HomeLink(""), http.StatusFound)
}

func (u *WebUI) navigateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	switch r.PostForm.Get("dir") {
	case "prev":
		s.Navigate(-1)
	case "next":
		s.Navigate(1)
	}

	http.Redirect(w, r, HomeLink(""), http.StatusFound)
}

func (u *WebUI) addSignupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	state := s.Snapshot()
	date := r.PostForm.Get("date")

	// Admins fill the proxy-add form with an arbitrary name; everyone else
	// signs themselves up.
	name := state.Name
	proxy := false
	if state.Admin {
		name = r.PostForm.Get("name")
		proxy = true
	}

	if err := u.db.AddSignup(ctx, date, name, proxy); err != nil {
		if msg := userMessage(err); msg != "" {
			http.Redirect(w, r, HomeLink(msg), http.StatusFound)
			return
		}
		glog.Errorf("Error while adding signup on %s: %v", date, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, HomeLink(""), http.StatusFound)
}

func (u *WebUI) removeSignupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	state := s.Snapshot()
	id := r.PostForm.Get("id")

	if err := u.db.RemoveSignup(ctx, id, state.Name, state.Admin); err != nil {
		if msg := userMessage(err); msg != "" {
			http.Redirect(w, r, HomeLink(msg), http.StatusFound)
			return
		}
		glog.Errorf("Error while removing signup %s: %v", id, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, HomeLink(""), http.StatusFound)
}

func (u *WebUI) toggleHeldHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	state := s.Snapshot()
	if !state.Admin {
		glog.Errorf("Rejecting held toggle from non-admin session")
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	date := r.PostForm.Get("date")
	held := r.PostForm.Get("held") == "on"

	if err := u.db.SetDayHeld(ctx, date, held); err != nil {
		if msg := userMessage(err); msg != "" {
			http.Redirect(w, r, HomeLink(msg), http.StatusFound)
			return
		}
		glog.Errorf("Error while toggling held flag for %s: %v", date, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, HomeLink(""), http.StatusFound)
}

func (u *WebUI) toggleLockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	state := s.Snapshot()
	if !state.Admin {
		glog.Errorf("Rejecting lock toggle from non-admin session")
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	locked := r.PostForm.Get("locked") == "true"

	if err := u.db.SetMonthLock(ctx, state.Year, state.Month, locked); err != nil {
		glog.Errorf("Error while setting month lock: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, HomeLink(""), http.StatusFound)
}

func (u *WebUI) boardPostHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	state := s.Snapshot()
	name := r.PostForm.Get("name")
	message := r.PostForm.Get("message")

	if err := u.db.PostBoardMessage(ctx, state.Year, state.Month, name, message); err != nil {
		if msg := userMessage(err); msg != "" {
			http.Redirect(w, r, HomeLink(msg), http.StatusFound)
			return
		}
		glog.Errorf("Error while posting board message: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, HomeLink(""), http.StatusFound)
}

func (u *WebUI) adminLogInHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	password := r.PostForm.Get("password")
	if err := bcrypt.CompareHashAndPassword(u.adminPasswordHash, []byte(password)); err != nil {
		http.Redirect(w, r, HomeLink("Wrong password."), http.StatusFound)
		return
	}

	s.LogIn()
	http.Redirect(w, r, HomeLink(""), http.StatusFound)
}

func (u *WebUI) adminLogOutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	s.LogOut()
	http.Redirect(w, r, HomeLink(""), http.StatusFound)
}

// ReportCSVLink builds the download URL for the given range.
func ReportCSVLink(start, end string) string {
	q := url.Values{}
	q.Add("start", start)
	q.Add("end", end)
	link := &url.URL{
		Path:     "/report.csv",
		RawQuery: q.Encode(),
	}
	return link.String()
}

// reportHandler shows the date-range form and runs the aggregation.
func (u *WebUI) reportHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/report" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	state := s.Snapshot()
	if !state.Admin {
		glog.Errorf("Rejecting report access from non-admin session")
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	// Default range: the last three months up to today.
	now := time.Now()
	params := &uitemplates.ReportParams{
		Start: now.AddDate(0, -3, 0).Format("2006-01-02"),
		End:   now.Format("2006-01-02"),
	}

	if r.Method != http.MethodPost {
		u.render(w, uitemplates.ReportTemplate, params)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	startText := r.PostForm.Get("start")
	endText := r.PostForm.Get("end")
	params.Start = startText
	params.End = endText

	table, err := u.buildReport(ctx, startText, endText)
	if err != nil {
		if errors.Is(err, report.ErrNoMatchingShifts) {
			params.UserError = "No shifts on held days in that range."
			u.render(w, uitemplates.ReportTemplate, params)
			return
		}
		if errors.Is(err, dblayer.ErrCouldNotParseDate) {
			params.UserError = "Could not parse the dates."
			u.render(w, uitemplates.ReportTemplate, params)
			return
		}
		glog.Errorf("Error while aggregating shifts: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	params.HasTable = true
	params.Months = table.Months
	for _, row := range table.Rows {
		params.Rows = append(params.Rows, uitemplates.ReportRow{
			Name:   row.Name,
			Counts: row.Counts,
			Total:  row.Total,
		})
	}
	params.DownloadLink = ReportCSVLink(startText, endText)

	u.render(w, uitemplates.ReportTemplate, params)
}

func (u *WebUI) buildReport(ctx context.Context, startText, endText string) (*report.Table, error) {
	start, err := time.Parse("2006-01-02", startText)
	if err != nil {
		return nil, dblayer.ErrCouldNotParseDate
	}
	end, err := time.Parse("2006-01-02", endText)
	if err != nil {
		return nil, dblayer.ErrCouldNotParseDate
	}

	// Unbounded scans; the range filter runs in memory.
	events, err := u.db.AllEvents(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := u.db.AllDayStatus(ctx)
	if err != nil {
		return nil, err
	}

	return report.Build(events, statuses, start, end)
}

// reportCSVHandler renders the aggregation as a CSV download.
func (u *WebUI) reportCSVHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/report.csv" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	s, err := u.getSession(w, r)
	if err != nil {
		glog.Errorf("Error while getting session: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	state := s.Snapshot()
	if !state.Admin {
		glog.Errorf("Rejecting report download from non-admin session")
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	startText := r.URL.Query().Get("start")
	endText := r.URL.Query().Get("end")

	table, err := u.buildReport(ctx, startText, endText)
	if err != nil {
		if msg := userMessage(err); msg != "" || errors.Is(err, report.ErrNoMatchingShifts) {
			http.Redirect(w, r, "/report", http.StatusFound)
			return
		}
		glog.Errorf("Error while aggregating shifts: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	data, err := table.CSV()
	if err != nil {
		glog.Errorf("Error while rendering CSV: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	start, _ := time.Parse("2006-01-02", startText)
	end, _ := time.Parse("2006-01-02", endText)
	filename := report.Filename(start, end)

	if u.archiver != nil {
		// Archiving is best effort; the download must not fail with it.
		if err := u.archiver.Put(ctx, filename, data); err != nil {
			glog.Errorf("Error while archiving report %s: %v", filename, err)
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := w.Write(data); err != nil {
		// It's too late to write an error to the HTTP response.
		glog.Errorf("Error while writing output: %v", err)
		return
	}
}
