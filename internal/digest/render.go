// Package digest renders the weekly newsletter and the unsubscribe confirmation page.
package digest

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/naka-gawa/trending-digest/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

// UnsubscribePlaceholder marks where Personalize inserts a subscriber's unsubscribe URL.
// It is plain ASCII so html/template leaves it untouched inside an href.
const UnsubscribePlaceholder = "UNSUBSCRIBE_URL_PLACEHOLDER"

const (
	filledMarker = "●"
	emptyMarker  = "○"
)

// Site identifies the publication in rendered output.
type Site struct {
	Name string
	URL  string
}

// Renderer executes the embedded templates.
type Renderer struct {
	templates *template.Template
	site      Site
}

type weeklyView struct {
	Site           Site
	Days           []dayView
	UnsubscribeURL string
}

type dayView struct {
	Label      string
	Headline   string
	Pattern    string
	Categories []domain.CategoryGroup
	Notable    []domain.NotableItem
}

// UnsubscribePage is the content of the unsubscribe confirmation page.
type UnsubscribePage struct {
	Title       string
	Message     string
	Resubscribe bool
}

type unsubscribeView struct {
	UnsubscribePage
	Site Site
}

// NewRenderer parses the embedded templates.
func NewRenderer(site Site) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"upper":   strings.ToUpper,
		"markers": SignificanceMarkers,
		"repoURL": domain.GitHubURL,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: tmpl, site: site}, nil
}

// Site returns the publication the renderer was built for.
func (r *Renderer) Site() Site {
	return r.site
}

// WeeklyDigest renders the shared digest body for days, in the order given.
// The result contains UnsubscribePlaceholder in place of the unsubscribe link.
func (r *Renderer) WeeklyDigest(days []domain.DailyAnalysis) (string, error) {
	view := weeklyView{Site: r.site, UnsubscribeURL: UnsubscribePlaceholder}
	for i := range days {
		day := &days[i]
		view.Days = append(view.Days, dayView{
			Label:      DayLabel(day.Date),
			Headline:   day.Analysis.Headline,
			Pattern:    day.Analysis.Pattern,
			Categories: day.Analysis.OrderedCategories(),
			Notable:    day.Analysis.Notable,
		})
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "weekly.html", view); err != nil {
		return "", fmt.Errorf("failed to render weekly digest: %w", err)
	}
	return buf.String(), nil
}

// RenderUnsubscribe writes the unsubscribe confirmation page.
func (r *Renderer) RenderUnsubscribe(w io.Writer, page UnsubscribePage) error {
	return r.templates.ExecuteTemplate(w, "unsubscribe.html", unsubscribeView{UnsubscribePage: page, Site: r.site})
}

// Personalize substitutes a subscriber's unsubscribe URL into a rendered digest body.
func Personalize(body, unsubscribeURL string) string {
	return strings.ReplaceAll(body, UnsubscribePlaceholder, template.HTMLEscapeString(unsubscribeURL))
}

// SignificanceMarkers renders a 1-5 rank as filled markers followed by empty ones.
// Out-of-range values are clamped.
func SignificanceMarkers(significance int) string {
	n := min(max(significance, domain.MinSignificance), domain.MaxSignificance)
	return strings.Repeat(filledMarker, n) + strings.Repeat(emptyMarker, domain.MaxSignificance-n)
}

// DayLabel formats a YYYY-MM-DD date as "Monday, January 2". Unparseable input is returned as is.
func DayLabel(date string) string {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2")
}
