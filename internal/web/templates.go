package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/justestif/go-spotify-mood-timeline/internal/clustering"
	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

// Templates manages HTML template rendering.
type Templates struct {
	templates map[string]*template.Template
	partials  map[string]*template.Template
	funcs     template.FuncMap
}

// NewTemplates creates a new template manager by loading templates from the given filesystem.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{
		templates: make(map[string]*template.Template),
		partials:  make(map[string]*template.Template),
		funcs:     defaultFuncs(),
	}

	if err := t.load(templatesFS); err != nil {
		return nil, err
	}

	return t, nil
}

// Render renders a page template inside the base layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.templates[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// RenderPartial renders a partial template without the layout, for HTMX swaps.
func (t *Templates) RenderPartial(w io.Writer, partial string, data any) error {
	tmpl, ok := t.partials[partial]
	if !ok {
		return fmt.Errorf("partial %q not found", partial)
	}
	return tmpl.Execute(w, data)
}

// load parses all templates from the filesystem.
func (t *Templates) load(templatesFS fs.FS) error {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return fmt.Errorf("finding layouts: %w", err)
	}
	partials, err := fs.Glob(templatesFS, "partials/*.html")
	if err != nil {
		return fmt.Errorf("finding partials: %w", err)
	}
	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return fmt.Errorf("finding pages: %w", err)
	}
	if len(layouts) == 0 || len(pages) == 0 {
		return fmt.Errorf("no layouts or pages found")
	}

	common := append(append([]string{}, layouts...), partials...)

	for _, page := range pages {
		name := templateName(page)
		files := append([]string{page}, common...)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, files...)
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.templates[name] = tmpl
	}

	for _, partial := range partials {
		name := templateName(partial)

		tmpl, err := template.New(name).Funcs(t.funcs).ParseFS(templatesFS, partial)
		if err != nil {
			return fmt.Errorf("parsing partial %s: %w", name, err)
		}
		t.partials[name] = tmpl
	}

	return nil
}

func templateName(file string) string {
	return strings.TrimSuffix(path.Base(file), ".html")
}

// defaultFuncs returns the default template functions.
func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		// moodColor maps energy to hue (cool indigo to warm orange) and
		// valence to saturation and lightness.
		"moodColor": func(energy, valence float64) template.CSS {
			hue := 264 - (energy * 229)
			if hue < 0 {
				hue += 360
			}
			saturation := 60 + (valence * 40)
			lightness := 40 + (valence * 20)
			return template.CSS(fmt.Sprintf("hsl(%.0f, %.0f%%, %.0f%%)", hue, saturation, lightness)) //nolint:gosec // built from numbers only
		},

		"moodClass": func(m library.Mood) string {
			return "mood-" + strings.ToLower(string(m))
		},

		"formatDate": func(t time.Time) string {
			return t.Format(library.DateLayout)
		},

		"percent": func(n, total int) int {
			if total == 0 {
				return 0
			}
			return n * 100 / total
		},

		"join": strings.Join,

		"add": func(a, b int) int {
			return a + b
		},
	}
}

// PageData contains common data passed to all page templates.
type PageData struct {
	Title       string
	User        *UserData
	Flash       *FlashMessage
	CurrentPath string
}

// UserData contains authenticated user information.
type UserData struct {
	ID   string
	Name string
}

// FlashMessage represents a temporary notification message.
type FlashMessage struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// HomePageData contains data for the home page template.
type HomePageData struct {
	PageData
	Authenticated bool
}

// GroupOption is one choice of the period grouping select.
type GroupOption struct {
	Value    library.GroupBy
	Label    string
	Selected bool
}

// DashboardPageData contains data for the search form.
type DashboardPageData struct {
	PageData
	Genres       []string
	Moods        []library.Mood
	GroupOptions []GroupOption
	Start        string
	End          string
}

// QueryData echoes the submitted search back to the results page.
type QueryData struct {
	Start   string
	End     string
	GroupBy string
	Genre   string
	Mood    string
}

// ResultsPageData contains data for the mood timeline.
type ResultsPageData struct {
	PageData
	Query   QueryData
	Total   int
	Skipped int
	Periods []PeriodData
}

// PeriodData contains data for a single period in templates.
type PeriodData struct {
	Key    string
	Count  int
	Moods  []clustering.MoodCount
	Vibes  []clustering.Vibe
	Tracks []TrackData
}

// TrackData contains data for a single track in templates.
type TrackData struct {
	ID           string
	Name         string
	Artists      string
	Genres       []string
	Mood         library.Mood
	SavedAt      time.Time
	PreviewURL   string
	ExternalURL  string
	HasFeatures  bool
	Energy       float64
	Valence      float64
	Danceability float64
	Tempo        float64
}

// PlaylistPageData confirms a saved playlist.
type PlaylistPageData struct {
	PageData
	Name       string
	URL        string
	TrackCount int
}

// ErrorPageData describes a failed request.
type ErrorPageData struct {
	PageData
	Status  int
	Message string
}

func newTrackData(e library.Entry) TrackData {
	td := TrackData{
		ID:          e.ID,
		Name:        e.Name,
		Artists:     e.ArtistNames(),
		Genres:      e.Genres,
		Mood:        e.Mood,
		SavedAt:     e.SavedAt,
		PreviewURL:  e.PreviewURL,
		ExternalURL: e.ExternalURL,
	}
	if e.Features != nil {
		td.HasFeatures = true
		td.Energy = e.Features.Energy
		td.Valence = e.Features.Valence
		td.Danceability = e.Features.Danceability
		td.Tempo = e.Features.Tempo
	}
	return td
}

func groupOptions(selected library.GroupBy) []GroupOption {
	opts := []GroupOption{
		{Value: library.GroupMonthly, Label: "Monthly"},
		{Value: library.GroupSeasonal, Label: "Seasonal"},
		{Value: library.GroupYearly, Label: "Yearly"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == selected
	}
	return opts
}
