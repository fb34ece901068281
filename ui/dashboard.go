package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog/log"

	"gotrack/domain/core"
	"gotrack/domain/metrics"
	"gotrack/ports"
)

//go:embed templates/*
var embeddedFiles embed.FS

// Dashboard serves the analyst-facing HTML views of the latest run.
type Dashboard struct {
	router    *gin.Engine
	runs      ports.RunRepository
	templates *template.Template
}

// NewDashboard parses the embedded templates and wires the routes.
func NewDashboard(runs ports.RunRepository) (*Dashboard, error) {
	gin.SetMode(gin.ReleaseMode)
	d := &Dashboard{
		router: gin.New(),
		runs:   runs,
	}
	d.router.Use(gin.Recovery())

	funcMap := template.FuncMap{
		"upper": strings.ToUpper,
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard templates: %w", err)
	}
	d.templates = tmpl

	d.router.GET("/", d.handleIndex)
	d.router.GET("/methodology", d.handleMethodology)
	return d, nil
}

// Router returns the HTTP handler for mounting or testing.
func (d *Dashboard) Router() http.Handler { return d.router }

// Run starts the dashboard server on addr.
func (d *Dashboard) Run(addr string) error {
	log.Info().Str("addr", addr).Msg("dashboard listening")
	return d.router.Run(addr)
}

// dashboardView is the template model for the index page. All numbers
// arrive pre-formatted so the template stays free of logic.
type dashboardView struct {
	Title      string
	Project    string
	RunID      string
	Generated  string
	Confidence string
	Baseline   string
	Waves      []string
	Sections   []sectionView
	Warnings   []string
	Empty      bool
}

type sectionView struct {
	Name string
	Rows []rowView
}

type rowView struct {
	Label string
	Base  string
	Cells []cellView
}

// cellView carries one wave's formatted value plus its movement marker:
// Direction is "up", "down", or "" and doubles as the CSS class.
type cellView struct {
	Value     string
	Direction string
	Arrow     string
}

func (d *Dashboard) handleIndex(c *gin.Context) {
	if d.runs == nil {
		d.render(c, "dashboard.html", dashboardView{Title: "Tracking", Empty: true})
		return
	}
	run, err := d.runs.LatestRun(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("loading latest run for dashboard failed")
		c.String(http.StatusInternalServerError, "run store unavailable")
		return
	}
	if run == nil {
		d.render(c, "dashboard.html", dashboardView{Title: "Tracking", Empty: true})
		return
	}
	d.render(c, "dashboard.html", buildDashboardView(run))
}

func (d *Dashboard) handleMethodology(c *gin.Context) {
	src, err := embeddedFiles.ReadFile("templates/methodology.md")
	if err != nil {
		log.Error().Err(err).Msg("embedded methodology source missing")
		c.String(http.StatusInternalServerError, "methodology page unavailable")
		return
	}
	d.render(c, "methodology.html", map[string]any{
		"Title":   "Methodology",
		"Content": renderMarkdown(src),
	})
}

func (d *Dashboard) render(c *gin.Context, name string, data any) {
	var buf bytes.Buffer
	if err := d.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("rendering dashboard template failed")
		c.String(http.StatusInternalServerError, "template error")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// renderMarkdown converts embedded markdown to HTML for the page shell.
func renderMarkdown(src []byte) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(src)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return template.HTML(markdown.Render(doc, renderer))
}

// buildDashboardView flattens the stored run into display strings. The
// dashboard shows the Total segment only; segment cuts live in the
// exported workbook.
func buildDashboardView(run *ports.StoredRun) dashboardView {
	meta := run.Metadata
	view := dashboardView{
		Title:      meta.ProjectName + " Tracking",
		Project:    meta.ProjectName,
		RunID:      meta.RunID.String(),
		Generated:  meta.GeneratedAt.Time().Format("2006-01-02 15:04"),
		Confidence: fmt.Sprintf("%.0f%%", meta.ConfidenceLevel*100),
		Baseline:   string(meta.BaselineWave),
	}
	for _, wave := range meta.WaveOrder {
		view.Waves = append(view.Waves, string(wave))
	}

	grouped := make(map[string][]rowView)
	var order []string
	for _, row := range run.Rows {
		section := row.Section
		if section == "" {
			section = "Results"
		}
		if _, seen := grouped[section]; !seen {
			order = append(order, section)
		}
		grouped[section] = append(grouped[section], buildRowView(row, meta.WaveOrder))
	}
	for _, name := range order {
		view.Sections = append(view.Sections, sectionView{Name: name, Rows: grouped[name]})
	}
	view.Warnings = run.Warnings
	view.Empty = len(view.Sections) == 0
	return view
}

func buildRowView(row metrics.MetricRow, waves []core.WaveID) rowView {
	rv := rowView{Label: row.Label, Base: "-"}
	cells, ok := row.Segments[core.TotalSegment]
	if !ok {
		for range waves {
			rv.Cells = append(rv.Cells, cellView{Value: "-"})
		}
		return rv
	}

	var lastN *float64
	for _, wave := range waves {
		cell := cellView{Value: "-"}
		if v := cells.Values[wave]; v != nil {
			cell.Value = fmt.Sprintf("%.1f", *v)
		}
		if sig := cells.SigVsPrevious[wave]; sig != nil && *sig {
			if delta := cells.ChangeVsPrevious[wave]; delta != nil && *delta < 0 {
				cell.Direction = "down"
				cell.Arrow = "▼"
			} else {
				cell.Direction = "up"
				cell.Arrow = "▲"
			}
		}
		if n := cells.N[wave]; n != nil {
			lastN = n
		}
		rv.Cells = append(rv.Cells, cell)
	}
	if lastN != nil {
		rv.Base = fmt.Sprintf("%.0f", *lastN)
	}
	return rv
}
