package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"aldercrest-web/internal/integrations"
	"aldercrest-web/internal/models"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Programme is one course card on the landing page.
type Programme struct {
	Name     string
	Award    string
	Duration string
	Blurb    string
}

// InfoBlock is one "why Aldercrest" panel.
type InfoBlock struct {
	Heading string
	Body    string
}

// Content is the registry of page sections. It is data rather than markup so
// a deployment can swap copy without touching the templates.
type Content struct {
	SiteName   string
	Tagline    string
	Hero       string
	InfoBlocks []InfoBlock
	Programmes []Programme
}

// DefaultContent returns the built-in page copy.
func DefaultContent() Content {
	return Content{
		SiteName: "Aldercrest College",
		Tagline:  "Study close to the coast, work anywhere.",
		Hero: "Aldercrest is a small college with strong industry ties. " +
			"Our advisors answer questions in minutes, not weeks — try the chat in the corner.",
		InfoBlocks: []InfoBlock{
			{Heading: "Small cohorts", Body: "Seminar groups cap at eighteen students, so staff know your name by week two."},
			{Heading: "Placement year", Body: "Every undergraduate programme offers an optional placement year with a partner employer."},
			{Heading: "Coastal campus", Body: "Teaching buildings, labs and halls sit within ten minutes of the seafront."},
		},
		Programmes: []Programme{
			{Name: "Computer Science", Award: "BSc (Hons)", Duration: "3 years", Blurb: "Systems, networks and software engineering with an optional placement year."},
			{Name: "Marine Biology", Award: "BSc (Hons)", Duration: "3 years", Blurb: "Fieldwork-first biology taught from our own research boat."},
			{Name: "Business Management", Award: "BA (Hons)", Duration: "3 years", Blurb: "Management fundamentals with live briefs from regional firms."},
			{Name: "Data Science", Award: "MSc", Duration: "1 year", Blurb: "Statistics, machine learning and data engineering for graduates of any numerate degree."},
		},
	}
}

// DefaultFAQ returns the curated questions shown when no external FAQ source
// is configured. These double as suggested questions inside the chat widget.
func DefaultFAQ() []models.FAQItem {
	return []models.FAQItem{
		{Question: "What courses do you offer?", Answer: "Undergraduate degrees in computer science, marine biology and business management, plus a one-year MSc in data science."},
		{Question: "When do applications close?", Answer: "Main-round applications close 31 January; late applications are considered while places remain."},
		{Question: "Do you offer scholarships?", Answer: "Yes. Merit scholarships cover up to half of tuition, and hardship awards are assessed separately."},
		{Question: "Can I visit the campus?", Answer: "Open days run monthly during term. Book through the enquiry form and admissions will confirm a date."},
	}
}

// pageData is what the landing template renders. Content fields are promoted.
type pageData struct {
	Content
	AgentName string
	FAQ       []models.FAQItem
	Year      int
}

// Handler renders the public marketing pages.
type Handler struct {
	tmpl      *template.Template
	content   Content
	faq       integrations.FAQSource
	agentName string
	log       *zap.Logger
}

// NewHandler parses the embedded templates and returns a page handler. The
// FAQ source feeds the questions section; agentName is shown next to the chat
// mount so the page and the widget agree on who the visitor is talking to.
func NewHandler(content Content, faq integrations.FAQSource, agentName string, log *zap.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing site templates: %w", err)
	}
	return &Handler{
		tmpl:      tmpl,
		content:   content,
		faq:       faq,
		agentName: agentName,
		log:       log,
	}, nil
}

// HandleIndex renders the landing page. Mounted at "/", it also catches
// unknown paths, which get a plain 404.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	faq, err := h.faq.ListFAQ(r.Context())
	if err != nil {
		// The page still renders, just without the questions section.
		h.log.Warn("FAQ unavailable for page render", zap.Error(err))
	}

	data := pageData{
		Content:   h.content,
		AgentName: h.agentName,
		FAQ:       faq,
		Year:      time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		h.log.Error("failed to render landing page", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// StaticHandler serves the embedded stylesheet and images under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static tree: %v", err))
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
