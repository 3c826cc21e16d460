package model

// Lang tags the language of an article.
type Lang string

const (
	LangFR Lang = "fr"
	LangEN Lang = "en"
)

// Source is a syndication feed belonging to a category.
type Source struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Official bool   `json:"official,omitempty"` // institutional publisher (HAS, ANSM, INSERM...)
}

// Category is a topical bucket with its own feeds and literature queries.
// Categories are static configuration: nothing mutates them during a run.
type Category struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Icon     string   `json:"icon"`
	Color    string   `json:"color"`
	Gradient string   `json:"gradient"`
	Queries  []string `json:"queries"`
	Sources  []Source `json:"sources"`
}

// DefaultCategories returns the built-in medical watch categories.
func DefaultCategories() []Category {
	return []Category{
		{
			Key:      "innovation",
			Name:     "Bio-Innovation & Tech",
			Icon:     "Microscope",
			Color:    "violet",
			Gradient: "from-violet-500 to-purple-600",
			Queries:  []string{"innovation médicale technology", "biotechnologie santé France", "e-santé innovation"},
			Sources: []Source{
				{Name: "Biotech.info", URL: "https://www.biotech.info/rss.php"},
				{Name: "TIC Santé", URL: "https://www.ticsante.com/rss.php"},
				{Name: "Google News Innovation", URL: "https://news.google.com/rss/search?q=innovation+m%C3%A9dicale+language%3Afr&hl=fr&gl=FR&ceid=FR%3Afr"},
			},
		},
		{
			Key:      "imaging",
			Name:     "Imagerie & Diagnostic",
			Icon:     "Scan",
			Color:    "cyan",
			Gradient: "from-cyan-500 to-blue-600",
			Queries:  []string{"radiologie innovation", "scanner IRM technologie", "intelligence artificielle imagerie médicale"},
			Sources: []Source{
				{Name: "HAS Actualités", URL: "https://www.has-sante.fr/portail/js/rss/actualites.xml", Official: true},
				{Name: "Google News Imagerie", URL: "https://news.google.com/rss/search?q=imagerie+m%C3%A9dicale+language%3Afr&hl=fr&gl=FR&ceid=FR%3Afr"},
			},
		},
		{
			Key:      "oncology",
			Name:     "Oncologie & Thérapeutique",
			Icon:     "Heart",
			Color:    "rose",
			Gradient: "from-rose-500 to-pink-600",
			Queries:  []string{"oncologie traitements innovation", "cancer recherche immunothérapie"},
			Sources: []Source{
				{Name: "ANSM Actualités", URL: "https://ansm.sante.fr/actualites/rss", Official: true},
				{Name: "Google News Oncologie", URL: "https://news.google.com/rss/search?q=cancer+traitements+innovation+language%3Afr&hl=fr&gl=FR&ceid=FR%3Afr"},
			},
		},
		{
			Key:      "clinical",
			Name:     "Recherche & Clinique",
			Icon:     "FlaskConical",
			Color:    "emerald",
			Gradient: "from-emerald-500 to-teal-600",
			Queries:  []string{"essais cliniques résultats", "recherche médicale Inserm"},
			Sources: []Source{
				{Name: "INSERM", URL: "https://www.inserm.fr/feed/", Official: true},
				{Name: "Santé Publique France", URL: "https://www.santepubliquefrance.fr/rss/articles", Official: true},
				{Name: "Google News Recherche", URL: "https://news.google.com/rss/search?q=recherche+m%C3%A9dicale+language%3Afr&hl=fr&gl=FR&ceid=FR%3Afr"},
			},
		},
	}
}
