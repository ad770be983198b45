package config

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultThemes are the stylesheets shipped with a new site.
var DefaultThemes = []string{"goofy", "dark", "light", "sports"}

// DefaultSections mirror the layout of a new site: a paged blog and two
// incrementally loaded grids.
func DefaultSections() []Section {
	return []Section{
		{
			Name:     "blog",
			Title:    "Blog",
			Index:    "posts/index.json",
			ItemsDir: "posts",
			ItemKey:  "post",
			PageSize: 10,
			Paging:   PagingPages,
		},
		{
			Name:      "projects",
			Title:     "Projects",
			Index:     "projects/index.json",
			ItemsDir:  "projects",
			ItemKey:   "project",
			BatchSize: 12,
			Paging:    PagingBatches,
		},
		{
			Name:      "music",
			Title:     "Music",
			Index:     "music/index.json",
			ItemsDir:  "music",
			ItemKey:   "music",
			BatchSize: 12,
			Paging:    PagingBatches,
		},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SiteDir:      ".",
		SiteTitle:    "folio",
		MainPage:     "home",
		Port:         8080,
		LogLevel:     "info",
		Themes:       append([]string(nil), DefaultThemes...),
		DefaultTheme: "goofy",
		Sections:     DefaultSections(),
		Tracker: TrackerConfig{
			Backend:       TrackerCookie,
			CookieName:    "lastReadPostDate",
			VisitorCookie: "folio_visitor",
			MaxAgeDays:    365,
			NoticeSeconds: 5,
		},
		DatabasePath: ".folio/folio.db",
		Index: IndexConfig{
			PostsDir:     "posts",
			UploadTarget: "blog",
			SongMarker:   "שיר היום:",
			SongCategory: "travel",
			SongsOutput:  "data/songs.json",
		},
		Discogs: DiscogsConfig{
			Output:            "data/discogs.json",
			PerPage:           100,
			RequestsPerMinute: 25,
		},
	}
}

// applyDefaults fills per-section fields a config file left out.
func (s *Section) applyDefaults() {
	if s.Title == "" && s.Name != "" {
		s.Title = cases.Title(language.English).String(s.Name)
	}
	if s.ItemsDir == "" {
		s.ItemsDir = s.Name
	}
	if s.Index == "" {
		s.Index = s.ItemsDir + "/index.json"
	}
	if s.ItemKey == "" {
		s.ItemKey = singular(s.Name)
	}
	if s.Paging == "" {
		s.Paging = PagingPages
	}
	if s.PageSize <= 0 {
		s.PageSize = 10
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 10
	}
}

func singular(name string) string {
	switch {
	case name == "blog", name == "posts":
		return "post"
	case len(name) > 1 && name[len(name)-1] == 's':
		return name[:len(name)-1]
	default:
		return name
	}
}
