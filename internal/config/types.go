package config

import "strings"

// Paging selects how a section reveals its filtered items.
type Paging string

const (
	PagingPages   Paging = "pages"
	PagingBatches Paging = "batches"
)

// TrackerBackend selects where the unread tracker keeps its timestamp.
type TrackerBackend string

const (
	TrackerCookie TrackerBackend = "cookie"
	TrackerSQLite TrackerBackend = "sqlite"
)

// Config is the top-level folio configuration, corresponding to .folio.yml.
type Config struct {
	SiteDir      string        `yaml:"site_dir" koanf:"site_dir"`
	SiteTitle    string        `yaml:"site_title" koanf:"site_title"`
	MainPage     string        `yaml:"main_page" koanf:"main_page"`
	Port         int           `yaml:"port" koanf:"port"`
	LogLevel     string        `yaml:"log_level" koanf:"log_level"`
	Themes       []string      `yaml:"themes" koanf:"themes"`
	DefaultTheme string        `yaml:"default_theme" koanf:"default_theme"`
	Sections     []Section     `yaml:"sections" koanf:"sections"`
	Tracker      TrackerConfig `yaml:"tracker" koanf:"tracker"`
	DatabasePath string        `yaml:"database_path" koanf:"database_path"`
	Index        IndexConfig   `yaml:"index" koanf:"index"`
	Discogs      DiscogsConfig `yaml:"discogs" koanf:"discogs"`
}

// Section is one browsable collection: the blog, the project gallery or the
// music grid.
type Section struct {
	Name      string `yaml:"name" koanf:"name"`
	Title     string `yaml:"title" koanf:"title"`
	Index     string `yaml:"index" koanf:"index"`         // path under site_dir, or an http(s) URL
	ItemsDir  string `yaml:"items_dir" koanf:"items_dir"` // path under site_dir
	ItemKey   string `yaml:"item_key" koanf:"item_key"`   // query parameter of the open item
	PageSize  int    `yaml:"page_size" koanf:"page_size"`
	BatchSize int    `yaml:"batch_size" koanf:"batch_size"`
	Paging    Paging `yaml:"paging" koanf:"paging"`
}

// IsRemote reports whether the section's index is fetched over HTTP.
func (s Section) IsRemote() bool {
	return strings.HasPrefix(s.Index, "http://") || strings.HasPrefix(s.Index, "https://")
}

// TrackerConfig holds unread tracker settings.
type TrackerConfig struct {
	Backend       TrackerBackend `yaml:"backend" koanf:"backend"`
	CookieName    string         `yaml:"cookie_name" koanf:"cookie_name"`
	VisitorCookie string         `yaml:"visitor_cookie" koanf:"visitor_cookie"`
	MaxAgeDays    int            `yaml:"max_age_days" koanf:"max_age_days"`
	NoticeSeconds int            `yaml:"notice_seconds" koanf:"notice_seconds"`
}

// IndexConfig holds settings of the index generators.
type IndexConfig struct {
	PostsDir     string   `yaml:"posts_dir" koanf:"posts_dir"`
	UploadTarget string   `yaml:"upload_target" koanf:"upload_target"`
	SongMarker   string   `yaml:"song_marker" koanf:"song_marker"`
	SongCategory string   `yaml:"song_category" koanf:"song_category"`
	SongsOutput  string   `yaml:"songs_output" koanf:"songs_output"`
	Exclude      []string `yaml:"exclude" koanf:"exclude"`
}

// DiscogsConfig holds settings of the collection import.
type DiscogsConfig struct {
	Username          string `yaml:"username" koanf:"username"`
	Token             string `yaml:"token,omitempty" koanf:"token"`
	Output            string `yaml:"output" koanf:"output"`
	PerPage           int    `yaml:"per_page" koanf:"per_page"`
	RequestsPerMinute int    `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}
