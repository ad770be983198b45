// Package discogs imports a user's record collection from the Discogs API
// into the JSON document the music page reads.
package discogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ziadkadry99/folio/internal/logging"
	"github.com/ziadkadry99/folio/internal/progress"
)

const (
	DefaultBaseURL   = "https://api.discogs.com"
	DefaultUserAgent = "folio/1.0 +https://github.com/ziadkadry99/folio"
	DefaultPerPage   = 100
	// Discogs allows 25 unauthenticated requests per minute.
	DefaultRequestsPerMinute = 25
)

// ErrNoUsername is returned when no collection owner is configured.
var ErrNoUsername = errors.New("discogs username is required")

// Release is one record of the exported collection.
type Release struct {
	ID      int      `json:"id"`
	Title   string   `json:"title"`
	Artist  string   `json:"artist"`
	Year    int      `json:"year"`
	Genres  []string `json:"genres"`
	Styles  []string `json:"styles"`
	Formats []string `json:"formats"`
	Cover   string   `json:"cover"`
}

// Client pages through a collection.
type Client struct {
	baseURL   string
	userAgent string
	token     string
	perPage   int
	client    *http.Client
	limiter   *rate.Limiter
	reporter  progress.Reporter
}

// Options configures a Client. Zero values use the defaults.
type Options struct {
	BaseURL           string
	UserAgent         string
	Token             string // optional personal access token
	PerPage           int
	RequestsPerMinute int
	Reporter          progress.Reporter
}

// NewClient creates a Discogs client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if opts.Reporter == nil {
		opts.Reporter = progress.Nop{}
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		token:     opts.Token,
		perPage:   opts.PerPage,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		reporter:  opts.Reporter,
	}
}

type collectionPage struct {
	Pagination struct {
		Page  int `json:"page"`
		Pages int `json:"pages"`
		Items int `json:"items"`
	} `json:"pagination"`
	Releases []struct {
		BasicInformation basicInformation `json:"basic_information"`
	} `json:"releases"`
}

type basicInformation struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Year    int    `json:"year"`
	Cover   string `json:"cover_image"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Genres  []string `json:"genres"`
	Styles  []string `json:"styles"`
	Formats []struct {
		Name string `json:"name"`
	} `json:"formats"`
}

// Collection fetches every release in the user's "All" folder. Paging stops
// at an empty page or at the last page the API reports.
func (c *Client) Collection(ctx context.Context, username string) ([]Release, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrNoUsername
	}

	var all []Release
	started := false
	for page := 1; ; page++ {
		p, err := c.fetchPage(ctx, username, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if !started {
			c.reporter.Start(p.Pagination.Pages)
			defer c.reporter.Finish()
			started = true
		}
		c.reporter.Update(page, fmt.Sprintf("page %d of %d", page, p.Pagination.Pages))

		if len(p.Releases) == 0 {
			break
		}
		for _, r := range p.Releases {
			all = append(all, toRelease(r.BasicInformation))
		}
		logging.Debug("fetched discogs page", "page", page, "releases", len(p.Releases))

		if p.Pagination.Pages <= page {
			break
		}
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, username string, page int) (*collectionPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.perPage))
	endpoint := fmt.Sprintf("%s/users/%s/collection/folders/0/releases?%s",
		c.baseURL, url.PathEscape(username), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Discogs token="+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discogs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p collectionPage
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &p, nil
}

func toRelease(info basicInformation) Release {
	artists := make([]string, len(info.Artists))
	for i, a := range info.Artists {
		artists[i] = a.Name
	}
	formats := make([]string, len(info.Formats))
	for i, f := range info.Formats {
		formats[i] = f.Name
	}
	r := Release{
		ID:      info.ID,
		Title:   info.Title,
		Artist:  strings.Join(artists, ", "),
		Year:    info.Year,
		Genres:  info.Genres,
		Styles:  info.Styles,
		Formats: formats,
		Cover:   info.Cover,
	}
	if r.Genres == nil {
		r.Genres = []string{}
	}
	if r.Styles == nil {
		r.Styles = []string{}
	}
	return r
}
