package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
)

// siteMarkers maps files found in an existing site directory to the section
// they indicate.
var siteMarkers = map[string]string{
	"posts/index.json":    "blog",
	"projects/index.json": "projects",
	"music/index.json":    "music",
}

// detectSections returns the default sections whose index already exists
// under dir, in their default order.
func detectSections(dir string) []string {
	var found []string
	for _, s := range DefaultSections() {
		for marker, name := range siteMarkers {
			if name != s.Name {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				found = append(found, name)
			}
		}
	}
	return found
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to folio! Let's configure your site.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Site directory.
	dirPrompt := promptui.Prompt{
		Label:   "Site directory",
		Default: cfg.SiteDir,
	}
	siteDir, err := dirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("site directory: %w", err)
	}
	cfg.SiteDir = siteDir

	if found := detectSections(siteDir); len(found) > 0 {
		fmt.Printf("Detected sections: %s\n\n", strings.Join(found, ", "))
	}

	// 2. Title.
	titlePrompt := promptui.Prompt{
		Label:   "Site title",
		Default: cfg.SiteTitle,
	}
	if cfg.SiteTitle, err = titlePrompt.Run(); err != nil {
		return nil, fmt.Errorf("site title: %w", err)
	}

	// 3. Main page.
	pages := []string{"home"}
	for _, s := range cfg.Sections {
		pages = append(pages, s.Name)
	}
	mainPrompt := promptui.Select{
		Label: "Page shown at /",
		Items: pages,
	}
	if _, cfg.MainPage, err = mainPrompt.Run(); err != nil {
		return nil, fmt.Errorf("main page selection: %w", err)
	}

	// 4. Theme.
	themePrompt := promptui.Select{
		Label: "Default theme",
		Items: cfg.Themes,
	}
	if _, cfg.DefaultTheme, err = themePrompt.Run(); err != nil {
		return nil, fmt.Errorf("theme selection: %w", err)
	}

	// 5. Unread tracking.
	trackerPrompt := promptui.Select{
		Label: "Where to remember each visitor's last read post",
		Items: []string{
			"cookie - the timestamp lives in the browser",
			"sqlite - a visitor id cookie, timestamps in the database",
		},
	}
	idx, _, err := trackerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("tracker selection: %w", err)
	}
	cfg.Tracker.Backend = []TrackerBackend{TrackerCookie, TrackerSQLite}[idx]

	// 6. Discogs.
	discogsPrompt := promptui.Prompt{
		Label:   "Discogs username (leave blank to skip)",
		Default: "",
	}
	if cfg.Discogs.Username, err = discogsPrompt.Run(); err != nil {
		return nil, fmt.Errorf("discogs username: %w", err)
	}

	// 7. Extra exclude patterns.
	excludePrompt := promptui.Prompt{
		Label:   "Extra index exclude patterns (comma-separated, leave blank for none)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	cfg.Index.Exclude = splitAndTrim(excludeStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Discogs.Username != "" && os.Getenv("FOLIO_DISCOGS__TOKEN") == "" {
		fmt.Println("\nNote: set FOLIO_DISCOGS__TOKEN for a higher Discogs rate limit.")
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
