package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/folio/internal/browse"
	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/unread"
)

// terminalVisitor scopes the sqlite tracker entries of the terminal browser.
const terminalVisitor = "terminal"

var browseCmd = &cobra.Command{
	Use:   "browse <section> [query]",
	Short: "Browse a section in the terminal",
	Long: `Opens a section in an interactive terminal browser. The optional query
uses the same parameters as the site, e.g. "category=travel&page=2" or
"post=lisbon.md".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

const (
	actionNext     = "Next page >"
	actionPrev     = "< Previous page"
	actionMore     = "Load more"
	actionCategory = "Filter by category"
	actionSearch   = "Search"
	actionBack     = "History back"
	actionForward  = "History forward"
	actionList     = "Back to the list"
	actionQuit     = "Quit"
)

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conf, ok := cfg.Section(args[0])
	if !ok {
		return fmt.Errorf("unknown section %q", args[0])
	}
	query := ""
	if len(args) == 2 {
		query = args[1]
	}
	ctx := context.Background()

	siteFS := os.DirFS(cfg.SiteDir)
	var src content.Source = content.FileSource{FS: siteFS, Path: conf.Index}
	if conf.IsRemote() {
		src = content.HTTPSource{URL: conf.Index}
	}
	idx, err := content.NewLoader(src).Load(ctx)
	if err != nil {
		return err
	}
	repo := content.NewRepository(siteFS, conf.ItemsDir)

	var store unread.Store = unread.NewMemoryStore()
	if cfg.Tracker.Backend == config.TrackerSQLite {
		database, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		store = unread.NewDBStore(database, terminalVisitor)
	}
	tracker := unread.NewTracker(store,
		unread.WithKey(cfg.Tracker.CookieName),
		unread.WithMaxAge(cfg.Tracker.MaxAge()),
		unread.WithDismissAfter(cfg.Tracker.NoticeDuration()),
	)

	sess, err := browse.NewSession(idx, browse.Options{
		ItemKey:   conf.ItemKey,
		Policy:    browse.Policy(conf.Paging),
		PageSize:  conf.PageSize,
		BatchSize: conf.BatchSize,
		Fetch:     repo.LoadPreview,
	}, query)
	if err != nil {
		return err
	}

	b := &terminalBrowser{
		conf:     conf,
		idx:      idx,
		repo:     repo,
		sess:     sess,
		tracker:  tracker,
		notifier: unread.NewNotifier(nil, nil),
	}
	defer b.notifier.Stop()
	return b.run(ctx)
}

type terminalBrowser struct {
	conf     *config.Section
	idx      *content.Index
	repo     *content.Repository
	sess     *browse.Session
	tracker  *unread.Tracker
	notifier *unread.Notifier
	notice   unread.Notice
	noticed  bool
}

func (b *terminalBrowser) run(ctx context.Context) error {
	for {
		var (
			quit bool
			err  error
		)
		if it := b.sess.View().Open; it != nil {
			quit, err = b.showItem(ctx, it)
		} else {
			quit, err = b.showList(ctx)
		}
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil || quit {
			return err
		}
	}
}

func (b *terminalBrowser) showList(ctx context.Context) (bool, error) {
	view := b.sess.View()
	errs := browse.FetchAll(ctx, view.Visible, b.repo.LoadPreview)
	visible := content.CloneAll(view.Visible)
	notice, err := b.tracker.Annotate(ctx, visible)
	if err != nil {
		return false, err
	}
	if !b.noticed {
		// Only the first list shown counts as arriving at the site.
		b.noticed = true
		b.notice = notice
		b.notifier.Trigger(notice)
	}

	label := fmt.Sprintf("%s - %s", b.conf.Title, describe(view))
	if b.notifier.Active() {
		label = b.notice.Message + " | " + label
	}

	var labels []string
	for _, it := range visible {
		line := it.Title
		if it.Date != "" {
			line += "  (" + it.Date + ")"
		}
		if it.IsUnread {
			line += "  [new]"
		}
		if errs[it.Filename] != nil {
			line += "  [preview unavailable]"
		}
		labels = append(labels, line)
	}
	if len(view.Filtered) == 0 {
		labels = append(labels, "(No posts found)")
	}

	var actions []string
	switch browse.Policy(b.conf.Paging) {
	case browse.PolicyBatches:
		if !view.Done {
			actions = append(actions, actionMore)
		}
	default:
		if view.Page.HasNext() {
			actions = append(actions, actionNext)
		}
		if view.Page.HasPrev() {
			actions = append(actions, actionPrev)
		}
	}
	actions = append(actions, actionCategory, actionSearch, actionBack, actionForward, actionQuit)

	sel := promptui.Select{
		Label: label,
		Items: append(labels, actions...),
		Size:  15,
	}
	i, choice, err := sel.Run()
	if err != nil {
		return false, err
	}
	if i < len(visible) {
		_, err := b.sess.Open(visible[i].Filename, false)
		return false, err
	}

	switch choice {
	case actionNext:
		b.sess.SetPage(view.Page.Number+1, false)
	case actionPrev:
		b.sess.SetPage(view.Page.Number-1, false)
	case actionMore:
		batch, err := b.sess.LoadMore(ctx)
		if err != nil && !errors.Is(err, browse.ErrBatchInFlight) {
			return false, err
		}
		if len(batch.Errors) > 0 {
			fmt.Fprintf(os.Stderr, "%d previews could not be loaded\n", len(batch.Errors))
		}
	case actionCategory:
		cats := append([]string{browse.AllCategories}, b.idx.Categories()...)
		_, c, err := (&promptui.Select{Label: "Category", Items: cats}).Run()
		if err != nil {
			return false, err
		}
		b.sess.SetCategory(c, false)
	case actionSearch:
		q, err := (&promptui.Prompt{Label: "Search", Default: view.State.Search, AllowEdit: true}).Run()
		if err != nil {
			return false, err
		}
		b.sess.SetSearch(strings.TrimSpace(q))
	case actionBack:
		_, err := b.sess.Back()
		return false, err
	case actionForward:
		_, err := b.sess.Forward()
		return false, err
	case actionQuit:
		return true, nil
	}
	return false, nil
}

func (b *terminalBrowser) showItem(ctx context.Context, it *content.Item) (bool, error) {
	fmt.Printf("\n%s\n", it.Title)
	if it.Date != "" {
		fmt.Println(it.Date)
	}
	fmt.Println(strings.Repeat("-", 60))
	doc, err := b.repo.Read(ctx, it.Filename)
	if err != nil {
		fmt.Printf("Could not load this %s: %v\n", b.conf.ItemKey, err)
	} else {
		fmt.Println(strings.TrimSpace(doc.Body))
		if _, err := b.tracker.MarkRead(ctx, it); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record last read: %v\n", err)
		}
	}
	fmt.Println()

	prev, next := b.idx.Neighbors(it.Filename)
	var actions []string
	if prev != nil {
		actions = append(actions, "< "+prev.Title)
	}
	if next != nil {
		actions = append(actions, next.Title+" >")
	}
	actions = append(actions, actionList, actionBack, actionQuit)

	_, choice, err := (&promptui.Select{Label: b.conf.Title, Items: actions}).Run()
	if err != nil {
		return false, err
	}
	switch {
	case prev != nil && choice == "< "+prev.Title:
		_, err = b.sess.Open(prev.Filename, false)
	case next != nil && choice == next.Title+" >":
		_, err = b.sess.Open(next.Filename, false)
	case choice == actionList:
		b.sess.Close(false)
	case choice == actionBack:
		_, err = b.sess.Back()
	case choice == actionQuit:
		return true, nil
	}
	return false, err
}

// describe summarizes the filter and position of a list view.
func describe(v browse.View) string {
	parts := []string{v.State.Category}
	if v.State.Search != "" {
		parts = append(parts, fmt.Sprintf("%q", v.State.Search))
	}
	if v.Page.Pages > 1 {
		parts = append(parts, fmt.Sprintf("page %d of %d", v.Page.Number, v.Page.Pages))
	} else if v.Page.Pages == 0 {
		parts = append(parts, fmt.Sprintf("%d of %d shown", len(v.Visible), len(v.Filtered)))
	}
	return strings.Join(parts, ", ")
}
