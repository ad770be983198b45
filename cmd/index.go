package cmd

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/folio/internal/content"
	"github.com/ziadkadry99/folio/internal/indexgen"
	"github.com/ziadkadry99/folio/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Generate the JSON indexes the site is served from",
}

var indexPostsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Index blog posts from their front matter",
	Long: `Walks the posts directory for markdown files, keeps those whose uploadto
front matter lists the upload target, and writes posts/index.json.`,
	Args: cobra.NoArgs,
	RunE: runIndexPosts,
}

var indexSongsCmd = &cobra.Command{
	Use:   "songs",
	Short: "Extract the songs of the day from indexed posts",
	Args:  cobra.NoArgs,
	RunE:  runIndexSongs,
}

var indexGridCmd = &cobra.Command{
	Use:   "grid <section>",
	Short: "Index every markdown and HTML file of a grid section",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexGrid,
}

func init() {
	indexPostsCmd.Flags().String("output", "", "output file (default <posts_dir>/index.json)")
	indexPostsCmd.Flags().String("target", "", "upload target to keep (overrides config)")
	indexCmd.AddCommand(indexPostsCmd, indexSongsCmd, indexGridCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexPosts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target := cfg.Index.UploadTarget
	if t, _ := cmd.Flags().GetString("target"); t != "" {
		target = t
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.SitePath(path.Join(cfg.Index.PostsDir, "index.json"))
	}

	entries, err := indexgen.GeneratePosts(context.Background(), os.DirFS(cfg.SitePath(cfg.Index.PostsDir)), indexgen.PostOptions{
		Exclude:      cfg.Index.Exclude,
		UploadTarget: target,
		SongMarker:   cfg.Index.SongMarker,
		Reporter:     progress.NewReporter("Indexing posts"),
	})
	if err != nil {
		return fmt.Errorf("indexing posts: %w", err)
	}
	if err := indexgen.WriteJSON(output, entries); err != nil {
		return err
	}
	fmt.Printf("Wrote %d posts to %s\n", len(entries), output)
	return nil
}

func runIndexSongs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	postsDir := cfg.SitePath(cfg.Index.PostsDir)
	indexPath := path.Join(cfg.Index.PostsDir, "index.json")

	f, err := os.Open(cfg.SitePath(indexPath))
	if err != nil {
		return fmt.Errorf("opening posts index: %w\nRun `folio index posts` first", err)
	}
	defer f.Close()
	idx, err := content.ReadIndex(f)
	if err != nil {
		return err
	}

	songs, err := indexgen.GenerateSongs(context.Background(), os.DirFS(postsDir), idx.Items(), indexgen.SongOptions{
		Category: cfg.Index.SongCategory,
		Marker:   cfg.Index.SongMarker,
	})
	if err != nil {
		return fmt.Errorf("indexing songs: %w", err)
	}
	output := cfg.SitePath(cfg.Index.SongsOutput)
	if err := indexgen.WriteJSON(output, songs); err != nil {
		return err
	}
	fmt.Printf("Wrote %d songs to %s\n", len(songs), output)
	return nil
}

func runIndexGrid(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sec, ok := cfg.Section(args[0])
	if !ok {
		return fmt.Errorf("unknown section %q", args[0])
	}
	if sec.IsRemote() {
		return fmt.Errorf("section %q reads a remote index (%s)", sec.Name, sec.Index)
	}

	entries, err := indexgen.GenerateGrid(context.Background(), os.DirFS(cfg.SitePath(sec.ItemsDir)), indexgen.GridOptions{
		Exclude:  cfg.Index.Exclude,
		Reporter: progress.NewReporter("Indexing " + sec.Name),
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", sec.Name, err)
	}
	output := cfg.SitePath(sec.Index)
	if err := indexgen.WriteJSON(output, entries); err != nil {
		return err
	}
	fmt.Printf("Wrote %d items to %s\n", len(entries), output)
	return nil
}
