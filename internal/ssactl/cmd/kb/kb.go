// Package kb implements `ssactl kb`, the maintenance commands of the local
// help-center knowledge base.
package kb

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/knowledge"
	"github.com/kiosk404/sankhya-agent/internal/ssactl/cmd/util"
	"github.com/kiosk404/sankhya-agent/pkg/cli/genericclioptions"
)

const defaultDB = "knowledge/sankhya_knowledge.db"

func NewCmdKB(ioStreams genericclioptions.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Build and query the local help-center knowledge base",
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	cmd.AddCommand(newCmdIndex(ioStreams))
	cmd.AddCommand(newCmdSearch(ioStreams))
	return cmd
}

type IndexOptions struct {
	DB      string
	File    string
	URL     string
	Locale  string
	Timeout time.Duration

	genericclioptions.IOStreams
}

func newCmdIndex(ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &IndexOptions{
		DB:        defaultDB,
		URL:       knowledge.DefaultHelpCenterURL,
		Locale:    knowledge.DefaultLocale,
		Timeout:   30 * time.Second,
		IOStreams: ioStreams,
	}
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index help-center articles into the knowledge database",
		Long: heredoc.Doc(`
			Download the published articles of the Sankhya help center, or read
			them from an exported page, and store them in the SQLite database
			searched by the search_solutions tool.

			Articles already indexed are only rewritten when their updated_at
			changed, so the command can run on a schedule.`),
		Example: heredoc.Doc(`
			# Fetch every article from the help center
			ssactl kb index

			# Index a saved articles.json page
			ssactl kb index --file=articles.json --db=/var/lib/ssa/knowledge.db`),
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			util.CheckErr(o.Validate())
			util.CheckErr(o.Run(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&o.DB, "db", o.DB, "Path of the knowledge database.")
	cmd.Flags().StringVar(&o.File, "file", o.File, "Index an exported articles.json page instead of fetching.")
	cmd.Flags().StringVar(&o.URL, "url", o.URL, "Help-center articles endpoint.")
	cmd.Flags().StringVar(&o.Locale, "locale", o.Locale, "Only index articles of this locale.")
	cmd.Flags().DurationVar(&o.Timeout, "request-timeout", o.Timeout, "Timeout of each help-center request.")
	return cmd
}

func (o *IndexOptions) Validate() error {
	if o.DB == "" {
		return fmt.Errorf("--db is required")
	}
	if o.File == "" && o.URL == "" {
		return fmt.Errorf("either --file or --url is required")
	}
	return nil
}

func (o *IndexOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	articles, fetchErr := o.load(ctx)
	if fetchErr != nil && len(articles) == 0 {
		return fetchErr
	}
	fmt.Fprintf(o.Out, "%s %d published articles\n", color.GreenString("==>"), len(articles))

	store, err := knowledge.Open(o.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := store.Index(ctx, articles)
	if err != nil {
		return fmt.Errorf("index articles: %w", err)
	}
	fmt.Fprintf(o.Out, "%s new: %d, updated: %d, unchanged: %d\n", color.GreenString("==>"), res.New, res.Updated, res.Skipped)
	if !store.FTSAvailable() {
		fmt.Fprintf(o.Out, "%s FTS5 is not available, searches fall back to LIKE\n", color.YellowString("warning:"))
	}
	if fetchErr != nil {
		// partial download: what arrived is kept, the failure still surfaces
		return fmt.Errorf("fetch stopped early: %w", fetchErr)
	}
	return nil
}

func (o *IndexOptions) load(ctx context.Context) ([]knowledge.Article, error) {
	if o.File != "" {
		return knowledge.LoadExport(o.File, o.Locale)
	}
	f := &knowledge.Fetcher{
		URL:        o.URL,
		Locale:     o.Locale,
		HTTPClient: &http.Client{Timeout: o.Timeout},
	}
	return f.Fetch(ctx)
}

type SearchOptions struct {
	DB    string
	Limit int

	genericclioptions.IOStreams
}

func newCmdSearch(ioStreams genericclioptions.IOStreams) *cobra.Command {
	o := &SearchOptions{DB: defaultDB, Limit: 5, IOStreams: ioStreams}
	cmd := &cobra.Command{
		Use:                   "search QUERY",
		DisableFlagsInUseLine: true,
		Short:                 "Search the knowledge database the way the agent does",
		Args:                  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			util.CheckErr(o.Run(cmd.Context(), strings.Join(args, " ")))
		},
	}
	cmd.Flags().StringVar(&o.DB, "db", o.DB, "Path of the knowledge database.")
	cmd.Flags().IntVar(&o.Limit, "limit", o.Limit, "Maximum number of articles.")
	return cmd
}

func (o *SearchOptions) Run(ctx context.Context, query string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !knowledge.Exists(o.DB) {
		return fmt.Errorf("knowledge database %q not found, run `ssactl kb index` first", o.DB)
	}
	store, err := knowledge.Open(o.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	found, err := store.Search(ctx, query, o.Limit)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(o.Out, "No articles found.")
		return nil
	}
	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("ID", "TITLE", "URL")
	for _, a := range found {
		table.AddRow(a.ID, a.Title, a.URL)
	}
	fmt.Fprintln(o.Out, table)
	return nil
}
