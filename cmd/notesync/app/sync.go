package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/notesync/internal/changeset"
	"github.com/agentstation/notesync/internal/cmd/output"
	"github.com/agentstation/notesync/internal/gitdiff"
	"github.com/agentstation/notesync/pkg/logging"
	"github.com/agentstation/notesync/pkg/notion"
	syncpkg "github.com/agentstation/notesync/pkg/sync"
)

// NewSyncCommand creates the sync command with app dependencies.
func (a *App) NewSyncCommand() *cobra.Command {
	var (
		root        string
		mode        string
		before      string
		after       string
		concurrency int
		token       string
		parent      string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the Markdown tree with Notion pages",
		Long: `Sync walks the Markdown tree under --root and mirrors it to Notion.

Root-level documents become pages under the configured parent page;
documents in folders become pages under a folder page named after the
folder. Each document's page id is written back into its frontmatter
so the next run updates the same page instead of creating a new one.

With --mode=changed and both --before and --after git references, only
documents git reports as changed are synced, plus any document that has
never been synced. When the references cannot be compared, sync falls
back to the full tree.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd, syncSettings{
				root:        root,
				mode:        mode,
				before:      before,
				after:       after,
				concurrency: concurrency,
				token:       token,
				parent:      parent,
				dryRun:      dryRun,
			})
		},
	}

	cmd.Flags().StringVar(&root, "root", a.config.Root, "directory holding the Markdown tree")
	cmd.Flags().StringVar(&mode, "mode", a.config.Mode, "sync mode: all or changed")
	cmd.Flags().StringVar(&before, "before", "", "older git reference for changed mode")
	cmd.Flags().StringVar(&after, "after", "", "newer git reference for changed mode")
	cmd.Flags().IntVar(&concurrency, "concurrency", a.config.Concurrency, "max in-flight Notion operations")
	cmd.Flags().StringVar(&token, "token", "", "Notion integration token (default $NOTION_TOKEN)")
	cmd.Flags().StringVar(&parent, "parent", "", "Notion page id to sync under (default $NOTION_ROOT_PAGE_ID)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report planned actions without syncing")

	return cmd
}

type syncSettings struct {
	root        string
	mode        string
	before      string
	after       string
	concurrency int
	token       string
	parent      string
	dryRun      bool
}

func (a *App) runSync(cmd *cobra.Command, settings syncSettings) error {
	format, err := output.ParseFormat(a.config.Output)
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), a.logger)

	mode, err := changeset.ParseMode(settings.mode)
	if err != nil {
		return err
	}

	token := settings.token
	if token == "" {
		token = a.config.Token
	}
	parent := settings.parent
	if parent == "" {
		parent = a.config.ParentPageID
	}

	var client syncpkg.RemoteClient
	if !settings.dryRun {
		notionClient, err := notion.NewClient(notion.ClientOptions{
			Token:     token,
			UserAgent: "notesync/" + a.version,
		})
		if err != nil {
			return err
		}
		client = notionClient
	}

	engine, err := syncpkg.New(client,
		syncpkg.Options{
			Root:         settings.root,
			ParentPageID: parent,
			Mode:         mode,
			Before:       settings.before,
			After:        settings.after,
			Concurrency:  settings.concurrency,
			DryRun:       settings.dryRun,
		},
		syncpkg.WithDiffSource(gitdiff.New(settings.root)),
	)
	if err != nil {
		return err
	}

	summary, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(output.DetectFormat(string(format)))
	return formatter.Format(os.Stdout, summary)
}
