package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/crewsync/crewsync/internal/archive"
	"github.com/crewsync/crewsync/internal/config"
	"github.com/spf13/cobra"
)

var archivesCmd = &cobra.Command{
	Use:   "archives",
	Short: "Inspect archived team sessions",
	Long:  `Commands for listing and deleting archived team sessions.`,
}

var archivesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions",
	RunE:  runArchivesList,
}

var archivesDeleteCmd = &cobra.Command{
	Use:   "delete <archive-id>",
	Short: "Delete an archived session",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchivesDelete,
}

func init() {
	rootCmd.AddCommand(archivesCmd)
	archivesCmd.AddCommand(archivesListCmd)
	archivesCmd.AddCommand(archivesDeleteCmd)
}

func openArchiveStore() (*archive.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return archive.NewService(cfg.Paths.ResolveArchiveDB())
}

func runArchivesList(cmd *cobra.Command, args []string) error {
	svc, err := openArchiveStore()
	if err != nil {
		return err
	}
	defer svc.Close()

	entries, err := svc.ListArchives(context.Background())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no archived sessions")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTEAM\tARCHIVED\tMEMBERS\tTASKS\tMESSAGES")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			e.ID, e.TeamName, e.ArchivedAt.Format("2006-01-02 15:04"),
			e.Members, e.Tasks, e.Messages)
	}
	return w.Flush()
}

func runArchivesDelete(cmd *cobra.Command, args []string) error {
	svc, err := openArchiveStore()
	if err != nil {
		return err
	}
	defer svc.Close()

	id := args[0]
	if err := svc.DeleteArchive(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted archive %s\n", id)
	return nil
}
