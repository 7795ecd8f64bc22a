package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/crewsync/crewsync/internal/config"
	"github.com/crewsync/crewsync/internal/template"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage team templates",
	Long:  `Commands for listing team templates and toggling favorites.`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved templates",
	RunE:  runTemplatesList,
}

var templatesFavoriteCmd = &cobra.Command{
	Use:   "favorite <name>",
	Short: "Toggle a template's favorite flag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesFavorite,
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesDelete,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesFavoriteCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)
}

func openTemplateService() (*template.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return template.NewService(cfg.Paths.ResolveTemplatesDir()), nil
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	svc, err := openTemplateService()
	if err != nil {
		return err
	}

	templates, err := svc.List()
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no templates saved")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROLES\tFAVORITE\tDESCRIPTION")
	for _, t := range templates {
		fav := ""
		if t.Favorite {
			fav = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", t.Name, len(t.Roles), fav, t.Description)
	}
	return w.Flush()
}

func runTemplatesFavorite(cmd *cobra.Command, args []string) error {
	svc, err := openTemplateService()
	if err != nil {
		return err
	}

	on, err := svc.ToggleFavorite(args[0])
	if err != nil {
		return err
	}
	if on {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now a favorite\n", args[0])
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer a favorite\n", args[0])
	}
	return nil
}

func runTemplatesDelete(cmd *cobra.Command, args []string) error {
	svc, err := openTemplateService()
	if err != nil {
		return err
	}

	if err := svc.Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted template %s\n", args[0])
	return nil
}
