package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/hirefactory/internal/prompt"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage stage prompt templates",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range prompt.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var templatesInstallCmd = &cobra.Command{
	Use:   "install [dir]",
	Short: "Copy the built-in templates to a directory for editing",
	Long: `Copy the built-in prompt templates into dir (default: templates_dir from the
config, else ~/.hirefactory/templates). Set templates_dir to that directory and
edited templates replace the built-in ones. Existing files are kept unless
--force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		dir := ""
		if len(args) == 1 {
			dir = args[0]
		} else {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			dir = cfg.TemplatesPath()
		}
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("get home dir: %w", err)
			}
			dir = filepath.Join(home, ".hirefactory", "templates")
		}

		written, err := prompt.Install(dir, force)
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d template(s) installed in %s\n", len(written), dir)
		return nil
	},
}

func init() {
	templatesInstallCmd.Flags().Bool("force", false, "overwrite existing files")
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesInstallCmd)
}
