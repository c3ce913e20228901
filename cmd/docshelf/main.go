package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docshelf/internal/client"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DOCSHELF")
	v.AutomaticEnv()
	v.SetDefault("server", "http://localhost:8080")

	rootCmd := &cobra.Command{
		Use:           "docshelf",
		Short:         "docshelf client",
		Long:          `docshelf pushes local files into folders on a docshelf server and lists its folders.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("server", "", "Server base URL (env DOCSHELF_SERVER)")
	_ = v.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	newClient := func() *client.Client {
		return client.New(v.GetString("server"), nil)
	}

	rootCmd.AddCommand(newFoldersCommand(newClient))
	rootCmd.AddCommand(newPushCommand(newClient))

	return rootCmd
}

func newFoldersCommand(newClient func() *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List folders on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			folders, err := newClient().ListFolders(cmd.Context())
			if err != nil {
				return err
			}
			if len(folders) == 0 {
				fmt.Println("No folders")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "NAME", "TYPE", "LIMIT")
			for _, f := range folders {
				t.Row(f.FolderID, f.Name, f.Type, strconv.Itoa(f.MaxFileLimit))
			}
			fmt.Println(t.Render())
			return nil
		},
	}
}

func newPushCommand(newClient func() *client.Client) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "push <folderId> <paths...>",
		Short: "Upload files and directories into a folder",
		Long: `Upload files into a folder. Directories are walked recursively. Files whose
extension does not match the folder type are skipped.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(cmd.Context(), newClient(), args[0], args[1:], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Description attached to every uploaded file")
	return cmd
}

func runPush(ctx context.Context, c *client.Client, folderID string, args []string, description string) error {
	parsedPaths, err := client.ParseArgs(args)
	if err != nil {
		return err
	}

	files, err := client.Collect(parsedPaths)
	if err != nil {
		return err
	}

	results, err := client.Push(ctx, c, folderID, files, description)
	if err != nil {
		return err
	}

	var uploaded, skipped, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Println(errStyle.Render("✗ " + r.File.Path + ": " + r.Err.Error()))
		case r.Skipped != "":
			skipped++
			fmt.Println(warnStyle.Render("- " + r.File.Path + ": " + r.Skipped))
		default:
			uploaded++
			fmt.Println(okStyle.Render(fmt.Sprintf("✓ %s (%d bytes)", r.File.Path, r.Uploaded.Size)))
		}
	}

	fmt.Printf("\n%d uploaded, %d skipped, %d failed\n", uploaded, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d uploads failed", failed)
	}
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
