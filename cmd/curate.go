package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ddlconv/ddlconv/internal/curate"
	"github.com/ddlconv/ddlconv/internal/dictionary"
)

var curateCmd = &cobra.Command{
	Use:   "curate <dictionary.csv>",
	Short: "Edit a dictionary interactively",
	Long:  `Curate opens a terminal editor to fill in target names and official descriptions of a dictionary CSV. The file is rewritten on save.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening dictionary: %w", err)
		}
		rows, err := dictionary.ReadRows(f)
		f.Close()
		if err != nil {
			return err
		}

		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if len(rows) > 0 && rows[0].Table != "" {
			title = rows[0].Table
		}

		p := tea.NewProgram(curate.New(title, rows), tea.WithAltScreen())
		finalModel, err := p.Run()
		if err != nil {
			return fmt.Errorf("running dictionary editor: %w", err)
		}

		m := finalModel.(curate.Model)
		if m.Cancelled() {
			return errors.New("cancelled")
		}
		if !m.Dirty() {
			fmt.Println("No changes.")
			return nil
		}

		var buf bytes.Buffer
		if err := dictionary.WriteCSV(&buf, m.Result()); err != nil {
			return err
		}
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing dictionary: %w", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("replacing dictionary: %w", err)
		}
		fmt.Printf("Dictionary saved to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(curateCmd)
}
