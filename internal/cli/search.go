package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/project-memory/internal/model"
	"github.com/rcliao/project-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search entries",
		Long:  "Search entries by vector similarity when an embedding provider is configured, otherwise by keyword.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("type", "t", "", "Filter by type")
	cmd.Flags().Float64("min-importance", 0, "Minimum importance")
	cmd.Flags().IntP("limit", "l", 10, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")
	minImportance, _ := cmd.Flags().GetFloat64("min-importance")
	limit, _ := cmd.Flags().GetInt("limit")

	var t model.EntryType
	if typeStr != "" {
		t = parseType(cmd, typeStr)
	}

	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	results, err := m.Search(cmd.Context(), strings.Join(args, " "), store.SearchParams{
		Limit:         limit,
		Type:          t,
		MinImportance: minImportance,
	})
	if err != nil {
		exitErr("search", err)
	}
	if results == nil {
		results = []model.Entry{}
	}
	printJSON(cmd, results)
}
