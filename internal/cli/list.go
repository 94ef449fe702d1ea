package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/project-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Long:  "List entries by recency (default), importance, type or tags.",
		Run:   runList,
	}

	cmd.Flags().StringP("type", "t", "", "Only entries of this type")
	cmd.Flags().String("tags", "", "Entries carrying any of these tags (comma-separated)")
	cmd.Flags().Bool("important", false, "Order by importance instead of recency")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	important, _ := cmd.Flags().GetBool("important")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	ctx := cmd.Context()
	var entries []model.Entry
	switch {
	case typeStr != "":
		entries, err = m.GetByType(ctx, parseType(cmd, typeStr), limit)
	case tagsStr != "":
		entries, err = m.GetByTags(ctx, splitTags(tagsStr), limit)
	case important:
		entries, err = m.GetImportant(ctx, limit)
	default:
		entries, err = m.GetRecent(ctx, limit)
	}
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), e.ID)
		}
		return
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	printJSON(cmd, entries)
}
