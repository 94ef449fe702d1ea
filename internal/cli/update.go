package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/project-memory/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an entry",
		Long:  "Change content, importance, tags or metadata. Only flags that are given are applied; --tags \"\" clears tags.",
		Args:  cobra.ExactArgs(1),
		Run:   runUpdate,
	}

	cmd.Flags().String("content", "", "New content")
	cmd.Flags().Float64P("importance", "i", 0, "New importance in [0,1]")
	cmd.Flags().String("tags", "", "Replacement tags (comma-separated)")
	cmd.Flags().String("meta", "", "Replacement JSON metadata")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	var p store.UpdateParams
	flags := cmd.Flags()

	if flags.Changed("content") {
		content, _ := flags.GetString("content")
		p.Content = &content
	}
	if flags.Changed("importance") {
		importance, _ := flags.GetFloat64("importance")
		p.Importance = &importance
	}
	if flags.Changed("tags") {
		tagsStr, _ := flags.GetString("tags")
		p.Tags = splitTags(tagsStr)
		if p.Tags == nil {
			p.Tags = []string{}
		}
	}
	if flags.Changed("meta") {
		metaStr, _ := flags.GetString("meta")
		meta, err := parseMeta(metaStr)
		if err != nil {
			exitErr("update", err)
		}
		if meta == nil {
			meta = map[string]any{}
		}
		p.Metadata = meta
	}

	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	if err := m.Update(cmd.Context(), args[0], p); err != nil {
		exitErr("update", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", args[0])
}
