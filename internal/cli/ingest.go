package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/project-memory/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest <file.md>",
		Short: "Store a markdown document section by section",
		Long:  "Split a markdown document at its headings and store each section as an entry tagged with the heading.",
		Args:  cobra.ExactArgs(1),
		Run:   runIngest,
	}

	cmd.Flags().StringP("type", "t", "context", "Type for every section")
	cmd.Flags().String("tags", "", "Extra comma-separated tags for every section")
	cmd.Flags().Int("max-size", 0, "Largest section body in bytes before splitting (default 1200)")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	maxSize, _ := cmd.Flags().GetInt("max-size")

	doc, err := os.ReadFile(args[0])
	if err != nil {
		exitErr("read document", err)
	}

	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	opts := memory.IngestOptions{
		Type:   parseType(cmd, typeStr),
		Tags:   splitTags(tagsStr),
		Source: args[0],
	}
	opts.Chunk.MaxSize = maxSize
	if maxSize > 0 {
		opts.Chunk.MinSize = maxSize / 30
	}

	ids, err := m.Ingest(cmd.Context(), string(doc), opts)
	if err != nil {
		exitErr("ingest", err)
	}
	if ids == nil {
		ids = []string{}
	}
	printJSON(cmd, map[string]interface{}{
		"ok":       true,
		"sections": len(ids),
		"ids":      ids,
		"type":     string(opts.Type),
	})
}
