package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/project-memory/internal/memory"
	"github.com/rcliao/project-memory/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a knowledge entry",
		Long:  "Store a knowledge entry. Content can be a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().StringP("type", "t", "context", "Type: context, architecture, dependency, config, pattern, decision, todo, issue")
	cmd.Flags().Float64P("importance", "i", 0, "Importance in [0,1] (default: per-type default)")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().String("meta", "", "JSON metadata")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	typeStr, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	metaStr, _ := cmd.Flags().GetString("meta")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	meta, err := parseMeta(metaStr)
	if err != nil {
		exitErr("put", err)
	}

	t := parseType(cmd, typeStr)
	importance := model.TypeImportance[t]
	if cmd.Flags().Changed("importance") {
		importance, _ = cmd.Flags().GetFloat64("importance")
	}

	m, err := openMemory(cmd)
	if err != nil {
		exitErr("open memory", err)
	}
	defer m.Close()

	id, err := m.Store(cmd.Context(), strings.TrimSpace(content), t, memory.StoreOptions{
		Importance: &importance,
		Metadata:   meta,
		Tags:       splitTags(tagsStr),
	})
	if err != nil {
		exitErr("put", err)
	}

	printJSON(cmd, map[string]string{
		"id":      id,
		"project": m.ProjectID(),
		"type":    string(t),
		"storage": m.StorageType(),
	})
}
