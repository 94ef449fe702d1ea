// Package cli implements the project-memory CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/project-memory/internal/config"
	"github.com/rcliao/project-memory/internal/logging"
	"github.com/rcliao/project-memory/internal/memory"
	"github.com/rcliao/project-memory/internal/model"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "project-memory",
	Short: "Persistent project knowledge for coding assistants",
	Long: "Store and retrieve project knowledge (architecture, decisions, dependencies, issues).\n" +
		"Redis-backed when available, SQLite otherwise.",
	SilenceUsage: true,
}

func init() {
	f := RootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "Config file (default: ./config.yaml or ~/.project-memory/config.yaml)")
	f.StringP("project", "p", "", "Project id (default: $PROJECT_MEMORY_PROJECT or the current directory name)")
	f.StringP("db", "d", "", "SQLite path (default: ~/.project-memory/memory.db)")
	f.String("redis-url", "", "Redis URL, e.g. redis://localhost:6379/0")
	f.String("embedding", "", "Embedding provider: openai, ollama or none")
	f.String("log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.Project == "" {
		cfg.Project = defaultProject()
	}
	return cfg, nil
}

func defaultProject() string {
	wd, err := os.Getwd()
	if err != nil {
		return "default"
	}
	return filepath.Base(wd)
}

func openMemory(cmd *cobra.Command) (*memory.ProjectMemory, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := logging.Must(cfg.Log.Level, cfg.Log.Development)
	return memory.New(cmd.Context(), cfg.Memory(), memory.WithLogger(logger))
}

// parseType coerces user input onto a valid entry type.
func parseType(cmd *cobra.Command, s string) model.EntryType {
	t, ok := model.ParseType(s)
	if !ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: unknown type %q, using %q\n", s, t)
	}
	return t
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func parseMeta(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return nil, fmt.Errorf("invalid --meta JSON: %w", err)
	}
	return meta, nil
}

func printJSON(cmd *cobra.Command, v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
