package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type flagGetter func(cmd *cobra.Command, name string) (any, error)

func getString(cmd *cobra.Command, name string) (any, error) { return cmd.Flags().GetString(name) }
func getInt(cmd *cobra.Command, name string) (any, error)    { return cmd.Flags().GetInt(name) }
func getBool(cmd *cobra.Command, name string) (any, error)   { return cmd.Flags().GetBool(name) }
func getStrings(cmd *cobra.Command, name string) (any, error) {
	return cmd.Flags().GetStringSlice(name)
}

// cliFlagKeys maps flag names onto dotted configuration keys.
var cliFlagKeys = []struct {
	flag   string
	key    string
	getter flagGetter
}{
	{"log-level", "log.level", getString},
	{"log-json", "log.json", getBool},
	{"log-source", "log.source", getBool},

	{"host", "server.host", getString},
	{"port", "server.port", getInt},
	{"metrics", "server.metrics_enabled", getBool},

	{"store-driver", "store.driver", getString},
	{"redis-url", "store.redis_url", getString},
	{"store-prefix", "store.prefix", getString},

	{"root", "ingest.root", getString},
	{"include", "ingest.include", getStrings},
	{"exclude", "ingest.exclude", getStrings},
	{"strict", "ingest.strict", getBool},
	{"workers", "ingest.workers", getInt},
	{"watch", "ingest.watch", getBool},
}

// extractCLIFlags copies the flags the user explicitly changed into flags,
// keyed by configuration path. Flags a command does not define are skipped.
func extractCLIFlags(cmd *cobra.Command, flags map[string]any) {
	for _, def := range cliFlagKeys {
		if cmd.Flags().Lookup(def.flag) == nil || !cmd.Flags().Changed(def.flag) {
			continue
		}
		if value, err := def.getter(cmd, def.flag); err == nil {
			flags[def.key] = value
		}
	}
}

// loadEnvFile loads environment variables from a file inside the working
// directory. A missing file is not an error.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the project directory", envFile)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
