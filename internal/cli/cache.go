package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abapdoc/abapdoc/pkg/cache"
)

// cacheCommand manages the local cache of ADT responses, graphs,
// summaries and rendered diagrams.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local cache",
		Long: `Manage the cache of ADT responses, dependency graphs, object
summaries and rendered diagrams.`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand removes the file cache directory.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.ConfigPath)
			if err != nil {
				return err
			}
			return c.runCacheClear(cfg)
		},
	}
}

// cachePathCommand prints the file cache directory.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.ConfigPath)
			if err != nil {
				return err
			}
			dir, err := cacheDir(cfg)
			if err != nil {
				return err
			}
			fmt.Println(dir)
			return nil
		},
	}
}

func (c *CLI) runCacheClear(cfg Config) error {
	switch backend := cache.Backend(cfg.Cache.Backend); backend {
	case cache.BackendRedis, cache.BackendMongo:
		return fmt.Errorf("cache clear manages the file backend only; flush the %s backend with its own tooling", backend)
	}

	dir, err := cacheDir(cfg)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo("Cache is already empty")
		return nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	printSuccess("Cache cleared")
	printDetail("%s", dir)
	return nil
}
