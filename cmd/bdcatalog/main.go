// Command bdcatalog inspects and maintains the backup catalog of a node
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitdust-io/devel-sub003/internal/catalog"
	"github.com/bitdust-io/devel-sub003/internal/config"
	"github.com/bitdust-io/devel-sub003/internal/domain"
	"github.com/bitdust-io/devel-sub003/internal/logger"
	"github.com/bitdust-io/devel-sub003/internal/service"
)

type globalFlags struct {
	configPath string
	dataDir    string
	owner      string
	logLevel   string
}

// app carries what every command needs
type app struct {
	flags globalFlags
	cfg   *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "bdcatalog",
		Short:         "Maintain the catalog of backed up files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Shutdown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "config file (default: search standard locations)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "catalog data directory")
	pf.StringVar(&a.flags.owner, "owner", "", "local owner id, user@host")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newLsCmd(a),
		newAddCmd(a),
		newRmCmd(a),
		newRmBackupCmd(a),
		newScanCmd(a),
		newIDsCmd(a),
		newStatsCmd(a),
		newCheckCmd(a),
		newLoadCmd(a),
		newSaveCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newStopCmd(a),
	)
	return root
}

// setup loads the configuration, applies flag overrides and starts logging
func (a *app) setup() error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	if a.flags.dataDir != "" {
		cfg.DataDir = a.flags.dataDir
	}
	if a.flags.owner != "" {
		cfg.Owner = a.flags.owner
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	// a previous command of the same process may have initialized it
	logger.Shutdown()
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	return nil
}

// owner returns the owner named on the command line or the configured one
func (a *app) owner(flagValue string) (domain.Owner, error) {
	if flagValue != "" {
		return domain.ParseOwner(flagValue)
	}
	if a.cfg.Owner == "" {
		return "", fmt.Errorf("%w: no owner given, set --owner or owner in the config", domain.ErrConfigInvalid)
	}
	return a.cfg.OwnerID(), nil
}

// withCatalog opens the service, loads every index file and runs fn. A
// writing run takes the directory lock first and saves afterwards.
func (a *app) withCatalog(ctx context.Context, write bool, fn func(c *catalog.Catalog) error) error {
	svc, err := service.NewCatalogService(a.cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	if write {
		if err := svc.Lock("cli"); err != nil {
			return err
		}
	}
	if _, err := svc.Load(ctx); err != nil {
		logger.Get().Warn("Some index files could not be loaded", "error", err)
	}
	if err := svc.Update(fn); err != nil {
		return err
	}
	if write {
		return svc.Save(ctx)
	}
	return nil
}
