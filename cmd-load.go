package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/rpcpool/coldb/config"
	"github.com/rpcpool/coldb/persist"
)

func newCmd_Load() *cli.Command {
	var configPath, dataDir string

	return &cli.Command{
		Name:      "load",
		Usage:     "Bulk-load a CSV file into the database directory without starting the server.",
		ArgsUsage: "<path.csv>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to a YAML config file (data_dir)",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "database directory (overrides config)",
				Destination: &dataDir,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("load: expects exactly one CSV path argument")
			}
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}

			cat, err := persist.Load(cfg.DataDir)
			if err != nil {
				return fmt.Errorf("load: load database: %w", err)
			}
			if st := persist.LoadFile(cat, c.Args().First()); !st.Kind.IsOK() {
				return st.Err()
			}
			if err := persist.Save(cat, cfg.DataDir); err != nil {
				return fmt.Errorf("load: save database: %w", err)
			}
			klog.Infof("load: %s loaded into %s", c.Args().First(), cfg.DataDir)
			return nil
		},
	}
}
