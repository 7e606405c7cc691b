// Command xraydemo wires the dashboard rule engine (pkg/xray) end to end:
// it loads a rule library and a fixture catalog from disk and prints the
// generated dashboard for one root table as JSON. There is no server loop
// here — this binary exists to exercise the full pipeline without a live
// database connection, the way a services-oriented main.go wires its HTTP server
// together from the same kind of config/logger/collaborator pieces.
package main

import (
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/ekaya-inc/xray-engine/pkg/catalog"
	"github.com/ekaya-inc/xray-engine/pkg/config"
	"github.com/ekaya-inc/xray-engine/pkg/rules"
	"github.com/ekaya-inc/xray-engine/pkg/xray"
	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	rootTable := flag.String("root-table", cfg.RootTable, "name of the fixture table to generate a dashboard for")
	flag.Parse()
	if *rootTable == "" {
		logger.Fatal("root table is required (set root_table in config.yaml, ROOT_TABLE, or -root-table)")
	}

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("rules_dir", cfg.RulesDir),
		zap.String("fixture_catalog", cfg.FixtureCatalog),
		zap.String("root_table", *rootTable),
	)

	loader := rules.NewLoader()
	loadedRules, err := loader.LoadDir(cfg.RulesDir)
	if err != nil {
		logger.Fatal("failed to load rule library", zap.Error(err))
	}

	cat, rootID, err := catalog.LoadFixture(cfg.FixtureCatalog, *rootTable)
	if err != nil {
		logger.Fatal("failed to load fixture catalog", zap.Error(err))
	}
	rootTableEntity, err := cat.Table(rootID)
	if err != nil {
		logger.Fatal("failed to resolve root table", zap.Error(err))
	}

	lattice := xtype.DefaultLattice()
	for i := range loadedRules {
		if err := loadedRules[i].Validate(lattice); err != nil {
			logger.Fatal("rule failed validation", zap.String("rule", loadedRules[i].Name), zap.Error(err))
		}
	}

	_, err = xray.Generate(
		rootTableEntity,
		loadedRules,
		lattice,
		cat,
		loader,
		xray.AllowAllPolicy{},
		xray.Permissions{},
		xray.PrintRenderer{Out: os.Stdout},
		logger,
	)
	if err != nil {
		logger.Fatal("dashboard generation failed", zap.Error(err))
	}
}
