package market

import (
	"strconv"

	"go.uber.org/zap"

	"marketnav/internal/config"
	"marketnav/internal/dbclient"
	"marketnav/internal/etl"
)

// Target names reported in run results.
const (
	TargetStore  = "store"
	TargetCSV    = "csv"
	TargetMirror = "mirror"
)

// NewPlan wires the six datasets, the recipe and the output targets from
// configuration. Sources must be registered (import internal/etl/sources).
func NewPlan(cfg *config.Config, logger *zap.Logger) *etl.Plan {
	if logger == nil {
		logger = zap.NewNop()
	}
	in := cfg.Inputs

	plan := &etl.Plan{
		Bindings: []etl.Binding{
			csvBinding(Indicators, in.Indicators),
			fdiBinding(cfg.FDI),
			{
				Name:       LPI,
				SourceType: "xlsx_file",
				Config: etl.SourceConfig{
					"filePath":  in.LPI.Path,
					"sheet":     in.LPI.Sheet,
					"headerRow": strconv.Itoa(in.LPI.HeaderRow),
				},
			},
			csvBinding(GoodsTrade, in.Goods),
			csvBinding(ServicesTrade, in.Services),
			csvBinding(NTM, in.NTM),
		},
		Transform: TransformFunc(Options{
			CountryColumn: cfg.Indicators.Country,
			YearColumn:    cfg.Indicators.Year,
			Fill:          etl.FillPolicy(cfg.FillPolicy),
			Logger:        logger,
		}),
		Targets: []etl.Target{
			{
				Name: TargetStore,
				Dest: &dbclient.StoreWriter{
					Conn:     cfg.Store.Connection(),
					Password: cfg.Store.Password,
					Logger:   logger,
				},
				Target: cfg.Store.Table,
			},
			{Name: TargetCSV, Dest: &etl.CSVFileWriter{}, Target: cfg.Output.CSVPath},
		},
	}

	if cfg.Mirror.Enabled() {
		plan.Targets = append(plan.Targets, etl.Target{
			Name: TargetMirror,
			Dest: &dbclient.StoreWriter{
				Conn:     cfg.Mirror.Connection(),
				Password: cfg.Mirror.Password,
				Logger:   logger,
			},
			Target: cfg.Mirror.Collection,
		})
	}
	return plan
}

func csvBinding(name string, in config.FileInput) etl.Binding {
	return etl.Binding{
		Name:       name,
		SourceType: "csv_file",
		Config: etl.SourceConfig{
			"filePath":    in.Path,
			"delimiter":   in.Delimiter,
			"encoding":    in.Encoding,
			"skipBadRows": strconv.FormatBool(in.SkipBadRows),
		},
	}
}

// fdiBinding prefers a local snapshot over the live API.
func fdiBinding(c config.FDIConfig) etl.Binding {
	if c.SnapshotPath != "" {
		return etl.Binding{
			Name:       FDI,
			SourceType: "json_file",
			Config:     etl.SourceConfig{"filePath": c.SnapshotPath},
			Optional:   c.Optional,
		}
	}
	return etl.Binding{
		Name:       FDI,
		SourceType: "http",
		Config: etl.SourceConfig{
			"url":     c.URL,
			"timeout": c.Timeout.String(),
		},
		Optional: c.Optional,
	}
}
