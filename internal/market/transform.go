package market

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"marketnav/internal/etl"
)

// Options tunes the recipe.
type Options struct {
	// Source labels of the indicator key columns.
	CountryColumn string
	YearColumn    string
	Fill          etl.FillPolicy
	Logger        *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.CountryColumn == "" {
		o.CountryColumn = "Country"
	}
	if o.YearColumn == "" {
		o.YearColumn = "Year"
	}
	if o.Fill == "" {
		o.Fill = etl.FillUniform
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// CleanIndicators renames the indicator key columns to the vocabulary and
// casts year to a number; unparseable years become null.
func CleanIndicators(t *etl.Table, opts Options) (*etl.Table, error) {
	opts = opts.withDefaults()
	for _, k := range [][2]string{{opts.CountryColumn, ColCountryCode}, {opts.YearColumn, ColYear}} {
		if !t.Schema.Has(k[0]) && !t.Schema.Has(k[1]) {
			return nil, fmt.Errorf("indicators: column %q not found", k[0])
		}
	}
	out := t.Clone()
	etl.ApplyToTable(out,
		&etl.RenameTransform{Mapping: map[string]string{
			opts.CountryColumn: ColCountryCode,
			opts.YearColumn:    ColYear,
		}},
		&etl.TypeCastTransform{Field: ColYear, CastType: etl.TypeNumber},
	)
	return out, nil
}

// CleanFDI drops API metadata, renames the remaining fields to the
// vocabulary and casts year and fdi_value_usd to numbers. The five
// vocabulary columns are always present afterwards, even for an empty table.
func CleanFDI(t *etl.Table) *etl.Table {
	out := t.Clone()
	etl.ApplyToTable(out,
		&etl.DropTransform{Fields: fdiMetadata},
		&etl.RenameTransform{Mapping: fdiRenames},
		&etl.TypeCastTransform{Field: ColYear, CastType: etl.TypeNumber},
		&etl.TypeCastTransform{Field: ColFDIValue, CastType: etl.TypeNumber},
	)
	out.AddField(etl.Field{Name: ColCountryCode, Type: etl.TypeText})
	out.AddField(etl.Field{Name: ColYear, Type: etl.TypeNumber})
	out.AddField(etl.Field{Name: ColFDIValue, Type: etl.TypeNumber})
	out.AddField(etl.Field{Name: ColIndicatorDescription, Type: etl.TypeText})
	out.AddField(etl.Field{Name: ColCountryName, Type: etl.TypeText})
	return out
}

// Integrate left-joins cleaned indicators with cleaned FDI data on
// (country_code, year), prunes redundant metadata, tightens column types
// and fills every gap according to policy.
func Integrate(indicators, fdi *etl.Table, policy etl.FillPolicy) (*etl.Table, int, error) {
	joined, err := etl.LeftJoin(indicators, fdi, JoinKeys...)
	if err != nil {
		return nil, 0, err
	}
	etl.ApplyToTable(joined, &etl.DropTransform{Fields: redundantColumns})
	etl.InferTypes(joined)
	filled := etl.FillMissing(joined, policy)
	return joined, filled, nil
}

// Transform is the full recipe over the extracted datasets. Only
// indicators and FDI are integrated; the other datasets are reported and
// left out of the output.
func Transform(ctx context.Context, ds etl.Datasets, opts Options) (*etl.Table, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	ind, ok := ds[Indicators]
	if !ok {
		return nil, fmt.Errorf("dataset %q missing", Indicators)
	}
	fdi, ok := ds[FDI]
	if !ok {
		fdi = &etl.Table{Name: FDI}
	}

	cleanInd, err := CleanIndicators(ind, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleanFDI := CleanFDI(fdi)

	integrated, filled, err := Integrate(cleanInd, cleanFDI, opts.Fill)
	if err != nil {
		return nil, fmt.Errorf("integrate: %w", err)
	}
	integrated.Name = "integrated"

	log.Debug("[market] gaps filled",
		zap.String("policy", string(opts.Fill)),
		zap.Int("cells", filled))
	for _, name := range []string{LPI, GoodsTrade, ServicesTrade, NTM} {
		if t, ok := ds[name]; ok {
			log.Info("[market] dataset extracted but not integrated",
				zap.String("dataset", name),
				zap.Int("rows", t.Len()))
		}
	}
	return integrated, nil
}

// TransformFunc adapts Transform to the engine's plan.
func TransformFunc(opts Options) etl.TransformFunc {
	return func(ctx context.Context, ds etl.Datasets) (*etl.Table, error) {
		return Transform(ctx, ds, opts)
	}
}
