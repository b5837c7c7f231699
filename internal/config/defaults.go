package config

import "time"

// Defaults reproduce the file layout the pipeline has always used, relative
// to the working directory.
const (
	DefaultIndicatorsPath = "data/indicators.csv"
	DefaultLPIPath        = "data/International_LPI_from_2007_to_2023_0.xlsx"
	DefaultGoodsPath      = "data/Goods UN Comtrade data_11_15_2024_11_6_8.csv"
	DefaultServicesPath   = "data/servicesun comtrade_data11_15_2024_11_14_7.csv"
	DefaultNTMPath        = "data/NTM-Indicators-Measure-Sector.csv"

	DefaultFDIURL     = "https://api.worldbank.org/v2/country/all/indicator/BX.KLT.DINV.CD.WD?format=json&per_page=1000"
	DefaultFDITimeout = 30 * time.Second

	DefaultStorePath  = "sme_market_entry_navigator.db"
	DefaultTable      = "market_data"
	DefaultCSVOutput  = "integrated_market_data.csv"
	DefaultRunLogPath = ".marketnav/runs.db"
	DefaultFillPolicy = "uniform"
	DefaultLogLevel   = "info"

	UTF8   = "utf-8"
	Latin1 = "latin1"
)

// Default returns a configuration populated with every built-in default.
func Default() *Config {
	return &Config{
		Inputs: Inputs{
			Indicators: FileInput{Path: DefaultIndicatorsPath, Encoding: UTF8},
			LPI:        SheetInput{Path: DefaultLPIPath, HeaderRow: 1},
			Goods:      FileInput{Path: DefaultGoodsPath, Encoding: Latin1, SkipBadRows: true},
			Services:   FileInput{Path: DefaultServicesPath, Encoding: Latin1, SkipBadRows: true},
			NTM:        FileInput{Path: DefaultNTMPath, Encoding: Latin1, SkipBadRows: true},
		},
		FDI: FDIConfig{
			URL:      DefaultFDIURL,
			Timeout:  DefaultFDITimeout,
			Optional: true,
		},
		Indicators: IndicatorColumns{Country: "Country", Year: "Year"},
		Store: StoreConfig{
			Driver: "sqlite",
			Host:   DefaultStorePath,
			Table:  DefaultTable,
		},
		Output:     OutputConfig{CSVPath: DefaultCSVOutput, RunLogPath: DefaultRunLogPath},
		FillPolicy: DefaultFillPolicy,
		Logging:    LoggingConfig{Level: DefaultLogLevel},
	}
}
