// Package market holds the market-entry recipe: which datasets are read,
// how their columns map onto a shared vocabulary, and how indicators and
// FDI figures are combined into the integrated table.
package market

// Dataset names, used as binding names and in run reports.
const (
	Indicators    = "indicators"
	FDI           = "fdi"
	LPI           = "lpi"
	GoodsTrade    = "goods_trade"
	ServicesTrade = "services_trade"
	NTM           = "ntm"
)

// DatasetNames lists every dataset in extraction order.
var DatasetNames = []string{Indicators, FDI, LPI, GoodsTrade, ServicesTrade, NTM}

// Shared column vocabulary.
const (
	ColCountryCode          = "country_code"
	ColYear                 = "year"
	ColFDIValue             = "fdi_value_usd"
	ColIndicatorDescription = "indicator_description"
	ColCountryName          = "country_name"
)

// JoinKeys are the columns the integrated table is keyed on.
var JoinKeys = []string{ColCountryCode, ColYear}

// fdiMetadata are API columns with no analytical value.
var fdiMetadata = []string{"unit", "obs_status", "decimal", "indicator.id", "country.id"}

// fdiRenames maps flattened API fields onto the vocabulary.
var fdiRenames = map[string]string{
	"countryiso3code": ColCountryCode,
	"date":            ColYear,
	"value":           ColFDIValue,
	"indicator.value": ColIndicatorDescription,
	"country.value":   ColCountryName,
}

// redundantColumns are dropped from the joined table when present.
var redundantColumns = []string{"unit", "obs_status"}
