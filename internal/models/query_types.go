// internal/models/query_types.go
package models

// QueryType names an aggregate operation over many endpoints.
type QueryType string

const (
	QueryTypeBoreholeFilter    QueryType = "borehole_filter"
	QueryTypeHyloggerDiscovery QueryType = "hylogger_discovery"
	QueryTypeCSVExport         QueryType = "csv_export"
	QueryTypeTSGExport         QueryType = "tsg_export"
)

// Resource types advertised by the catalog.
const (
	ResourceTypeWFS = "WFS"
	ResourceTypeWMS = "WMS"
)
