package registry

// Task types served by the borehole workers.
const (
	TaskFilterBoreholes           = "filter-boreholes"
	TaskDiscoverHyloggerBoreholes = "discover-hylogger-boreholes"
	TaskDownloadBoreholeCSV       = "download-borehole-csv"
)

type object = map[string]interface{}

func str(desc string) object {
	return object{"type": "string", "description": desc}
}

func strList(desc string) object {
	return object{"type": "array", "description": desc, "items": object{"type": "string"}}
}

func datePattern(desc string) object {
	return object{"type": "string", "description": desc, "pattern": `^(\d{4}-\d{2}-\d{2})?$`}
}

var bboxSchema = object{
	"type":     "object",
	"required": []interface{}{"minX", "minY", "maxX", "maxY"},
	"properties": object{
		"srs":  str("Spatial reference system, EPSG:4326 when empty"),
		"minX": object{"type": "number"},
		"minY": object{"type": "number"},
		"maxX": object{"type": "number"},
		"maxY": object{"type": "number"},
	},
}

func criteriaProperties() object {
	return object{
		"boreholeName":         str("Substring of the borehole name"),
		"custodian":            str("Substring of the borehole material custodian"),
		"dateOfDrillingStart":  datePattern("First drilling date, YYYY-MM-DD, inclusive"),
		"dateOfDrillingEnd":    datePattern("Last drilling date, YYYY-MM-DD, inclusive"),
		"identifiers":          strList("Borehole identifiers to match"),
		"restrictToIds":        strList("Borehole ids to restrict results to"),
		"optionalFilters":      str("Raw OGC filter replacing name, custodian and date criteria"),
		"maxFeatures":          object{"type": "integer", "minimum": 0},
		"bbox":                 bboxSchema,
		"restrictToCollection": object{"type": "boolean", "description": "Only boreholes in the NVCL collection"},
		"omitGeometry":         object{"type": "boolean", "description": "Leave the geometry property out of the query"},
	}
}

func aggregateOutput(extra object) object {
	props := object{
		"status":        object{"type": "string", "enum": []interface{}{"COMPLETE", "DEGRADED", "EMPTY"}},
		"endpointCount": object{"type": "integer"},
		"failedCount":   object{"type": "integer"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return object{"type": "object", "properties": props}
}

func filterBoreholesInput() object {
	props := criteriaProperties()
	props["serviceUrl"] = str("Restricts the search to providers on this host")
	props["onlyHylogger"] = object{"type": "boolean", "description": "Only boreholes with scanned hylogger data"}
	props["outputFormat"] = str("WFS output format, GML when empty")
	return object{"type": "object", "properties": props}
}

func downloadCSVInput() object {
	props := criteriaProperties()
	props["serviceUrls"] = object{
		"type":     "array",
		"minItems": 1,
		"items":    object{"type": "string", "minLength": 1},
	}
	props["tsg"] = object{"type": "boolean", "description": "Export for the TSG file cache"}
	return object{"type": "object", "required": []interface{}{"serviceUrls"}, "properties": props}
}

func downloadCSVOutput() object {
	return aggregateOutput(object{
		"csv": object{"type": "string"},
		"tsg": object{
			"type": "object",
			"properties": object{
				"available": object{"type": "boolean"},
				"url":       str("TSG file cache the export feeds"),
				"message":   str("Operator message about the TSG cache"),
			},
		},
	})
}

// Default returns the activities implemented by this service.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version: "1.0.0",
		Activities: []Activity{
			{
				ID:                   "borehole.search.filter",
				DisplayName:          "Filter Boreholes",
				Description:          "Queries every borehole provider with the given criteria and returns the feature documents",
				Category:             "borehole",
				Version:              "1.0.0",
				TaskType:             TaskFilterBoreholes,
				ImplementationStatus: "completed",
				InputSchema:          filterBoreholesInput(),
				OutputSchema:         aggregateOutput(object{"payload": object{"type": "string"}}),
				ErrorCodes:           []string{"INVALID_INPUT", "INVALID_FILTER_CRITERIA", "NO_DATA_AVAILABLE", "NO_HYLOGGER_BOREHOLES", "CATALOG_UNAVAILABLE"},
				Timeout:              "120s",
				Retries:              3,
				Workflows:            []string{"borehole-search"},
				Tags:                 []string{"wfs", "borehole"},
			},
			{
				ID:                   "borehole.hylogger.discover",
				DisplayName:          "Discover Hylogger Boreholes",
				Description:          "Lists the boreholes with scanned hylogger data across every provider",
				Category:             "borehole",
				Version:              "1.0.0",
				TaskType:             TaskDiscoverHyloggerBoreholes,
				ImplementationStatus: "completed",
				InputSchema: object{"type": "object", "properties": object{
					"serviceUrl": str("Restricts discovery to providers on this host"),
				}},
				OutputSchema: aggregateOutput(object{"boreholeIds": strList("Discovered borehole ids")}),
				ErrorCodes:   []string{"INVALID_INPUT", "NO_DATA_AVAILABLE", "CATALOG_UNAVAILABLE"},
				Timeout:      "120s",
				Retries:      3,
				Workflows:    []string{"borehole-search"},
				Tags:         []string{"wfs", "nvcl"},
			},
			{
				ID:                   "borehole.export.csv",
				DisplayName:          "Download Borehole CSV",
				Description:          "Requests CSV output from each service and concatenates the non-empty responses",
				Category:             "borehole",
				Version:              "1.0.0",
				TaskType:             TaskDownloadBoreholeCSV,
				ImplementationStatus: "completed",
				InputSchema:          downloadCSVInput(),
				OutputSchema:         downloadCSVOutput(),
				ErrorCodes:           []string{"INVALID_INPUT", "INVALID_FILTER_CRITERIA", "NO_DATA_AVAILABLE", "SERVICE_UNAVAILABLE"},
				Timeout:              "300s",
				Retries:              3,
				Workflows:            []string{"borehole-export"},
				Tags:                 []string{"wfs", "csv"},
			},
		},
	}
}

// InputSchema returns the input schema of taskType from the default registry.
func InputSchema(taskType string) map[string]interface{} {
	if a, ok := Default().Find(taskType); ok {
		return a.InputSchema
	}
	return nil
}
