// Package shared holds the job plumbing common to the borehole workers.
package shared

import (
	"encoding/json"
	"fmt"
	"strings"

	"borehole-workers/internal/common/errors"
	"borehole-workers/internal/common/validation"
	"borehole-workers/internal/filter"
	"borehole-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
)

type BBoxInput struct {
	SRS  string  `json:"srs,omitempty"`
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// CriteriaInput is the criteria part of a job's variables.
type CriteriaInput struct {
	BoreholeName        string     `json:"boreholeName,omitempty"`
	Custodian           string     `json:"custodian,omitempty"`
	DateOfDrillingStart string     `json:"dateOfDrillingStart,omitempty"`
	DateOfDrillingEnd   string     `json:"dateOfDrillingEnd,omitempty"`
	Identifiers         []string   `json:"identifiers,omitempty"`
	RestrictToIDs       []string   `json:"restrictToIds,omitempty"`
	OptionalFilters     string     `json:"optionalFilters,omitempty"`
	MaxFeatures         int        `json:"maxFeatures,omitempty"`
	BBox                *BBoxInput `json:"bbox,omitempty"`

	// RestrictToCollection keeps only boreholes flagged as part of the
	// NVCL collection, on profiles that publish that flag.
	RestrictToCollection bool `json:"restrictToCollection,omitempty"`
	OmitGeometry         bool `json:"omitGeometry,omitempty"`
}

func (c CriteriaInput) ToCriteria() filter.Criteria {
	crit := filter.Criteria{
		BoreholeName:         strings.TrimSpace(c.BoreholeName),
		Custodian:            strings.TrimSpace(c.Custodian),
		DateOfDrillingStart:  c.DateOfDrillingStart,
		DateOfDrillingEnd:    c.DateOfDrillingEnd,
		Identifiers:          c.Identifiers,
		RestrictToIDs:        c.RestrictToIDs,
		RawFilter:            c.OptionalFilters,
		RestrictToCollection: c.RestrictToCollection,
		OmitGeometry:         c.OmitGeometry,
	}
	if c.BBox != nil {
		srs := c.BBox.SRS
		if srs == "" {
			srs = filter.DefaultSRS
		}
		crit.BBox = &filter.BBox{
			SRS:   srs,
			Lower: [2]float64{c.BBox.MinX, c.BBox.MinY},
			Upper: [2]float64{c.BBox.MaxX, c.BBox.MaxY},
		}
	}
	return crit
}

// ParseVariables validates the job variables against the registered input
// schema of taskType and decodes them into out.
func ParseVariables(job entities.Job, taskType string, out interface{}) error {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}
	return DecodeVariables(variables, taskType, out)
}

// DecodeVariables is ParseVariables for already-decoded variables.
func DecodeVariables(variables map[string]interface{}, taskType string, out interface{}) error {
	result, err := validation.ValidateInput(variables, registry.InputSchema(taskType))
	if err != nil {
		return errors.NewInternalError(err)
	}
	if !result.Valid {
		return errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	data, err := json.Marshal(variables)
	if err != nil {
		return errors.NewInvalidInputError(err.Error())
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("decode variables: %v", err))
	}
	return nil
}
