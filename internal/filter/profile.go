// internal/filter/profile.go
package filter

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownProfile = errors.New("unknown filter profile")

// ProfileKind selects the property schema a borehole service publishes.
type ProfileKind string

const (
	// ProfileGSML targets GeoSciML gsml:Borehole services.
	ProfileGSML ProfileKind = "gsml"
	// ProfileGSMLP targets GeoSciML-Portrayal gsmlp:BoreholeView services.
	ProfileGSMLP ProfileKind = "gsmlp"
	// ProfileGSMLPIdentifier is the portrayal schema with id restriction on gsmlp:identifier.
	ProfileGSMLPIdentifier ProfileKind = "gsmlp-identifier"
)

// Translator turns criteria into a predicate tree for one provider schema.
type Translator interface {
	Translate(c Criteria) (*Node, error)
	TypeName() string
}

type schema struct {
	typeName   string
	name       string
	custodian  string
	drillDate  string
	geometry   string
	identifier string
	// nameElement is matched case-sensitively by restriction ids in ProfileGSML.
	nameElement string
	// featurePrefix namespaces restriction ids as feature ids in ProfileGSMLP.
	featurePrefix string
	collection    string
}

var portrayal = schema{
	typeName:      "gsmlp:BoreholeView",
	name:          "gsmlp:name",
	custodian:     "gsmlp:boreholeMaterialCustodian",
	drillDate:     "gsmlp:drillStartDate",
	geometry:      "gsmlp:shape",
	identifier:    "gsmlp:identifier",
	featurePrefix: "gsml.borehole",
	collection:    "gsmlp:nvclCollection",
}

var schemas = map[ProfileKind]schema{
	ProfileGSML: {
		typeName:    "gsml:Borehole",
		name:        "gml:name",
		custodian:   "gsml:indexData/gsml:BoreholeDetails/gsml:coreCustodian/@xlink:title",
		drillDate:   "gsml:indexData/gsml:BoreholeDetails/gsml:dateOfDrilling",
		geometry:    "gsml:collarLocation/gsml:BoreholeCollar/gsml:location",
		nameElement: "gml:name[1]",
	},
	ProfileGSMLP:           portrayal,
	ProfileGSMLPIdentifier: portrayal,
}

// Profile is a closed set of translator variants keyed by Kind.
type Profile struct {
	Kind   ProfileKind
	schema schema
}

func NewProfile(kind ProfileKind) (*Profile, error) {
	s, ok := schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, kind)
	}
	return &Profile{Kind: kind, schema: s}, nil
}

// MustProfile is NewProfile for the built-in kinds.
func MustProfile(kind ProfileKind) *Profile {
	p, err := NewProfile(kind)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Profile) TypeName() string {
	return p.schema.typeName
}

// GeometryProperty returns the property bbox filters target, "" when none.
func (p *Profile) GeometryProperty() string {
	return p.schema.geometry
}

// Translate composes, in order: the base predicate (raw override or
// name/custodian/date), the id restriction, identifier matching, the
// sub-collection shortcut and finally the bounding box.
func (p *Profile) Translate(c Criteria) (*Node, error) {
	base, err := p.base(c)
	if err != nil {
		return nil, err
	}

	composed := All(base, p.restriction(c.RestrictToIDs), p.identifiers(c.Identifiers))

	// Some provider versions reject matchCase="true" on this property, so the
	// comparison is always case-insensitive.
	if c.RestrictToCollection && p.schema.collection != "" {
		composed = All(EqualTo(p.schema.collection, "true", CaseInsensitive), composed)
	}

	if c.BBox != nil {
		geometry := p.schema.geometry
		if c.OmitGeometry {
			geometry = ""
		}
		composed = All(Intersects(c.BBox, geometry), composed)
	}
	return composed, nil
}

func (p *Profile) base(c Criteria) (*Node, error) {
	if strings.TrimSpace(c.RawFilter) != "" {
		return Raw(c.RawFilter), nil
	}

	var parts []*Node
	if c.BoreholeName != "" {
		parts = append(parts, Like(p.schema.name, c.BoreholeName))
	}
	if c.Custodian != "" {
		parts = append(parts, Like(p.schema.custodian, c.Custodian))
	}

	lower, upper, ok, err := DrillingWindow(c.DateOfDrillingStart, c.DateOfDrillingEnd)
	if err != nil {
		return nil, err
	}
	if ok {
		parts = append(parts, DateAfter(p.schema.drillDate, lower), DateBefore(p.schema.drillDate, upper))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return All(parts...), nil
}

func (p *Profile) restriction(ids []string) *Node {
	ids = nonEmpty(ids)
	if len(ids) == 0 {
		return nil
	}
	switch p.Kind {
	case ProfileGSML:
		return equalToAny(p.schema.nameElement, ids)
	case ProfileGSMLP:
		return FeatureIDs(ids, p.schema.featurePrefix)
	case ProfileGSMLPIdentifier:
		return equalToAny(p.schema.identifier, ids)
	}
	return nil
}

func (p *Profile) identifiers(values []string) *Node {
	values = nonEmpty(values)
	if len(values) == 0 || p.schema.identifier == "" {
		return nil
	}
	return equalToAny(p.schema.identifier, values)
}

func equalToAny(path string, values []string) *Node {
	children := make([]*Node, len(values))
	for i, v := range values {
		children[i] = EqualTo(path, v, CaseSensitive)
	}
	return Any(children...)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
