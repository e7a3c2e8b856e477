package models

import "strings"

// Field names the eight Ikigai attributes. The values double as JSON keys
// and form field names.
type Field string

const (
	FieldLove       Field = "love"
	FieldGoodAt     Field = "goodAt"
	FieldPaidFor    Field = "paidFor"
	FieldWorldNeeds Field = "worldNeeds"
	FieldPassion    Field = "passion"
	FieldMission    Field = "mission"
	FieldProfession Field = "profession"
	FieldVocation   Field = "vocation"
)

// CoreFields lists the user-authored attributes in form order.
var CoreFields = []Field{FieldLove, FieldGoodAt, FieldWorldNeeds, FieldPaidFor}

// IntersectionFields lists the derived attributes in form order.
var IntersectionFields = []Field{FieldPassion, FieldMission, FieldProfession, FieldVocation}

// AllFields is CoreFields followed by IntersectionFields.
var AllFields = append(append([]Field{}, CoreFields...), IntersectionFields...)

// IsCore reports whether f is one of the four core attributes.
func (f Field) IsCore() bool {
	for _, c := range CoreFields {
		if c == f {
			return true
		}
	}
	return false
}

// Valid reports whether f names one of the eight attributes.
func (f Field) Valid() bool {
	for _, c := range AllFields {
		if c == f {
			return true
		}
	}
	return false
}

// Label is the human-readable title used by the form and the diagram.
func (f Field) Label() string {
	switch f {
	case FieldLove:
		return "What you love"
	case FieldGoodAt:
		return "What you are good at"
	case FieldPaidFor:
		return "What you can be paid for"
	case FieldWorldNeeds:
		return "What the world needs"
	case FieldPassion:
		return "Passion"
	case FieldMission:
		return "Mission"
	case FieldProfession:
		return "Profession"
	case FieldVocation:
		return "Vocation"
	}
	return string(f)
}

// IkigaiRecord is the eight-field model behind the form and the diagram.
type IkigaiRecord struct {
	Love       string `json:"love" form:"love"`
	GoodAt     string `json:"goodAt" form:"goodAt"`
	PaidFor    string `json:"paidFor" form:"paidFor"`
	WorldNeeds string `json:"worldNeeds" form:"worldNeeds"`
	Passion    string `json:"passion" form:"passion"`
	Mission    string `json:"mission" form:"mission"`
	Profession string `json:"profession" form:"profession"`
	Vocation   string `json:"vocation" form:"vocation"`
}

// DefaultRecord is the seeded record shown on first load.
func DefaultRecord() IkigaiRecord {
	return IkigaiRecord{
		Love:       "Family, learning new things",
		GoodAt:     "IT skills, problem solving",
		PaidFor:    "Software development, teaching",
		WorldNeeds: "Innovation, sustainability",
		Passion:    "Using IT skills to care for family",
		Mission:    "Building innovation for family and society",
		Profession: "Software developer",
		Vocation:   "Developing innovation that earns income",
	}
}

// Get returns the value of f.
func (r IkigaiRecord) Get(f Field) string {
	switch f {
	case FieldLove:
		return r.Love
	case FieldGoodAt:
		return r.GoodAt
	case FieldPaidFor:
		return r.PaidFor
	case FieldWorldNeeds:
		return r.WorldNeeds
	case FieldPassion:
		return r.Passion
	case FieldMission:
		return r.Mission
	case FieldProfession:
		return r.Profession
	case FieldVocation:
		return r.Vocation
	}
	return ""
}

func (r *IkigaiRecord) set(f Field, v string) {
	switch f {
	case FieldLove:
		r.Love = v
	case FieldGoodAt:
		r.GoodAt = v
	case FieldPaidFor:
		r.PaidFor = v
	case FieldWorldNeeds:
		r.WorldNeeds = v
	case FieldPassion:
		r.Passion = v
	case FieldMission:
		r.Mission = v
	case FieldProfession:
		r.Profession = v
	case FieldVocation:
		r.Vocation = v
	}
}

// Merge applies every non-nil value of p. No validation is done; empty
// strings clear the field.
func (r *IkigaiRecord) Merge(p RecordPatch) {
	for f, v := range p.values() {
		if v != nil {
			r.set(f, *v)
		}
	}
}

// JoinFields lists field names for messages: "love, goodAt".
func JoinFields(fs []Field) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Missing returns the fields among fs whose values are blank.
func (r IkigaiRecord) Missing(fs []Field) []Field {
	var out []Field
	for _, f := range fs {
		if strings.TrimSpace(r.Get(f)) == "" {
			out = append(out, f)
		}
	}
	return out
}

// CoreComplete reports whether the four core fields are filled, the
// precondition for intersection generation.
func (r IkigaiRecord) CoreComplete() bool {
	return len(r.Missing(CoreFields)) == 0
}

// Complete reports whether all eight fields are filled, the precondition
// for requesting advice.
func (r IkigaiRecord) Complete() bool {
	return len(r.Missing(AllFields)) == 0
}

// RecordPatch is a partial update. Nil pointers leave fields untouched.
type RecordPatch struct {
	Love       *string `json:"love,omitempty" form:"love"`
	GoodAt     *string `json:"goodAt,omitempty" form:"goodAt"`
	PaidFor    *string `json:"paidFor,omitempty" form:"paidFor"`
	WorldNeeds *string `json:"worldNeeds,omitempty" form:"worldNeeds"`
	Passion    *string `json:"passion,omitempty" form:"passion"`
	Mission    *string `json:"mission,omitempty" form:"mission"`
	Profession *string `json:"profession,omitempty" form:"profession"`
	Vocation   *string `json:"vocation,omitempty" form:"vocation"`
}

func (p RecordPatch) values() map[Field]*string {
	return map[Field]*string{
		FieldLove:       p.Love,
		FieldGoodAt:     p.GoodAt,
		FieldPaidFor:    p.PaidFor,
		FieldWorldNeeds: p.WorldNeeds,
		FieldPassion:    p.Passion,
		FieldMission:    p.Mission,
		FieldProfession: p.Profession,
		FieldVocation:   p.Vocation,
	}
}

// With returns a copy of p that sets f to v. Unknown fields are ignored.
func (p RecordPatch) With(f Field, v string) RecordPatch {
	switch f {
	case FieldLove:
		p.Love = &v
	case FieldGoodAt:
		p.GoodAt = &v
	case FieldPaidFor:
		p.PaidFor = &v
	case FieldWorldNeeds:
		p.WorldNeeds = &v
	case FieldPassion:
		p.Passion = &v
	case FieldMission:
		p.Mission = &v
	case FieldProfession:
		p.Profession = &v
	case FieldVocation:
		p.Vocation = &v
	}
	return p
}

// Intersections is the structured-output shape returned by the generator.
type Intersections struct {
	Passion    string `json:"passion"`
	Mission    string `json:"mission"`
	Profession string `json:"profession"`
	Vocation   string `json:"vocation"`
}

// Patch converts the four intersections into a RecordPatch that leaves the
// core fields alone.
func (i Intersections) Patch() RecordPatch {
	return RecordPatch{
		Passion:    &i.Passion,
		Mission:    &i.Mission,
		Profession: &i.Profession,
		Vocation:   &i.Vocation,
	}
}
