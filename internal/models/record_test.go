package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMergeOnlyTouchesProvidedFields(t *testing.T) {
	r := DefaultRecord()
	before := r

	r.Merge(RecordPatch{Love: strPtr("Music"), Vocation: strPtr("")})

	assert.Equal(t, "Music", r.Love)
	assert.Equal(t, "", r.Vocation)
	assert.Equal(t, before.GoodAt, r.GoodAt)
	assert.Equal(t, before.Passion, r.Passion)
}

func TestPreconditions(t *testing.T) {
	r := DefaultRecord()
	assert.True(t, r.CoreComplete())
	assert.True(t, r.Complete())

	r.Mission = "  "
	assert.True(t, r.CoreComplete())
	assert.False(t, r.Complete())
	assert.Equal(t, []Field{FieldMission}, r.Missing(AllFields))

	r.GoodAt = ""
	assert.False(t, r.CoreComplete())
	assert.Equal(t, []Field{FieldGoodAt}, r.Missing(CoreFields))
}

func TestIntersectionsPatchLeavesCore(t *testing.T) {
	r := DefaultRecord()
	core := []string{r.Love, r.GoodAt, r.WorldNeeds, r.PaidFor}

	r.Merge(Intersections{Passion: "A", Mission: "B", Profession: "C", Vocation: "D"}.Patch())

	assert.Equal(t, core, []string{r.Love, r.GoodAt, r.WorldNeeds, r.PaidFor})
	assert.Equal(t, "A", r.Passion)
	assert.Equal(t, "B", r.Mission)
	assert.Equal(t, "C", r.Profession)
	assert.Equal(t, "D", r.Vocation)
}

func TestFieldHelpers(t *testing.T) {
	assert.True(t, FieldLove.IsCore())
	assert.False(t, FieldPassion.IsCore())
	assert.True(t, FieldPassion.Valid())
	assert.False(t, Field("hobby").Valid())
	assert.Len(t, AllFields, 8)
	assert.Equal(t, "love, paidFor", JoinFields([]Field{FieldLove, FieldPaidFor}))
	assert.Equal(t, "", JoinFields(nil))
}

func TestColorAssignmentFallsBack(t *testing.T) {
	c := ColorAssignment{FieldLove: "#ff0000"}
	assert.Equal(t, "#ff0000", c.Color(FieldLove))
	assert.Equal(t, "#6366f1", c.Color(FieldPaidFor))
}

func TestPatchWith(t *testing.T) {
	p := RecordPatch{}.With(FieldMission, "Teach").With(Field("unknown"), "x")
	require.NotNil(t, p.Mission)
	assert.Equal(t, "Teach", *p.Mission)
	assert.Nil(t, p.Love)
}
