package score

import (
	"math"
	"strings"
	"testing"

	"github.com/CraigKelly/riskmap/model"
	"github.com/stretchr/testify/assert"
)

func TestBuildTable(t *testing.T) {
	assert := assert.New(t)

	r1 := fixtureResult()
	r1.Name = "uni-bym"

	r2 := fixtureResult()
	r2.Name = "uni-leroux"

	rows := BuildTable([]*model.Result{r1, r2})
	assert.Len(rows, 2)

	// Sorted by disease then model
	assert.Equal("uni-bym", rows[0].Model)
	assert.Equal("uni-leroux", rows[1].Model)
	for _, row := range rows {
		assert.Equal("copd", row.Disease)
		assert.False(math.IsNaN(row.DIC))
		assert.False(math.IsInf(row.DIC, 0))
		assert.Empty(row.Note)
	}

	// Identical draws give identical scores
	assert.InDelta(rows[0].DIC, rows[1].DIC, 1e-12)
	assert.InDelta(rows[0].TotalCPO, rows[1].TotalCPO, 1e-12)
}

func TestBuildTableFlagsInsteadOfAborting(t *testing.T) {
	assert := assert.New(t)

	good := fixtureResult()
	good.Name = "good"

	shaky := fixtureResult()
	shaky.Name = "shaky"
	shaky.Lambda.Data[0] = 1e-300

	rows := BuildTable([]*model.Result{good, shaky})
	assert.Len(rows, 2)

	byModel := map[string]Row{}
	for _, r := range rows {
		byModel[r.Model] = r
	}

	assert.Empty(byModel["good"].Note)
	assert.Contains(byModel["shaky"].Note, "unstable")
}

func TestFormatTable(t *testing.T) {
	assert := assert.New(t)

	rows := []Row{
		{Disease: "copd", Model: "uni-bym", DIC: 123.45, TotalCPO: -42.1},
		{Disease: "copd", Model: "mv-leroux", DIC: 120.01, TotalCPO: -41.0, Note: "unstable CPO"},
	}

	out := FormatTable(rows)
	assert.True(strings.HasPrefix(out, "Disease"))
	assert.Contains(out, "uni-bym")
	assert.Contains(out, "123.45")
	assert.Contains(out, "unstable CPO")
}
