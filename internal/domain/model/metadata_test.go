package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stadatax/internal/domain/model"
)

func TestDynamicMetadata_Complete(t *testing.T) {
	opt := []model.VariableOption{{ID: "1", Label: "x"}}

	assert.True(t, model.DynamicMetadata{VerticalVars: opt, HorizontalVars: opt, Years: opt}.Complete())
	assert.False(t, model.DynamicMetadata{VerticalVars: opt, HorizontalVars: opt}.Complete())
	assert.False(t, model.DynamicMetadata{VerticalVars: opt, HorizontalVars: opt, DerivedYears: opt}.Complete(),
		"derived years do not stand in for years")
}

func TestDynamicMetadata_OptionGroupsSkipsEmpty(t *testing.T) {
	md := model.DynamicMetadata{
		VerticalVars:   []model.VariableOption{{ID: "1", Label: "Bogor"}},
		HorizontalVars: []model.VariableOption{{ID: "2", Label: "Laki-laki"}},
		Years:          []model.VariableOption{{ID: "123", Label: "2023"}},
	}

	groups := md.OptionGroups()

	require.Len(t, groups, 3)
	assert.Equal(t, "vervar", groups[0].Param)
	assert.Equal(t, model.MultiChoice, groups[1].Selection)
	assert.Equal(t, "th", groups[2].Param)
}

func TestFindOption(t *testing.T) {
	opts := []model.VariableOption{{ID: "1", Label: "a"}, {ID: "2", Label: "b"}}

	got, ok := model.FindOption(opts, "2")
	assert.True(t, ok)
	assert.Equal(t, "b", got.Label)

	_, ok = model.FindOption(opts, "9")
	assert.False(t, ok)
}
