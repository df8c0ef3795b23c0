package ai

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupModel(t *testing.T) {
	spec, ok := LookupModel("gpt-4")
	require.True(t, ok)
	assert.Equal(t, 8192, spec.MaxTokens)
	assert.True(t, spec.Chat)

	_, ok = LookupModel("gpt-99")
	assert.False(t, ok)
}

func TestInstructModelIsNotChat(t *testing.T) {
	spec, ok := LookupModel("gpt-3.5-turbo-instruct")
	require.True(t, ok)
	assert.False(t, spec.Chat)
	assert.False(t, IsChatModel("gpt-3.5-turbo-instruct"))
	assert.True(t, IsChatModel("gpt-3.5-turbo"))
}

func TestSupportedModelsSortedAndComplete(t *testing.T) {
	specs := SupportedModels()
	assert.Len(t, specs, len(catalog))
	assert.True(t, sort.SliceIsSorted(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	}))
}
