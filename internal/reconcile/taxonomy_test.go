package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapCategoryKnownSlug(t *testing.T) {
	tag, ignored, ok := mapCategory("spartanbeast")
	assert.True(t, ok)
	assert.False(t, ignored)
	assert.Equal(t, "beast", tag)
}

func TestMapCategoryIgnoredSlug(t *testing.T) {
	_, ignored, ok := mapCategory("trifectapass")
	assert.True(t, ok)
	assert.True(t, ignored)
}

func TestMapCategoryUnknownSlug(t *testing.T) {
	_, ignored, ok := mapCategory("underwater-basket-weaving")
	assert.False(t, ok)
	assert.False(t, ignored)
}

func TestTagsAreClosedAndSorted(t *testing.T) {
	tags := Tags()
	assert.Contains(t, tags, "sprint")
	assert.Contains(t, tags, "hh_12")
	assert.NotContains(t, tags, "spartansprint", "Tags holds internal tags, not upstream slugs")

	for i := 1; i < len(tags); i++ {
		assert.LessOrEqual(t, tags[i-1], tags[i])
	}
}

func TestCategorySet(t *testing.T) {
	set := NewCategorySet()
	assert.False(t, set["sprint"])

	set.Mark("sprint")
	set.Mark("ultra")
	set.Mark("not-a-real-tag")

	assert.Equal(t, []string{"sprint", "ultra"}, set.Offered())
}
