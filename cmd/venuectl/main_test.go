package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	tags, err := parseTags([]string{"음식점=김치찌개, 조용한", "카페=라떼", "콘텐츠=", "음식점=국밥"})
	require.NoError(t, err)

	assert.Equal(t, []string{"김치찌개", "조용한", "국밥"}, tags["음식점"])
	assert.Equal(t, []string{"라떼"}, tags["카페"])
	assert.Contains(t, tags, "콘텐츠")
	assert.Empty(t, tags["콘텐츠"])
}

func TestParseTags_UnknownCategory(t *testing.T) {
	_, err := parseTags([]string{"술집=소주"})
	assert.ErrorContains(t, err, "unknown category")
}
