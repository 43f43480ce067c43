package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fridgechef/backend/internal/logging"
	"github.com/pageza/fridgechef/backend/internal/types"
)

var testImage = Image{Data: []byte("jpeg"), Filename: "fridge.jpg", ContentType: "image/jpeg"}

func TestAnalyze(t *testing.T) {
	vision := &fakeVision{ingredients: []string{"egg", "flour"}}
	recipes := &fakeRecipes{recipes: []types.Recipe{{Title: "Pancakes"}}}
	history := &fakeHistory{}
	analyzer := NewAnalyzer(vision, recipes, &fakeArchive{key: "uploads/abc.jpg"}, history, logging.Discard())

	resp, err := analyzer.Analyze(context.Background(), testImage)

	require.NoError(t, err)
	assert.Equal(t, []string{"egg", "flour"}, resp.Ingredients)
	assert.Equal(t, []types.Recipe{{Title: "Pancakes"}}, resp.Recipes)
	assert.Equal(t, []string{"egg", "flour"}, recipes.got)

	require.Len(t, history.records, 1)
	record := history.records[0]
	assert.Equal(t, "uploads/abc.jpg", record.ImageKey)
	assert.Equal(t, int64(4), record.ImageBytes)
	assert.Equal(t, []string{"Pancakes"}, []string(record.RecipeTitles))
}

func TestAnalyzeWithoutOptionalParts(t *testing.T) {
	analyzer := NewAnalyzer(&fakeVision{ingredients: []string{}}, &fakeRecipes{recipes: []types.Recipe{}}, nil, nil, logging.Discard())

	resp, err := analyzer.Analyze(context.Background(), testImage)

	require.NoError(t, err)
	assert.Empty(t, resp.Ingredients)
	assert.Empty(t, resp.Recipes)
}

func TestAnalyzeSideFailuresAreIgnored(t *testing.T) {
	history := &fakeHistory{err: errors.New("db down")}
	analyzer := NewAnalyzer(
		&fakeVision{ingredients: []string{"egg"}},
		&fakeRecipes{recipes: []types.Recipe{}},
		&fakeArchive{err: errors.New("s3 down")},
		history,
		logging.Discard(),
	)

	resp, err := analyzer.Analyze(context.Background(), testImage)

	require.NoError(t, err)
	assert.Equal(t, []string{"egg"}, resp.Ingredients)
	require.Len(t, history.records, 1)
	assert.Empty(t, history.records[0].ImageKey)
}

func TestAnalyzeVisionFailure(t *testing.T) {
	history := &fakeHistory{}
	recipes := &fakeRecipes{}
	analyzer := NewAnalyzer(&fakeVision{err: ErrProviderFailure}, recipes, &fakeArchive{}, history, logging.Discard())

	_, err := analyzer.Analyze(context.Background(), testImage)

	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.Nil(t, recipes.got)
	assert.Empty(t, history.records)
}

func TestAnalyzeRecipeFailure(t *testing.T) {
	analyzer := NewAnalyzer(&fakeVision{ingredients: []string{"egg"}}, &fakeRecipes{err: ErrProviderFailure}, nil, nil, logging.Discard())

	_, err := analyzer.Analyze(context.Background(), testImage)
	assert.ErrorIs(t, err, ErrProviderFailure)
}
