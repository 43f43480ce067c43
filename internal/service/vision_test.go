package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fridgechef/backend/internal/logging"
)

func TestParseIngredients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"json array", `["milk", "eggs", "spinach"]`, []string{"milk", "eggs", "spinach"}},
		{"cleans and dedupes", `[" Milk ", "milk", "", "EGGS"]`, []string{"milk", "eggs"}},
		{"fenced json", "```json\n[\"butter\"]\n```", []string{"butter"}},
		{"comma fallback", "milk, eggs , Cheddar Cheese", []string{"milk", "eggs", "cheddar cheese"}},
		{"broken json fallback", `["milk", "eggs"`, []string{"milk", "eggs"}},
		{"mixed element types", `["Milk", 2, "eggs"]`, []string{"milk", "2", "eggs"}},
		{"empty", `[]`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIngredients(tt.raw))
		})
	}
}

func TestDetectIngredientsSendsImage(t *testing.T) {
	chat := &fakeCompleter{reply: `["Eggs", "eggs", "flour"]`}
	svc := NewVisionService(chat, "vision-model", false, logging.Discard())

	got, err := svc.DetectIngredients(context.Background(), []byte("img"), "image/png")

	require.NoError(t, err)
	assert.Equal(t, []string{"eggs", "flour"}, got)
	require.Equal(t, 1, chat.calls)
	assert.Equal(t, "vision-model", chat.last.Model)

	parts, ok := chat.last.Messages[0].Content.([]ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,aW1n"))
}

func TestDetectIngredientsMock(t *testing.T) {
	chat := &fakeCompleter{}
	svc := NewVisionService(chat, "m", true, logging.Discard())

	got, err := svc.DetectIngredients(context.Background(), []byte("img"), "image/png")

	require.NoError(t, err)
	assert.Equal(t, []string{"milk", "eggs", "cheddar cheese", "spinach"}, got)
	assert.Zero(t, chat.calls)
}

func TestDetectIngredientsProviderError(t *testing.T) {
	chat := &fakeCompleter{err: ErrProviderFailure}
	svc := NewVisionService(chat, "m", false, logging.Discard())

	_, err := svc.DetectIngredients(context.Background(), []byte("img"), "image/png")

	assert.True(t, errors.Is(err, ErrProviderFailure))
}
