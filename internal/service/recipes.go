package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pageza/fridgechef/backend/internal/types"
)

const recipeSystemPrompt = "You are a helpful home cooking assistant. Respond only with strict JSON."

const recipePromptTemplate = `The user has these ingredients:
%s

Create exactly %d simple recipes using mostly these ingredients.
For each recipe return:
- title
- short_description
- ingredients_used (subset of the given ingredients)
- steps: 4-6 concise steps

Return STRICT JSON in this shape:
{
  "recipes": [
    {
      "title": "...",
      "short_description": "...",
      "ingredients_used": ["..."],
      "steps": ["...", "..."]
    }
  ]
}`

const mockRecipeReply = `{
  "recipes": [
    {
      "title": "Cheesy Spinach Omelette",
      "short_description": "A quick breakfast omelette stuffed with spinach and cheddar.",
      "ingredients_used": ["eggs", "cheddar cheese", "spinach"],
      "steps": [
        "Beat the eggs in a bowl.",
        "Pour into a hot pan and cook until just set.",
        "Add chopped spinach and grated cheddar on one half.",
        "Fold, cook another minute, then serve."
      ]
    }
  ]
}`

// RecipeService suggests recipes for a list of ingredients
type RecipeService struct {
	chat  Completer
	model string
	count int
	mock  bool
	log   logrus.FieldLogger
}

// NewRecipeService creates a RecipeService asking for count recipes per call
func NewRecipeService(chat Completer, model string, count int, mock bool, log logrus.FieldLogger) *RecipeService {
	return &RecipeService{
		chat:  chat,
		model: model,
		count: count,
		mock:  mock,
		log:   log.WithField("component", "recipes"),
	}
}

// GenerateRecipes returns recipe suggestions. No ingredients means no recipes and no model call.
func (s *RecipeService) GenerateRecipes(ctx context.Context, ingredients []string) ([]types.Recipe, error) {
	if len(ingredients) == 0 {
		return []types.Recipe{}, nil
	}

	raw := mockRecipeReply
	if !s.mock {
		reply, err := s.chat.Complete(ctx, ChatRequest{
			Model: s.model,
			Messages: []Message{
				{Role: "system", Content: recipeSystemPrompt},
				{Role: "user", Content: fmt.Sprintf(recipePromptTemplate, strings.Join(ingredients, ", "), s.count)},
			},
			ResponseFormat: map[string]string{"type": "json_object"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate recipes: %w", err)
		}
		raw = reply
	}

	recipes, ok := ParseRecipes(raw)
	if !ok {
		s.log.Warn("could not parse recipe reply, using fallback recipe")
		return []types.Recipe{FallbackRecipe(ingredients)}, nil
	}
	return recipes, nil
}

// ParseRecipes reads a {"recipes": [...]} reply. ok is false when the reply is not valid JSON.
// Nil lists inside a recipe are normalised to empty ones.
func ParseRecipes(raw string) (recipes []types.Recipe, ok bool) {
	var wrapper struct {
		Recipes []types.Recipe `json:"recipes"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &wrapper); err != nil {
		return nil, false
	}

	recipes = make([]types.Recipe, 0, len(wrapper.Recipes))
	for _, r := range wrapper.Recipes {
		if r.IngredientsUsed == nil {
			r.IngredientsUsed = []string{}
		}
		if r.Steps == nil {
			r.Steps = []string{}
		}
		recipes = append(recipes, r)
	}
	return recipes, true
}

// FallbackRecipe is served when the model answers with something that is not a recipe list
func FallbackRecipe(ingredients []string) types.Recipe {
	used := make([]string, len(ingredients))
	copy(used, ingredients)
	return types.Recipe{
		Title:            "Freestyle Fridge Scramble",
		ShortDescription: "Throw everything in a pan and make a hearty scramble.",
		IngredientsUsed:  used,
		Steps: []string{
			"Chop all ingredients into bite-sized pieces.",
			"Heat some oil or butter in a pan.",
			"Add everything and cook until heated through.",
			"Season to taste and serve.",
		},
	}
}
