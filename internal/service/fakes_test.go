package service

import (
	"context"
	"sync"

	"github.com/pageza/fridgechef/backend/internal/model"
	"github.com/pageza/fridgechef/backend/internal/types"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
	last  ChatRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req ChatRequest) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

type fakeVision struct {
	ingredients []string
	err         error
}

func (f *fakeVision) DetectIngredients(context.Context, []byte, string) ([]string, error) {
	return f.ingredients, f.err
}

type fakeRecipes struct {
	recipes []types.Recipe
	err     error
	got     []string
}

func (f *fakeRecipes) GenerateRecipes(_ context.Context, ingredients []string) ([]types.Recipe, error) {
	f.got = ingredients
	return f.recipes, f.err
}

type fakeArchive struct {
	key string
	err error
}

func (f *fakeArchive) Store(context.Context, []byte, string) (string, error) {
	return f.key, f.err
}

type fakeHistory struct {
	mu      sync.Mutex
	records []*model.Analysis
	err     error
}

func (f *fakeHistory) Record(_ context.Context, a *model.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, a)
	return f.err
}

func (f *fakeHistory) Recent(context.Context, int) ([]model.Analysis, error) {
	return nil, nil
}
