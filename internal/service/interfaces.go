package service

import (
	"context"

	"github.com/pageza/fridgechef/backend/internal/model"
	"github.com/pageza/fridgechef/backend/internal/types"
)

// IVisionService detects ingredients in a photo
type IVisionService interface {
	DetectIngredients(ctx context.Context, image []byte, contentType string) ([]string, error)
}

// IRecipeService suggests recipes for ingredients
type IRecipeService interface {
	GenerateRecipes(ctx context.Context, ingredients []string) ([]types.Recipe, error)
}

// IImageArchive stores uploaded photos and returns their key
type IImageArchive interface {
	Store(ctx context.Context, image []byte, contentType string) (string, error)
}

// IHistoryService records and lists analyses
type IHistoryService interface {
	Record(ctx context.Context, analysis *model.Analysis) error
	Recent(ctx context.Context, limit int) ([]model.Analysis, error)
}

// IAnalyzer runs the whole photo to recipes pipeline
type IAnalyzer interface {
	Analyze(ctx context.Context, image Image) (*types.AnalysisResponse, error)
}
