package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pageza/fridgechef/backend/internal/model"
	"github.com/pageza/fridgechef/backend/internal/types"
)

// Image is an uploaded photo
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Analyzer turns a photo into ingredients and recipe suggestions.
// Archive and history are optional; their failures are logged and never fail an analysis.
type Analyzer struct {
	vision  IVisionService
	recipes IRecipeService
	archive IImageArchive
	history IHistoryService
	log     logrus.FieldLogger
}

// NewAnalyzer creates an Analyzer. archive and history may be nil.
func NewAnalyzer(vision IVisionService, recipes IRecipeService, archive IImageArchive, history IHistoryService, log logrus.FieldLogger) *Analyzer {
	return &Analyzer{
		vision:  vision,
		recipes: recipes,
		archive: archive,
		history: history,
		log:     log.WithField("component", "analyzer"),
	}
}

// Analyze detects the ingredients in image and suggests recipes for them
func (a *Analyzer) Analyze(ctx context.Context, image Image) (*types.AnalysisResponse, error) {
	started := time.Now()

	archived := make(chan string, 1)
	if a.archive != nil {
		go func() {
			key, err := a.archive.Store(ctx, image.Data, image.ContentType)
			if err != nil {
				a.log.WithError(err).Warn("failed to archive upload")
			}
			archived <- key
		}()
	} else {
		archived <- ""
	}

	ingredients, err := a.vision.DetectIngredients(ctx, image.Data, image.ContentType)
	if err != nil {
		<-archived
		return nil, err
	}

	recipes, err := a.recipes.GenerateRecipes(ctx, ingredients)
	if err != nil {
		<-archived
		return nil, err
	}

	resp := &types.AnalysisResponse{Ingredients: ingredients, Recipes: recipes}
	imageKey := <-archived
	elapsed := time.Since(started)

	a.log.WithFields(logrus.Fields{
		"filename":    image.Filename,
		"ingredients": len(ingredients),
		"recipes":     len(recipes),
		"duration_ms": elapsed.Milliseconds(),
	}).Info("analysis complete")

	if a.history != nil {
		titles := make([]string, 0, len(recipes))
		for _, r := range recipes {
			titles = append(titles, r.Title)
		}
		record := &model.Analysis{
			ImageKey:     imageKey,
			ContentType:  image.ContentType,
			ImageBytes:   int64(len(image.Data)),
			Ingredients:  model.StringList(ingredients),
			RecipeTitles: model.StringList(titles),
			DurationMS:   elapsed.Milliseconds(),
		}
		if err := a.history.Record(ctx, record); err != nil {
			a.log.WithError(err).Warn("failed to record analysis")
		}
	}

	return resp, nil
}
