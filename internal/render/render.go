// Package render turns analysis results into HTML. Every string that comes from
// the analyze endpoint is escaped by html/template before it reaches the page.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/pageza/fridgechef/backend/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Section is one togglable result region of the page
type Section struct {
	Visible bool
	HTML    template.HTML
}

// PageData is everything the page template needs
type PageData struct {
	Status      string
	Failed      bool
	Ingredients Section
	Recipes     Section
}

// Pills renders one ingredient pill per label, concatenated without a separator.
func Pills(ingredients []string) (template.HTML, error) {
	var buf bytes.Buffer
	for _, ingredient := range ingredients {
		if err := templates.ExecuteTemplate(&buf, "pill", ingredient); err != nil {
			return "", fmt.Errorf("failed to render ingredient pill: %w", err)
		}
	}
	return template.HTML(buf.String()), nil
}

// RecipeCard renders a single recipe. Same input, same markup.
func RecipeCard(recipe types.Recipe) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "recipe", recipe); err != nil {
		return "", fmt.Errorf("failed to render recipe %q: %w", recipe.Title, err)
	}
	return template.HTML(buf.String()), nil
}

// RecipeCards renders one card per recipe, concatenated without a separator.
func RecipeCards(recipes []types.Recipe) (template.HTML, error) {
	var out template.HTML
	for _, recipe := range recipes {
		card, err := RecipeCard(recipe)
		if err != nil {
			return "", err
		}
		out += card
	}
	return out, nil
}

// Sections renders both result regions for a response. A region with no
// entries stays hidden and empty.
func Sections(resp *types.AnalysisResponse) (ingredients, recipes Section, err error) {
	if len(resp.Ingredients) > 0 {
		html, err := Pills(resp.Ingredients)
		if err != nil {
			return Section{}, Section{}, err
		}
		ingredients = Section{Visible: true, HTML: html}
	}

	if len(resp.Recipes) > 0 {
		html, err := RecipeCards(resp.Recipes)
		if err != nil {
			return Section{}, Section{}, err
		}
		recipes = Section{Visible: true, HTML: html}
	}

	return ingredients, recipes, nil
}

// Page writes the full HTML page.
func Page(w io.Writer, data PageData) error {
	if err := templates.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}
