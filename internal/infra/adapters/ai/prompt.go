package ai

import (
	"fmt"
	"strings"

	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/adapter"
)

const systemPrompt = `You are a content writer for a personal-finance catalog.
Always answer with JSON only: an object (or array of objects) with keys
"title", "body" and "tags". The body uses "- " bullet markers for lists.
No markdown fences, no commentary.`

func generatePrompt(params adapter.GenerateParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d %s item(s) for the category %q.\n", max(params.Count, 1), params.ContentType, params.CategoryName)
	if params.Difficulty != "" {
		fmt.Fprintf(&b, "Target audience level: %s.\n", params.Difficulty)
	}
	b.WriteString("Titles must be short, specific and distinct from common generic phrasings.")
	return b.String()
}

func rewritePrompt(item *model.ContentItem) string {
	return fmt.Sprintf(`Reword the following item so it reads differently but loses no information.
Keep the same category and roughly the same length. Return one JSON object.

Title: %s
Body:
%s`, item.Title, item.Body)
}
