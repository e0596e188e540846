package cleaner

import (
	"fmt"
)

// Archive is the Markdown-rendered form of one article-classified content
// body, the shape the content-storage path attaches to a classified
// article (§4.K: "kept on the content-storage path for optional markdown
// rendering of archived bodies").
type Archive struct {
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Author   string `json:"author,omitempty"`
	Language string `json:"language,omitempty"`
	Markdown string `json:"markdown"`
}

var defaultConverter = newMarkdownConverter()

// boilerplateExcludeTags are stripped before the pruning fallback scores
// remaining blocks, the same boilerplate classes readability's own heuristics
// target but applied ahead of a scorer that has no DOM-wide view of them.
var boilerplateExcludeTags = []string{"script", "style", "nav", "footer", "aside", "form"}

// ToArchiveMarkdown runs the readability extraction stage (narrowed first by
// a host-specific CSS selector when the caller supplies one, for the hosts
// whose markup defeats the generic heuristics) and converts the resulting
// clean HTML to Markdown with inline links rewritten to reference-style
// citations. Replaces the teacher's request-scoped Clean pipeline with a
// single call suited to the crawler's post-fetch classification step rather
// than a per-request API format negotiation.
//
// If readability fails to find a confident main-content region, this falls
// back to the scoring-based pruner over boilerplate-stripped HTML rather than
// giving up, so an article still gets archived even on markup readability
// doesn't recognize.
func ToArchiveMarkdown(rawHTML, sourceURL string, selector string) (Archive, error) {
	body := rawHTML
	if selector != "" {
		if narrowed, err := ApplyCSSSelector(rawHTML, selector); err == nil {
			body = narrowed
		}
	}

	article, ok := ExtractContent(body, sourceURL)
	content := article.Content
	if !ok {
		filtered := FilterContent(body, nil, boilerplateExcludeTags)
		if pruned, err := PruneContent(filtered, sourceURL); err == nil {
			content = pruned
		}
	}

	md, err := ToMarkdown(defaultConverter, content, sourceURL)
	if err != nil {
		return Archive{}, fmt.Errorf("cleaner: markdown conversion: %w", err)
	}

	return Archive{
		Title:    article.Title,
		Excerpt:  article.Excerpt,
		Author:   article.Byline,
		Language: article.Language,
		Markdown: ConvertToCitations(md),
	}, nil
}
