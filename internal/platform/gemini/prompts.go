package gemini

import (
	"fmt"
	"text/template"

	"github.com/fableforge/fable-api/internal/domain"
)

// Every template receives the raw task parameters, so fields resolve with
// {{.name}} map lookups and missing keys fall back through "or".
const (
	brainstormPrompt = `You are a creative writing assistant for novelists.
Generate {{or .num_ideas 3}} distinct novel ideas{{with .genre}} in the {{.}} genre{{end}}{{with .theme}} exploring the theme "{{.}}"{{end}}.

Respond with JSON only, in this shape:
{"ideas": [{"title": "...", "premise": "...", "hook": "..."}]}`

	plotPrompt = `You are a story architect. Build a full plot and main character cast for this novel idea:
{{with .idea}}{{.}}{{end}}{{with .premise}}
Premise: {{.}}{{end}}{{with .genre}}
Genre: {{.}}{{end}}

Respond with JSON only:
{"plot": {"acts": [{"number": 1, "summary": "..."}], "climax": "...", "resolution": "..."},
 "characters": [{"name": "...", "role": "...", "description": "..."}]}`

	characterPrompt = `You are a character designer for fiction. Create a detailed character for this story:
{{with .plot}}{{.}}{{end}}{{with .role}}
Role in the story: {{.}}{{end}}{{with .name}}
Name to use: {{.}}{{end}}

Respond with JSON only:
{"character": {"name": "...", "role": "...", "appearance": "...", "personality": "...", "backstory": "...", "arc": "..."}}`

	outlinePrompt = `You are a novel outliner. Produce a chapter-by-chapter outline{{with .num_chapters}} of {{.}} chapters{{end}} for this plot:
{{with .plot}}{{.}}{{end}}{{with .characters}}
Characters: {{.}}{{end}}

Respond with JSON only:
{"chapters": [{"chapter_number": 1, "title": "...", "summary": "...", "key_events": ["..."]}]}`

	chapterPrompt = `You are a novelist. Write chapter {{or .chapter_number 1}} of this novel.
{{with .title}}Chapter title: {{.}}
{{end}}{{with .outline}}Outline for this chapter: {{.}}
{{end}}{{with .previous_summary}}What happened so far: {{.}}
{{end}}{{with .style}}Write in this style: {{.}}
{{end}}
Respond with JSON only:
{"chapter_number": {{or .chapter_number 1}}, "title": "...", "content": "..."}`

	editPrompt = `You are a fiction editor. Revise the following chapter for pacing, clarity and prose quality{{with .notes}}, paying attention to these notes: {{.}}{{end}}.

{{with .content}}{{.}}{{end}}

Respond with JSON only:
{"content": "...", "changes": ["..."]}`

	scorePrompt = `You are a literary critic. Score the following chapter on a 1-10 scale for plot, prose, pacing and characterization, with a short justification for each.

{{with .content}}{{.}}{{end}}

Respond with JSON only:
{"scores": {"plot": 0, "prose": 0, "pacing": 0, "characterization": 0}, "overall": 0, "justification": "..."}`
)

// buildPromptTemplates parses one template per task kind. A kind without a
// template cannot be generated.
func buildPromptTemplates() (map[domain.TaskKind]*template.Template, error) {
	sources := map[domain.TaskKind]string{
		domain.KindBrainstorm: brainstormPrompt,
		domain.KindPlot:       plotPrompt,
		domain.KindCharacter:  characterPrompt,
		domain.KindOutline:    outlinePrompt,
		domain.KindChapter:    chapterPrompt,
		domain.KindEdit:       editPrompt,
		domain.KindScore:      scorePrompt,
	}

	templates := make(map[domain.TaskKind]*template.Template, len(sources))
	for kind, source := range sources {
		parsed, err := template.New(string(kind)).Parse(source)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s prompt template: %w", kind, err)
		}
		templates[kind] = parsed
	}
	return templates, nil
}
