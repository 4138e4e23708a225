package domain

import "errors"

// TaskKind identifies the category of generation work a task performs.
// The set is closed: metric history is partitioned by kind, so an unknown
// kind at the boundary is a configuration error rather than a new category.
type TaskKind string

// All supported task kinds.
const (
	KindBrainstorm TaskKind = "brainstorm"
	KindPlot       TaskKind = "plot"
	KindCharacter  TaskKind = "character"
	KindOutline    TaskKind = "outline"
	KindChapter    TaskKind = "chapter"
	KindEdit       TaskKind = "edit"
	KindScore      TaskKind = "score"
)

// ErrInvalidTaskKind is returned when a kind outside the closed set is used.
var ErrInvalidTaskKind = errors.New("invalid task kind")

// displayNames maps kinds to the names shown in performance summaries.
var displayNames = map[TaskKind]string{
	KindBrainstorm: "Idea Generation",
	KindPlot:       "Plot and Characters Generation",
	KindCharacter:  "Character Creation",
	KindOutline:    "Outlines Generation",
	KindChapter:    "Chapter Generation",
	KindEdit:       "Editing",
	KindScore:      "Scoring",
}

// Kinds returns every supported task kind in a stable order.
func Kinds() []TaskKind {
	return []TaskKind{
		KindBrainstorm,
		KindPlot,
		KindCharacter,
		KindOutline,
		KindChapter,
		KindEdit,
		KindScore,
	}
}

// Valid reports whether k is a member of the closed kind set.
func (k TaskKind) Valid() bool {
	_, ok := displayNames[k]
	return ok
}

// DisplayName returns the human-readable name for the kind.
func (k TaskKind) DisplayName() string {
	if name, ok := displayNames[k]; ok {
		return name
	}
	return string(k)
}
