package mcp

import "github.com/mark3labs/mcp-go/mcp"

// capsuleProperties describes the capsule argument of capsule_save.
var capsuleProperties = map[string]any{
	"id": map[string]any{
		"type":        "string",
		"description": "Capsule id. Omit to save a new capsule.",
	},
	"meta": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string"},
			"subject":     map[string]any{"type": "string"},
			"level":       map[string]any{"type": "string", "enum": []string{"Beginner", "Intermediate", "Advanced"}},
			"description": map[string]any{"type": "string"},
		},
	},
	"notes": map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	},
	"flashcards": map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"front": map[string]any{"type": "string"},
				"back":  map[string]any{"type": "string"},
			},
		},
	},
	"quiz": map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question":    map[string]any{"type": "string"},
				"choices":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 4, "maxItems": 4},
				"correct":     map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
				"explanation": map[string]any{"type": "string"},
			},
		},
	},
}

var createToolDef = mcp.NewTool("capsule_create",
	mcp.WithDescription("Create an empty capsule and add it to the library. Fill it with capsule_save."),
	mcp.WithString("title", mcp.Description("Title, default \"Untitled capsule\"")),
	mcp.WithString("subject", mcp.Description("Subject shown on the library card")),
	mcp.WithString("level", mcp.Description("Beginner, Intermediate or Advanced"), mcp.Enum("Beginner", "Intermediate", "Advanced")),
	mcp.WithString("description", mcp.Description("Short description")),
)

var saveToolDef = mcp.NewTool("capsule_save",
	mcp.WithDescription("Save a capsule. Blank notes, flashcards and questions are dropped; a capsule with nothing left is rejected. Saving refreshes the updated time."),
	mcp.WithObject("capsule", mcp.Required(), mcp.Description("The capsule to save"), mcp.Properties(capsuleProperties)),
)

var fetchToolDef = mcp.NewTool("capsule_fetch",
	mcp.WithDescription("Fetch a capsule with its notes, flashcards and quiz."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
)

var listToolDef = mcp.NewTool("capsule_list",
	mcp.WithDescription("List library entries in index order."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Max entries, default 50, max 500")),
	mcp.WithNumber("offset", mcp.Description("Entries to skip")),
)

var deleteToolDef = mcp.NewTool("capsule_delete",
	mcp.WithDescription("Delete a capsule together with its library entry and progress."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
)

var exportToolDef = mcp.NewTool("capsule_export",
	mcp.WithDescription("Write a capsule export document to a .json file."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
	mcp.WithString("path", mcp.Description("Target .json path, default <pocket dir>/exports/<title>.json")),
)

var importToolDef = mcp.NewTool("capsule_import",
	mcp.WithDescription("Import a capsule export document as a new capsule."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path of the .json export document")),
)

var progressToolDef = mcp.NewTool("progress_get",
	mcp.WithDescription("Get a capsule's best quiz score and known flashcards."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
)

var markToolDef = mcp.NewTool("flashcard_mark",
	mcp.WithDescription("Mark a flashcard known or unknown."),
	mcp.WithIdempotentHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("Flashcard position, from 0")),
	mcp.WithBoolean("known", mcp.Required(), mcp.Description("true for known, false for unknown")),
)

var submitToolDef = mcp.NewTool("quiz_submit",
	mcp.WithDescription("Score a full quiz attempt and keep the best score."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Capsule id")),
	mcp.WithArray("answers", mcp.Required(),
		mcp.Description("Chosen choice (0-3) per question in order, -1 for unanswered"),
		mcp.Items(map[string]any{"type": "integer"}),
	),
)

var checkToolDef = mcp.NewTool("capsule_check",
	mcp.WithDescription("Compare the library index with the stored capsules and progress records."),
	mcp.WithBoolean("prune", mcp.Description("Repair what is found")),
)
