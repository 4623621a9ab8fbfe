package mcp

import "github.com/mark3labs/mcp-go/mcp"

var logFieldOptions = []mcp.ToolOption{
	mcp.WithString("start_date", mcp.Required(), mcp.Description("First day of the period, YYYY-MM-DD")),
	mcp.WithString("end_date", mcp.Description("Last day of the period, YYYY-MM-DD; omit while the period is ongoing")),
	mcp.WithString("flow", mcp.Enum("Light", "Medium", "Heavy"), mcp.Description("Flow intensity (default Medium)")),
	mcp.WithString("mood", mcp.Description("Mood tag such as Happy, Tired, Irritable (default Happy)")),
	mcp.WithArray("symptoms", mcp.WithStringItems(), mcp.Description("Symptom names")),
	mcp.WithString("notes", mcp.Description("Free-form notes")),
}

func withLogFields(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts, logFieldOptions...)
}

var logAddToolDef = mcp.NewTool("cycle_log_add", withLogFields(
	mcp.WithDescription("Record a period. Returns the stored log with its generated id."),
)...)

var logUpdateToolDef = mcp.NewTool("cycle_log_update", withLogFields(
	mcp.WithDescription("Replace every field of an existing log. Omitted optional fields are cleared."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Log id")),
)...)

var logDeleteToolDef = mcp.NewTool("cycle_log_delete",
	mcp.WithDescription("Permanently delete a log."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Log id")),
)

var logListToolDef = mcp.NewTool("cycle_log_list",
	mcp.WithDescription("List logs, most recent start date first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var statusToolDef = mcp.NewTool("cycle_status",
	mcp.WithDescription("Current cycle phase and day, next predicted period, and today's log."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var predictToolDef = mcp.NewTool("cycle_predict",
	mcp.WithDescription("Predict the next period start date. Explains why when no prediction is possible."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var statsToolDef = mcp.NewTool("cycle_stats",
	mcp.WithDescription("Average cycle length, period duration, regularity, and per-cycle history."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("cycle_export",
	mcp.WithDescription("Write all logs and custom symptoms to a JSONL backup file."),
	mcp.WithString("path", mcp.Description("Destination .jsonl file (default ~/.lunacare/exports/<label>-<timestamp>.jsonl)")),
	mcp.WithString("label", mcp.Description("File name prefix for the default path")),
)

var importToolDef = mcp.NewTool("cycle_import",
	mcp.WithDescription("Restore logs and custom symptoms from a JSONL backup file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Backup .jsonl file")),
	mcp.WithString("mode", mcp.Enum("error", "replace", "rename"),
		mcp.Description("Collision handling: error (atomic, default), replace, or rename")),
)

var askToolDef = mcp.NewTool("advice_ask",
	mcp.WithDescription("Ask the care advisor a question. Answers are tailored to the current cycle phase and always returned, falling back to built-in advice when the remote model is unavailable."),
	mcp.WithString("query", mcp.Description("Question; required unless topic_id is set")),
	mcp.WithString("topic_id", mcp.Description("Ask the question of a library topic (see advice_topics)")),
	mcp.WithString("phase", mcp.Enum("menstrual", "follicular", "ovulation", "luteal", "unknown"),
		mcp.Description("Override the derived phase")),
)

var tipToolDef = mcp.NewTool("advice_tip",
	mcp.WithDescription("Today's care tip for the current phase."),
)

var topicsToolDef = mcp.NewTool("advice_topics",
	mcp.WithDescription("Suggested questions grouped by category, with phase-aware quick tags."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var symptomListToolDef = mcp.NewTool("symptom_list",
	mcp.WithDescription("List the default and custom symptoms offered when logging."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var symptomAddToolDef = mcp.NewTool("symptom_add",
	mcp.WithDescription("Add a custom symptom."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Symptom name")),
	mcp.WithString("emoji", mcp.Description("Display emoji (default ✨)")),
)

var symptomDeleteToolDef = mcp.NewTool("symptom_delete",
	mcp.WithDescription("Delete a custom symptom. Logs that recorded it are unchanged."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("Symptom name")),
)
