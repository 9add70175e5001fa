package mcp

import "github.com/mark3labs/mcp-go/mcp"

var searchPartsTool = mcp.NewTool("search_parts",
	mcp.WithDescription("Search refrigerator and dishwasher parts by keyword, brand and appliance type."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Keywords, a part name or a part number"),
	),
	mcp.WithString("appliance_type",
		mcp.Description("Restrict to one appliance type; universal parts are always included"),
		mcp.Enum("refrigerator", "dishwasher"),
	),
	mcp.WithString("brand",
		mcp.Description("Restrict to one brand, e.g. Whirlpool"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
)

var getPartTool = mcp.NewTool("get_part",
	mcp.WithDescription("Get the full record for one part number, including price, stock and installation difficulty."),
	mcp.WithString("part_number",
		mcp.Required(),
		mcp.Description("Part number, e.g. PS11752778"),
	),
)

var checkCompatibilityTool = mcp.NewTool("check_compatibility",
	mcp.WithDescription("Check whether a part fits an appliance model. Returns a status, a confidence and the rule that decided it."),
	mcp.WithString("part_number",
		mcp.Required(),
		mcp.Description("Part number, e.g. PS11701542"),
	),
	mcp.WithString("model_number",
		mcp.Required(),
		mcp.Description("Appliance model number, e.g. WDT780SAEM1"),
	),
)

var searchRepairsTool = mcp.NewTool("search_repairs",
	mcp.WithDescription("Find troubleshooting guides for a symptom such as 'not draining' or 'leaking'."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Symptom or problem description"),
	),
	mcp.WithString("appliance_type",
		mcp.Description("Restrict to one appliance type"),
		mcp.Enum("refrigerator", "dishwasher"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)

var semanticSearchTool = mcp.NewTool("semantic_search",
	mcp.WithDescription("Search the indexed catalog semantically across parts, repair guides and articles."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithString("kind",
		mcp.Description("Filter results by record kind"),
		mcp.Enum("part", "repair", "article"),
	),
	mcp.WithString("appliance_type",
		mcp.Description("Restrict to one appliance type"),
		mcp.Enum("refrigerator", "dishwasher"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)

var askTool = mcp.NewTool("ask",
	mcp.WithDescription("Ask the parts assistant a question. Conversation context carries across calls that share a conversation_id."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The customer's question"),
	),
	mcp.WithString("conversation_id",
		mcp.Description("Conversation to continue; a new one is started when empty"),
	),
)
