// Package descriptions holds the long-form tool descriptions shown to MCP clients.
package descriptions

import "sort"

// Tool names
const (
	ToolValidateTable = "validate_table"
	ToolListTemplates = "list_templates"
	ToolSignDocuments = "sign_documents"
	ToolRunHistory    = "run_history"
	ToolServerInfo    = "server_info"
)

const (
	ValidateTableDescription = `Check that a signer table can drive a signing run.

**When to use:** Before sign_documents, or whenever a table was edited by hand.

**What it checks:** The file is a readable .xlsx or .csv, it has the first_name and national_id columns (nombre/dni and similar headers are accepted) and no row leaves either of them blank.

**Examples:**
• "Validate firmantes.xlsx before signing the contracts"
• "Why does the signing run reject personal_2024.csv?"

**Best practices:** The message names the missing column or counts the incomplete rows; fix the table and validate again.`

	ListTemplatesDescription = `List the PDF and DOCX templates found in a directory.

**When to use:** To see which templates a directory-based sign_documents call would pick up.

**Behavior:** Walks the directory recursively, ignores hidden files and Office lock files (~$...), and rejects PDFs that cannot be parsed or exceed the configured size limit.

**Examples:**
• "Which templates are in plantillas/?"
• "List the documents ready to be signed in the working directory"`

	SignDocumentsDescription = `Mail-merge every signer of a table into every template.

**When to use:** To produce one signed copy of each template per signer.

**How placement works:**
• PDF: markers such as <<firma>>, <<nombre>> and <<dni>> are covered and replaced by the signature image, the full name and the national ID. Without a signature marker the signature, name and ID are stamped at the bottom right of the last page.
• DOCX: the paragraph holding the signature marker receives the image; name and ID markers are replaced in place. Without markers a signature block is appended.
• A missing signature image is replaced by a rendering of the signer's name.

**Output:** Files are named {template}_{Full_Name}.{ext} in the output directory, together with an .xlsx report of every pair.

**Examples:**
• "Sign contrato.pdf and anexo.docx for everyone in firmantes.xlsx"
• "Sign all templates in plantillas/ with firmantes.csv into firmados/"

**Best practices:** Run validate_table first. One failing pair never stops the run; check the Failed count and the report.`

	RunHistoryDescription = `Show the most recent signing runs.

**When to use:** To audit what was signed, when, and where the report was written.

**Requirements:** The server must be started with a history database (--history). Each entry lists the run id, the start and finish times, the processed, failed and skipped counts, and the report path.`

	ServerInfoDescription = `Describe the server: configuration, marker literals and available tools.

**When to use:** First call in a session, to learn where relative paths resolve and which markers templates must use.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolValidateTable: ValidateTableDescription,
	ToolListTemplates: ListTemplatesDescription,
	ToolSignDocuments: SignDocumentsDescription,
	ToolRunHistory:    RunHistoryDescription,
	ToolServerInfo:    ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in alphabetical order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
