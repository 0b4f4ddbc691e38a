package gemini

// promptData represents the data passed to the prompt templates.
type promptData struct {
	Title   string
	Content string
}

const enhancePromptTemplate = `You are an expert editor. Rewrite the note below with improved clarity,
grammar and structure. Preserve the author's meaning, tone and factual
content. Do not add new information. Respond with the rewritten note text
only, without commentary or formatting fences.

Title: {{.Title}}

Note:
{{.Content}}`

const summaryPromptTemplate = `You are an expert editor. Write a concise summary of the note below in at
most three sentences. Respond with the summary text only, without
commentary or formatting fences.

Title: {{.Title}}

Note:
{{.Content}}`
