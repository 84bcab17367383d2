package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// Message authors shown by the UI.
	AuthorChatbot = "Chatbot"
	AuthorUser    = "You"
	AuthorError   = "Error"

	DefaultSystemMessage = "You are a helpful assistant."

	// Marker the grounded prompt instructs the model to emit. Attribution
	// parses everything after the last occurrence of this marker.
	SourcesMarker = "SOURCES:"

	SourcesPrefix   = "Sources: "
	NoSourcesNotice = "No sources found"
	AuthModeAPIKey  = "api_key"
	AuthModeBearer  = "bearer_token"

	// GroundedSystemTemplate is the system part of the RAG prompt. The
	// retrieved chunk texts are appended below the divider, each preceded
	// by its source tag.
	GroundedSystemTemplate = `Use the following pieces of context to answer the users question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
ALWAYS return a "SOURCES" part in your answer.
The "SOURCES" part should be a reference to the source of the document from which you got your answer.

Example of your response should be:

` + "```" + `
The answer is foo
SOURCES: xyz
` + "```" + `

Begin!
----------------
`
)
