package driven

// Prompt template names understood by the prompt store.
const (
	// PromptAnswer is the question-answering template. It receives the
	// assembled context and the question as fmt arguments, in that order.
	PromptAnswer = "answer"
)

// PromptStore loads prompt templates by name.
// Implementations may read user-editable files with embedded fallbacks.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}
