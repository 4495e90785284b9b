package models

const (
	ContextSeparator = "\n---\n"

	// Upper bound for error messages persisted on a failed material row.
	MaxErrorMessageLength = 500
)

var (
	OCRPromptTemplate = `Extract all readable text from this image. Preserve the reading order and line breaks. Answer only with the extracted text and nothing else. If the image contains no readable text, answer with an empty response.`
)
