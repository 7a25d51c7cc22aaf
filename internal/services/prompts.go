package services

import (
	"fmt"
	"strings"

	"unstructured-rag/internal/models"
)

// systemPrompt keeps the generator grounded in the supplied context.
const systemPrompt = `You are a helpful AI assistant that answers questions based on the provided context.
Your goal is to give accurate, helpful, and concise answers based ONLY on the context provided.
Do not make up information or use general knowledge beyond what is in the context.
If the context does not contain enough information to answer fully, say so clearly.`

// ragPromptTemplate is the user-message template for grounded answers.
const ragPromptTemplate = `CONTEXT:
%s

USER QUERY:
%s

Answer the query based only on the information in the context above.`

// buildContext renders retrieved chunks as numbered, source-labelled
// blocks so the generator can cite which document it used.
func buildContext(results []models.SearchResult) string {
	parts := make([]string, 0, len(results))
	for i, result := range results {
		parts = append(parts, fmt.Sprintf("[Document %d] %s:\n%s", i+1, result.DocumentName, result.Text))
	}
	return strings.Join(parts, "\n\n")
}

// buildRAGPrompt constructs the user message for the generative backend.
func buildRAGPrompt(query, context string) string {
	return fmt.Sprintf(ragPromptTemplate, context, query)
}
