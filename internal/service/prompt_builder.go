package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/StyleAiLabs/lm-studio-api/internal/dto"
	"github.com/StyleAiLabs/lm-studio-api/internal/models"
)

// TruncateContexts bounds the combined size of retrieved contexts before
// prompt construction. Contexts are accepted in the order given while the
// running total stays within maxTotalChars; once a context would push the
// total over budget, it and everything after it are dropped. Accepted
// contexts are never cut -- except when the very first context alone
// exceeds the budget, in which case its hard-truncated prefix is returned
// on its own.
func TruncateContexts(contexts []string, maxTotalChars int) []string {
	out := make([]string, 0, len(contexts))
	total := 0
	for i, context := range contexts {
		if total+len(context) > maxTotalChars {
			if i == 0 {
				out = append(out, truncateString(context, maxTotalChars))
			}
			break
		}
		out = append(out, context)
		total += len(context)
	}
	return out
}

// truncateString cuts s to at most max bytes without splitting a rune.
func truncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// systemInstructions are concise, token-efficient safeguards prepended to
// every prompt.
func systemInstructions(personaKey string) string {
	base := "Provide only the final answer in a concise, conversational professional tone. " +
		"Do NOT output internal reasoning, chain-of-thought, analysis steps, or tags like <think>. " +
		"If required data is absent, explicitly say it's not available and suggest a validated next step."
	if personaKey == "safety_officer" {
		return base +
			" Prioritize accuracy, regulatory clarity, and safe practice. " +
			"Do not fabricate figures or regulations; state uncertainty plainly."
	}
	return base
}

// BuildKnowledgePrompt assembles a grounded completion prompt from retrieved
// contexts, applying the context budget first.
func BuildKnowledgePrompt(contexts []string, question, personaKey string, maxContextChars int) string {
	persona := models.GetPersona(personaKey)

	truncated := TruncateContexts(contexts, maxContextChars)
	context := strings.Join(truncated, "\n\n")
	if len(truncated) < len(contexts) || (len(truncated) == 1 && len(truncated[0]) < len(contexts[0])) {
		context += "\n...[truncated]"
	}

	// First three traits only, to save tokens.
	traits := persona.Traits
	if len(traits) > 3 {
		traits = traits[:3]
	}

	return fmt.Sprintf(
		"You are %s, a %s.\n"+
			"PERSONA TRAITS: %s\n"+
			"SYSTEM INSTRUCTIONS: %s\n\n"+
			"Answer ONLY using the COMPANY INFORMATION. If the specific answer is not present, say so.\n\n"+
			"COMPANY INFORMATION:\n%s\n\n"+
			"QUESTION: %s\n\n"+
			"FINAL ANSWER:",
		persona.Name, persona.Style,
		strings.Join(traits, " "),
		systemInstructions(personaKey),
		context,
		question,
	)
}

// BuildChatMessages prepends the persona system message to a chat history.
func BuildChatMessages(messages []dto.ChatMessage, personaKey string) []dto.ChatMessage {
	persona := models.GetPersona(personaKey)
	system := dto.ChatMessage{
		Role: "system",
		Content: fmt.Sprintf("You are %s, a %s. %s",
			persona.Name, persona.Style, systemInstructions(personaKey)),
	}
	return append([]dto.ChatMessage{system}, messages...)
}

// BuildKnowledgeChatMessages prepends a grounded system message carrying the
// retrieved contexts (budget applied) to a chat history.
func BuildKnowledgeChatMessages(contexts []string, messages []dto.ChatMessage, personaKey string, maxContextChars int) []dto.ChatMessage {
	persona := models.GetPersona(personaKey)
	context := strings.Join(TruncateContexts(contexts, maxContextChars), "\n\n")

	system := dto.ChatMessage{
		Role: "system",
		Content: fmt.Sprintf(
			"You are %s, a %s. %s\n\n"+
				"Answer ONLY using the COMPANY INFORMATION below. If the specific answer is not present, say so.\n\n"+
				"COMPANY INFORMATION:\n%s",
			persona.Name, persona.Style, systemInstructions(personaKey), context),
	}
	return append([]dto.ChatMessage{system}, messages...)
}
