package llm

import (
	"context"
	"fmt"
	"strings"
)

// noiseRemovalPrompt instructs the model to strip leftover webpage chrome
// from scraped markdown while keeping the substantive content intact. The
// model answers inside <cleaned_content> tags so the caller can extract the
// result even when the reply carries commentary around it.
const noiseRemovalPrompt = `You are cleaning up a markdown-formatted version of a webpage. Remove leftover
website elements that are not part of the main content:

1. Navigation menu items
2. Footer text
3. Sidebar content unrelated to the main content
4. Social media links and sharing buttons
5. Advertisement text
6. Copyright notices and terms of service links
7. Search bar text

Be cautious: when unsure whether something is important, leave it in. Keep
all headings, article text, statistics, scores, player information, tables
and lists. Do not alter the content you keep — only remove noise.

Reply in this format:

<cleaned_content>
[the cleaned markdown]
</cleaned_content>

<removal_summary>
[a one-paragraph summary of what was removed]
</removal_summary>`

// RemoveWebpageNoise runs a one-shot cleaning pass over scraped markdown.
// When the reply lacks the expected tags, the raw markdown is returned
// unchanged — a sloppy model answer must never lose page content.
func RemoveWebpageNoise(ctx context.Context, p Provider, markdown string) (string, error) {
	reply, err := p.Complete(ctx, []Message{
		{Role: RoleSystem, Content: noiseRemovalPrompt},
		{Role: RoleUser, Content: "<markdown_content>\n" + markdown + "\n</markdown_content>"},
	})
	if err != nil {
		return "", fmt.Errorf("noise removal call failed: %w", err)
	}

	cleaned := extractTagged(reply.Content, "cleaned_content")
	if cleaned == "" {
		return markdown, nil
	}
	return cleaned, nil
}

// GenerateTopic produces a short (2-5 word) title for a conversation.
func GenerateTopic(ctx context.Context, p Provider, conversationText string) (string, error) {
	prompt := fmt.Sprintf("Given the following conversation, generate a short (2-5 words) topic that captures its main theme:\n\n%s\n\nTopic:", conversationText)
	reply, err := p.Complete(ctx, []Message{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("topic call failed: %w", err)
	}
	return strings.TrimSpace(reply.Content), nil
}

// extractTagged returns the trimmed text between <tag> and </tag>, or ""
// when either tag is missing.
func extractTagged(s, tag string) string {
	open, closing := "<"+tag+">", "</"+tag+">"
	i := strings.Index(s, open)
	if i < 0 {
		return ""
	}
	j := strings.Index(s[i+len(open):], closing)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(s[i+len(open) : i+len(open)+j])
}
