package summarizer

import "fmt"

const tierInstructions = `Format your response exactly like this:
SHORT: [80-100 character version]
MEDIUM: [150-200 character version]
LONG: [250-300 character version]`

func contentPrompt(topic, title, content string) string {
	return fmt.Sprintf(`You are a professional %[1]s news editor. Read the full article below and create THREE concise summaries optimized for different display contexts.

Article Title: %[2]s

Article Content:
%[3]s

Create THREE versions:
1. SHORT (80-100 characters) - For compact card displays, focus on the most newsworthy point
2. MEDIUM (150-200 characters) - For standard article previews, include key details
3. LONG (250-300 characters) - For featured/hero articles, comprehensive but concise

Guidelines for all versions:
- Extract the most important %[1]s information
- Use clear, accessible language
- Maintain factual accuracy
- Remove fluff, focus on substance

%[4]s`, topic, title, content, tierInstructions)
}

func snippetPrompt(topic, snippet string) string {
	return fmt.Sprintf(`You are a professional %[1]s news editor. Rewrite the following article snippet to be more engaging, clear, and informative for %[1]s readers.

Create THREE versions:
1. SHORT (80-100 characters) - For compact card displays
2. MEDIUM (150-200 characters) - For standard article previews
3. LONG (250-300 characters) - For featured/hero articles

Guidelines for all versions:
- Use clear, accessible language
- Maintain factual accuracy
- Remove any promotional language or excessive hype

Original snippet: %[2]s

%[3]s`, topic, snippet, tierInstructions)
}
