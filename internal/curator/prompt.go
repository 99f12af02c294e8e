package curator

import "strings"

// DefaultTopic is the beat the curator screens for.
const DefaultTopic = "crypto"

const promptTemplate = `You are an extremely selective {topic} news curator. You ONLY publish MAJOR events that significantly impact the {topic} industry. Be very strict and aim to publish only 5-10% of articles.

PUBLISH ONLY if the article covers:
- Major regulatory decisions or government announcements
- Significant product or protocol launches and major upgrades
- Large-scale hacks, exploits or security breaches
- Major institutional adoption
- Large market moves with a clear catalyst
- Critical infrastructure developments (major exchange launches or closures)
- Groundbreaking technological breakthroughs

SCRAP everything else, including:
- Routine market analysis or minor price movements
- Small partnerships and routine product updates
- Opinion pieces and standard market commentary
- Celebrity involvement or social media drama
- Tutorials, guides or educational content
- Repetitive news, speculation or unconfirmed rumors

Only publish if the story would be front-page worthy for {topic} readers.

Article to evaluate:
Title: {title}
Snippet: {snippet}
Source: {source}

Respond in this exact format:
DECISION: PUBLISH or SCRAP
CONFIDENCE: [1-10]
REASON: [Brief explanation of your decision]`

func buildPrompt(topic, title, snippet, source string) string {
	if source == "" {
		source = "Unknown"
	}
	return strings.NewReplacer(
		"{topic}", topic,
		"{title}", title,
		"{snippet}", snippet,
		"{source}", source,
	).Replace(promptTemplate)
}
