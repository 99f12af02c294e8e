// Package news defines the data model shared by every pipeline stage
// (feed sources, raw and enriched articles, verdicts, summaries) and the
// collaborator interfaces the stages depend on.
package news
