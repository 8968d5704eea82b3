package recommend

import (
	"fmt"
	"strings"

	"github.com/jinford/llmovies/internal/core/catalog"
)

// extractionSystemPrompt は検索条件抽出用のシステムプロンプトを組み立てる。
// モデルにはJSONオブジェクト1つだけを返させ、映画・TV以外の話題には
// 会話として丁重に断らせる（その応答は原文のままユーザーへ返る）。
func extractionSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("Extract media details from the user's request and return them as a single JSON object ")
	sb.WriteString("with the keys \"semantic_search\", \"media\", and \"genre\".\n\n")

	sb.WriteString("\"semantic_search\" is the topic to be used for semantic search. ")
	sb.WriteString("It must not include genre or media type words.\n\n")

	sb.WriteString("\"media\" MUST be one of: Movie, TV Show, ALL.\n\n")

	sb.WriteString("\"genre\" MUST be any combination of the following categories: ")
	sb.WriteString(strings.Join(catalog.Genres(), ", "))
	sb.WriteString(". If no genre is provided, return ALL.\n\n")

	sb.WriteString("You MUST only respond with a JSON object and say nothing else. ")
	sb.WriteString("Your response will be used to filter search results.\n\n")

	sb.WriteString("If the user asks you anything different than movies or TV shows, ")
	sb.WriteString("respectfully stop the conversation.")

	return sb.String()
}

// rankingSystemPrompt は最終ランキング用のシステムプロンプトを組み立てる。
// 返答はカンマ区切りのidリストのみ。
func rankingSystemPrompt(maxSelections int) string {
	var sb strings.Builder

	sb.WriteString("You are an expert movie recommender system. ")
	fmt.Fprintf(&sb, "Your task is to return at most %d movies from the list of passed movies. ", maxSelections)
	sb.WriteString("Return only the most affine to the user's prompt.\n\n")

	sb.WriteString("You will only respond with a list of the sorted ids separated by commas, ")
	sb.WriteString("and nothing else. You must not add anything else to your answer.")

	return sb.String()
}
