package recommend

import (
	"regexp"
	"strings"
)

const maxSuggestions = 3

// Suggestion 是模型推荐的一首歌。
type Suggestion struct {
	Title  string
	Artist string
}

var listMarker = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)

// parseMoods 按逗号拆分模型回答，只保留词表内的情绪且不重复。
func parseMoods(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == '\n' || r == '、'
	})

	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		mood := strings.Trim(strings.TrimSpace(f), `"'.`)
		if _, ok := moodSet[mood]; !ok {
			continue
		}
		if _, dup := seen[mood]; dup {
			continue
		}
		seen[mood] = struct{}{}
		out = append(out, mood)
	}
	return out
}

// parseSuggestions 读取 "歌名 - 歌手" 格式的行，忽略其他内容。
func parseSuggestions(text string) []Suggestion {
	var out []Suggestion
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		title, artist, ok := strings.Cut(line, " - ")
		if !ok {
			continue
		}
		title = strings.Trim(strings.TrimSpace(title), `"*`)
		artist = strings.Trim(strings.TrimSpace(artist), `"*`)
		if title == "" || artist == "" {
			continue
		}
		out = append(out, Suggestion{Title: title, Artist: artist})
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
