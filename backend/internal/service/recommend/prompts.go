package recommend

import (
	"fmt"
	"strings"
)

// moodUnavailable 是日记内容无法分析时模型返回的固定语句。
const moodUnavailable = "감정 키워드를 추출할 수 없습니다"

// MoodVocabulary 是情绪提取允许返回的情绪词表。
var MoodVocabulary = []string{
	"기쁨", "슬픔", "분노", "불안", "사랑", "두려움", "외로움", "설렘", "짜증", "행복",
	"후회", "자신감", "좌절", "공포", "흥분", "우울", "희망", "질투", "원망", "감동",
	"미움", "초조", "만족", "실망", "그리움", "죄책감", "충격", "안도", "긴장", "감사",
}

var moodSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(MoodVocabulary))
	for _, m := range MoodVocabulary {
		set[m] = struct{}{}
	}
	return set
}()

func quoted(words []string) string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = `"` + w + `"`
	}
	return strings.Join(out, ", ")
}

func moodPrompt(content string) string {
	return fmt.Sprintf(`다음은 사용자가 작성한 일기입니다.

[일기]
%s

위 일기의 감정을 정확히 네 가지 고르고, 감정 외에는 절대 출력하지 마세요.
반드시 아래 감정 목록에 있는 감정만 선택하세요.
감정은 쉼표로 구분해 한 줄로 출력하세요.

[감정 목록]
%s

출력 예시:
기쁨, 설렘, 희망, 감사

만약 일기의 내용이 비정상적이라면 "%s."를 출력하세요.`, content, quoted(MoodVocabulary), moodUnavailable)
}

func musicPrompt(moods, genres []string) string {
	genreLine := "특별히 선호하는 장르는 없습니다."
	if len(genres) > 0 {
		genreLine = fmt.Sprintf("사용자가 선호하는 음악 장르는 %s입니다.", strings.Join(genres, ", "))
	}
	return fmt.Sprintf(`사용자의 감정은 다음과 같습니다: %s
%s

사용자의 감정과 선호 장르에 어울리는 음악을 %d곡 추천해주세요.
각 음악의 제목과 가수만 다음 형식으로 한 줄에 하나씩 출력해주세요:
<제목> - <가수 이름>

예시:
Spring Day - BTS
Bad Guy - Billie Eilish
좋은 날 - 아이유

설명 문구는 절대 포함하지 말고 실제 음악 제목과 가수 이름만 출력해주세요.`, strings.Join(moods, ", "), genreLine, maxSuggestions)
}
