package textfilter

import (
	"bufio"
	"os"
	"strings"
	"unicode/utf8"
)

// StopWords is a case-insensitive substring blocklist
type StopWords struct {
	words []string
}

// NewStopWords builds a blocklist from words, blank entries are dropped
func NewStopWords(words []string) *StopWords {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, strings.ToLower(w))
	}
	return &StopWords{words: out}
}

// LoadStopWords reads a newline separated blocklist file
func LoadStopWords(path string) (*StopWords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		words = append(words, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewStopWords(words), nil
}

// Match reports the first stop word contained in text, case-insensitive
func (s *StopWords) Match(text string) (string, bool) {
	if s == nil || len(s.words) == 0 {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, w := range s.words {
		if strings.Contains(lower, w) {
			return w, true
		}
	}
	return "", false
}

// Len reports how many words are loaded
func (s *StopWords) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// EmojiFlood reports a short message drowned in emoji
// fires when the text is longer than 20 runes and carries at least 10 emoji
func EmojiFlood(text string) bool {
	if utf8.RuneCountInString(text) <= 20 {
		return false
	}
	count := 0
	for _, r := range text {
		if isEmoji(r) {
			count++
			if count >= 10 {
				return true
			}
		}
	}
	return false
}

// isEmoji covers the astral planes plus the misc-symbols and dingbat blocks
func isEmoji(r rune) bool {
	return r >= 0x10000 || (r >= 0x2600 && r <= 0x27BF)
}

// LookalikeWords returns Russian-looking words that smuggle foreign letters,
// the classic homoglyph trick for sneaking past word filters
// text is normalized before splitting
func LookalikeWords(text string) []string {
	return lookalikeInNormalized(Normalize(text))
}

// LookalikeWordsNormalized is LookalikeWords for already-normalized text
func LookalikeWordsNormalized(text string) []string {
	return lookalikeInNormalized(text)
}

func lookalikeInNormalized(text string) []string {
	var out []string
	for _, word := range strings.Fields(text) {
		if isRussianWord(word) && hasForeignRune(word) {
			out = append(out, word)
		}
	}
	return out
}

// isRussianWord wants at least 3 runes with lowercase Cyrillic in the majority
func isRussianWord(word string) bool {
	runes := []rune(word)
	if len(runes) < 3 {
		return false
	}
	cyr := 0
	for _, r := range runes {
		if isCyrillicLower(r) {
			cyr++
		}
	}
	return cyr >= len(runes)/2
}

func hasForeignRune(word string) bool {
	for _, r := range word {
		if !isCyrillicLower(r) && !allowedNonRussian(r) {
			return true
		}
	}
	return false
}

func isCyrillicLower(r rune) bool { return r >= 'а' && r <= 'я' }

// allowedNonRussian permits digits plus letters legitimate in Ukrainian,
// Serbian and transliterated text
func allowedNonRussian(r rune) bool {
	switch r {
	case 'i', 'і', 'ћ', 'є', 'љ', 'њ':
		return true
	}
	return r >= '0' && r <= '9'
}
