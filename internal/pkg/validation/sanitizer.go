package validation

import (
	"regexp"
	"strings"

	"github.com/sodersten/tipsvalue/internal/pkg/models"
)

// Sanitizer normalizes externally sourced strings in place so records
// from different feeds attach to the right match.
type Sanitizer struct{}

// NewSanitizer creates a new sanitizer
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// SanitizeMatch sanitizes match data
func (s *Sanitizer) SanitizeMatch(match *models.Match) {
	if match == nil {
		return
	}

	match.HomeTeam = s.sanitizeTeamName(match.HomeTeam)
	match.AwayTeam = s.sanitizeTeamName(match.AwayTeam)
	match.Result = strings.ToUpper(strings.TrimSpace(match.Result))
}

// SanitizeQuote sanitizes a bookmaker quote
func (s *Sanitizer) SanitizeQuote(quote *models.OddsQuote) {
	if quote == nil {
		return
	}

	quote.Bookmaker = s.sanitizeBookmaker(quote.Bookmaker)
}

// SanitizePick sanitizes an expert pick
func (s *Sanitizer) SanitizePick(pick *models.ExpertPick) {
	if pick == nil {
		return
	}

	pick.Source = s.sanitizeString(pick.Source)
	pick.Expert = s.sanitizeString(pick.Expert)
	pick.Signs = strings.ToUpper(strings.TrimSpace(pick.Signs))
	pick.Rationale = s.sanitizeString(pick.Rationale)
}

// clubTokens are stripped from the ends of team names when building
// matching keys. Covers the usual Swedish and international club markers.
var clubTokens = map[string]bool{
	"fc":  true,
	"afc": true,
	"if":  true,
	"ifk": true,
	"fk":  true,
	"bk":  true,
	"sk":  true,
	"aif": true,
	"ff":  true,
	"gif": true,
	"utd": true,
}

// TeamKey returns a normalized matching key for a team name so
// "Malmö FF" and "malmo ff" (and "IFK Göteborg" vs "Göteborg") compare equal.
func (s *Sanitizer) TeamKey(name string) string {
	key := strings.ToLower(s.sanitizeTeamName(name))
	key = strings.ReplaceAll(key, ".", "")
	key = strings.ReplaceAll(key, "-", " ")

	words := strings.Fields(key)
	for len(words) > 1 && clubTokens[words[0]] {
		words = words[1:]
	}
	for len(words) > 1 && clubTokens[words[len(words)-1]] {
		words = words[:len(words)-1]
	}

	return strings.Join(words, " ")
}

// Helper methods for sanitization

var (
	controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

func (s *Sanitizer) sanitizeString(str string) string {
	sanitized := strings.TrimSpace(str)
	sanitized = controlChars.ReplaceAllString(sanitized, "")

	if len(sanitized) > 200 {
		sanitized = sanitized[:200]
	}

	return sanitized
}

func (s *Sanitizer) sanitizeTeamName(name string) string {
	sanitized := strings.TrimSpace(name)
	sanitized = controlChars.ReplaceAllString(sanitized, "")
	sanitized = multiSpace.ReplaceAllString(sanitized, " ")

	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}

	return sanitized
}

func (s *Sanitizer) sanitizeBookmaker(bookmaker string) string {
	sanitized := strings.TrimSpace(bookmaker)

	// Map common variations to standard names
	bookmakerMap := map[string]string{
		"bet365":       "Bet365",
		"unibet":       "Unibet",
		"betsson":      "Betsson",
		"svenska spel": "SvenskaSpel",
		"svenskaspel":  "SvenskaSpel",
	}

	if standard, exists := bookmakerMap[strings.ToLower(sanitized)]; exists {
		return standard
	}

	words := strings.Fields(sanitized)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
