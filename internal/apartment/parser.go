// Package apartment extracts Korean apartment unit references (동/호/층) from free text.
package apartment

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// MinConfidence is the lowest candidate confidence attached to a message.
const MinConfidence = 0.6

const noLocation = "위치 정보 없음"

var (
	dongHoPattern  = regexp.MustCompile(`(\d{1,3})동\s*(\d{1,4})호`)
	dashPattern    = regexp.MustCompile(`(\d{1,3})-(\d{1,4})`)
	floorHoPattern = regexp.MustCompile(`(\d{1,2})층\s*(\d{1,4})호`)
	contextPattern = regexp.MustCompile(`(?:우리집|저희집|우리|저희|여기|이곳).*?(\d{3,4})`)
)

// Unit is a single location candidate. Zero fields were not found.
type Unit struct {
	Dong       int     `json:"dong,omitempty"`
	Ho         int     `json:"ho,omitempty"`
	Floor      int     `json:"floor,omitempty"`
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
}

// ParsedLocation is the parser output. Units are sorted by confidence, highest first.
type ParsedLocation struct {
	Units       []Unit   `json:"units"`
	HasLocation bool     `json:"has_location"`
	RawMatches  []string `json:"raw_matches"`
}

type matcher func(text string) ([]Unit, []string)

// Parser runs every matcher over normalized text and merges the candidates.
type Parser struct {
	logger   *zap.Logger
	matchers []matcher
}

// NewParser builds a parser with the standard matchers.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		logger:   logger,
		matchers: []matcher{matchDongHo, matchDash, matchFloorHo, matchContext},
	}
}

// Parse never fails; malformed input or an internal error yields an empty result.
func (p *Parser) Parse(text string) (result ParsedLocation) {
	result = emptyLocation()
	if strings.TrimSpace(text) == "" {
		return result
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("apartment parse failed", zap.Any("panic", r))
			result = emptyLocation()
		}
	}()

	normalized := Normalize(text)
	var units []Unit
	var raw []string
	for _, m := range p.matchers {
		u, r := m(normalized)
		units = append(units, u...)
		raw = append(raw, r...)
	}

	units = dedupe(units)
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Confidence > units[j].Confidence
	})

	result = ParsedLocation{
		Units:       units,
		HasLocation: len(units) > 0,
		RawMatches:  uniqueStrings(raw),
	}
	p.logger.Debug("apartment units parsed", zap.Int("units", len(units)))
	return result
}

// Normalize collapses whitespace and converts full-width characters to half-width.
func Normalize(text string) string {
	return width.Narrow.String(strings.Join(strings.Fields(text), " "))
}

// ValidateUnit applies Korean apartment numbering sanity rules.
func ValidateUnit(u Unit) bool {
	if u.Dong != 0 && (u.Dong < 1 || u.Dong > 999) {
		return false
	}
	if u.Ho != 0 && (u.Ho < 1 || u.Ho > 9999) {
		return false
	}
	if u.Floor != 0 && (u.Floor < 1 || u.Floor > 99) {
		return false
	}
	if u.Ho != 0 && u.Floor != 0 {
		if expected := u.Ho / 100; expected > 0 && expected != u.Floor {
			return false
		}
	}
	return true
}

// FormatUnit renders "{dong}동 {ho}호", falling back to the floor or the raw text.
func FormatUnit(u Unit) string {
	var parts []string
	if u.Dong > 0 {
		parts = append(parts, fmt.Sprintf("%d동", u.Dong))
	}
	if u.Ho > 0 {
		parts = append(parts, fmt.Sprintf("%d호", u.Ho))
	} else if u.Floor > 0 {
		parts = append(parts, fmt.Sprintf("%d층", u.Floor))
	}
	if len(parts) == 0 {
		return u.RawText
	}
	return strings.Join(parts, " ")
}

// Summary describes the best candidate for display.
func Summary(parsed ParsedLocation) string {
	if !parsed.HasLocation || len(parsed.Units) == 0 {
		return noLocation
	}
	return FormatUnit(parsed.Units[0])
}

// Best converts the highest-confidence candidate into message unit info.
// It returns nil when that candidate is below MinConfidence or fails validation.
func Best(parsed ParsedLocation) *domain.ApartmentUnitInfo {
	if len(parsed.Units) == 0 {
		return nil
	}
	u := parsed.Units[0]
	if u.Confidence < MinConfidence || !ValidateUnit(u) {
		return nil
	}
	return &domain.ApartmentUnitInfo{
		Dong:       u.Dong,
		Ho:         u.Ho,
		Floor:      u.Floor,
		Formatted:  FormatUnit(u),
		Confidence: u.Confidence,
		RawMatches: append([]string(nil), parsed.RawMatches...),
	}
}

func matchDongHo(text string) ([]Unit, []string) {
	var units []Unit
	var raw []string
	for _, m := range dongHoPattern.FindAllStringSubmatch(text, -1) {
		dong, ho := atoi(m[1]), atoi(m[2])
		units = append(units, Unit{Dong: dong, Ho: ho, Floor: ho / 100, RawText: m[0], Confidence: 0.95})
		raw = append(raw, m[0])
	}
	return units, raw
}

// matchDash handles "101-1502". Runs that continue with more digits or dashes
// (phone numbers, account numbers) are skipped.
func matchDash(text string) ([]Unit, []string) {
	var units []Unit
	var raw []string
	for _, loc := range dashPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > 0 && isDigitOrDash(text[loc[0]-1]) {
			continue
		}
		if loc[1] < len(text) && isDigitOrDash(text[loc[1]]) {
			continue
		}
		dong, ho := atoi(text[loc[2]:loc[3]]), atoi(text[loc[4]:loc[5]])
		if dong < 1 || dong > 999 || ho < 1 || ho > 9999 {
			continue
		}
		match := text[loc[0]:loc[1]]
		units = append(units, Unit{Dong: dong, Ho: ho, Floor: ho / 100, RawText: match, Confidence: 0.8})
		raw = append(raw, match)
	}
	return units, raw
}

func matchFloorHo(text string) ([]Unit, []string) {
	var units []Unit
	var raw []string
	for _, m := range floorHoPattern.FindAllStringSubmatch(text, -1) {
		units = append(units, Unit{Floor: atoi(m[1]), Ho: atoi(m[2]), RawText: m[0], Confidence: 0.85})
		raw = append(raw, m[0])
	}
	return units, raw
}

func matchContext(text string) ([]Unit, []string) {
	var units []Unit
	var raw []string
	for _, m := range contextPattern.FindAllStringSubmatch(text, -1) {
		n := atoi(m[1])
		if n < 100 || n > 9999 {
			continue
		}
		units = append(units, Unit{Ho: n, Floor: n / 100, RawText: m[0], Confidence: 0.6})
		raw = append(raw, m[1])
	}
	return units, raw
}

func dedupe(units []Unit) []Unit {
	type key struct{ dong, ho, floor int }
	seen := make(map[key]struct{}, len(units))
	out := make([]Unit, 0, len(units))
	for _, u := range units {
		k := key{u.Dong, u.Ho, u.Floor}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, u)
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func emptyLocation() ParsedLocation {
	return ParsedLocation{Units: []Unit{}, RawMatches: []string{}}
}

func isDigitOrDash(b byte) bool {
	return b == '-' || (b >= '0' && b <= '9')
}

// atoi is only fed regexp digit captures.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
