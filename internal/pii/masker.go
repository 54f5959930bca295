// Package pii redacts personal information (phone numbers, emails, Korean
// names and street addresses) from resident messages.
package pii

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const (
	// AddressPlaceholder replaces a detected street address.
	AddressPlaceholder = "[주소]"
	// RedactedPlaceholder is returned in fail-closed mode when masking breaks.
	RedactedPlaceholder = "[비공개]"
)

var (
	phonePattern   = regexp.MustCompile(`\d{3}[-. ]?\d{3,4}[-. ]?\d{4}`)
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	honorificName  = regexp.MustCompile(`(^|[^가-힣])([가-힣]{2,4})( ?)(님|씨)`)
	labeledName    = regexp.MustCompile(`(이름|성명|작성자|신고자|보낸사람)(\s*[:：]\s*|\s+)([가-힣]{2,4})([^가-힣]|$)`)
	bareName       = regexp.MustCompile(`^([가-힣]{2,4}?)( ?(?:님|씨))?$`)
	addressPattern = regexp.MustCompile(`(서울|부산|대구|인천|광주|대전|울산|세종|경기|강원|충북|충남|전북|전남|경북|경남|제주)[가-힣]*\s*[가-힣]+(?:시|군|구)\s*[가-힣0-9]+(?:동|로|길|읍|면|리)\s*\d+(?:-\d+)?`)
)

type rule struct {
	name  string
	apply func(string) string
}

// Masker applies the masking rules in a fixed order: phone, email, name, address.
type Masker struct {
	logger     *zap.Logger
	failClosed bool
	rules      []rule
}

// Option configures a Masker.
type Option func(*Masker)

// WithFailClosed makes a masking failure return RedactedPlaceholder instead of the input.
func WithFailClosed(enabled bool) Option {
	return func(m *Masker) {
		m.failClosed = enabled
	}
}

// NewMasker builds a masker. A nil logger disables failure logging.
func NewMasker(logger *zap.Logger, opts ...Option) *Masker {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Masker{logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	m.rules = []rule{
		{name: "phone", apply: maskPhones},
		{name: "email", apply: maskEmails},
		{name: "name", apply: maskNames},
		{name: "address", apply: maskAddresses},
	}
	return m
}

// Mask redacts every supported PII pattern in text.
func (m *Masker) Mask(text string) string {
	return m.guard("content", text, func(s string) string {
		for _, r := range m.rules {
			s = r.apply(s)
		}
		return s
	})
}

// MaskSender redacts a sender identifier, which is usually a phone number,
// an email address or a bare name.
func (m *Masker) MaskSender(identifier string) string {
	return m.guard("sender", identifier, func(s string) string {
		trimmed := strings.TrimSpace(s)
		switch {
		case containsPhone(trimmed):
			return maskPhones(s)
		case emailPattern.MatchString(trimmed):
			return maskEmails(s)
		}
		if groups := bareName.FindStringSubmatch(trimmed); groups != nil {
			return maskName(groups[1]) + groups[2]
		}
		for _, r := range m.rules {
			s = r.apply(s)
		}
		return s
	})
}

// ValidateMasking re-runs detection over masked output and reports whether it is clean.
func (m *Masker) ValidateMasking(original, masked string) bool {
	if containsPhone(masked) || emailPattern.MatchString(masked) || addressPattern.MatchString(masked) {
		m.logger.Warn("pii detected in masked content", zap.String("original_prefix", prefix(original, 50)))
		return false
	}
	return true
}

func (m *Masker) guard(op, input string, fn func(string) string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("pii masking failed",
				zap.String("op", op),
				zap.Any("panic", r),
				zap.Bool("fail_closed", m.failClosed))
			if m.failClosed {
				out = RedactedPlaceholder
				return
			}
			out = input
		}
	}()
	return fn(input)
}

func maskPhones(s string) string {
	locs := phonePattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		if !digitBoundary(s, loc[0], loc[1]) {
			continue
		}
		match := s[loc[0]:loc[1]]
		b.WriteString(s[last:loc[0]])
		b.WriteString(match[:3] + "-****-" + match[len(match)-4:])
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func containsPhone(s string) bool {
	for _, loc := range phonePattern.FindAllStringIndex(s, -1) {
		if digitBoundary(s, loc[0], loc[1]) {
			return true
		}
	}
	return false
}

// digitBoundary rejects matches that are a slice of a longer digit run.
func digitBoundary(s string, start, end int) bool {
	if start > 0 && isDigit(s[start-1]) {
		return false
	}
	if end < len(s) && isDigit(s[end]) {
		return false
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func maskEmails(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, func(match string) string {
		at := strings.LastIndex(match, "@")
		local, domain := match[:at], match[at+1:]
		if len(local) > 2 {
			local = local[:2]
		}
		return local + "***@" + domain
	})
}

func maskNames(s string) string {
	s = replaceSubmatch(honorificName, s, func(g []string) string {
		return g[1] + maskName(g[2]) + g[3] + g[4]
	})
	return replaceSubmatch(labeledName, s, func(g []string) string {
		return g[1] + g[2] + maskName(g[3]) + g[4]
	})
}

// maskName keeps the first (and for 3+ syllables the last) character.
func maskName(name string) string {
	r := []rune(name)
	switch {
	case len(r) < 2:
		return name
	case len(r) == 2:
		return string(r[0]) + "*"
	case len(r) == 3:
		return string(r[0]) + "*" + string(r[2])
	default:
		return string(r[0]) + "**" + string(r[len(r)-1])
	}
}

func maskAddresses(s string) string {
	return addressPattern.ReplaceAllString(s, AddressPlaceholder)
}

func replaceSubmatch(re *regexp.Regexp, s string, fn func(groups []string) string) string {
	all := re.FindAllStringSubmatchIndex(s, -1)
	if len(all) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range all {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
