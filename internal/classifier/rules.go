// Package classifier assigns resident messages to a category, first with a
// keyword rule table and, when that is unsure, with an optional LLM fallback.
package classifier

import (
	"math"
	"strings"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

// DefaultConfidence is returned when no rule matches.
const DefaultConfidence = 0.3

// Result is a classification decision.
type Result struct {
	Category   domain.Category             `json:"category"`
	Confidence float64                     `json:"confidence"`
	Method     domain.ClassificationMethod `json:"method"`
	Reasoning  string                      `json:"reasoning,omitempty"`
}

// Rule scores a category by the share of its keywords found in the text.
type Rule struct {
	Keywords []string
	Category domain.Category
	Weight   float64
}

// DefaultRules is evaluated in order; on equal scores the earlier rule wins.
var DefaultRules = []Rule{
	{Keywords: []string{"소음", "시끄러운", "층간소음", "윗집", "아래집"}, Category: domain.CategoryNoise, Weight: 1.0},
	{Keywords: []string{"주차", "차량", "주차장", "주차위반"}, Category: domain.CategoryParking, Weight: 1.0},
	{Keywords: []string{"수리", "고장", "망가진", "작동안함", "엘리베이터"}, Category: domain.CategoryMaintenance, Weight: 0.9},
	{Keywords: []string{"관리비", "요금", "청구서", "납부"}, Category: domain.CategoryBilling, Weight: 1.0},
	{Keywords: []string{"보안", "출입", "도어락", "키", "분실"}, Category: domain.CategorySecurity, Weight: 0.8},
	{Keywords: []string{"응급", "긴급", "위험", "화재", "가스누출", "가스"}, Category: domain.CategoryEmergency, Weight: 1.0},
	{Keywords: []string{"엘리베이터", "승강기", "공용", "복도", "계단", "놀이터", "헬스장"}, Category: domain.CategoryCommonFacility, Weight: 0.8},
	{Keywords: []string{"출입카드", "공동현관", "비밀번호", "출입증", "차단기"}, Category: domain.CategoryAccessControl, Weight: 0.9},
	{Keywords: []string{"조경", "나무", "잔디", "화단", "가지치기"}, Category: domain.CategoryLandscaping, Weight: 0.9},
	{Keywords: []string{"전등", "조명", "가로등", "형광등", "정전"}, Category: domain.CategoryLighting, Weight: 0.9},
	{Keywords: []string{"쓰레기", "악취", "분리수거", "벌레", "청소"}, Category: domain.CategoryHygiene, Weight: 0.9},
	{Keywords: []string{"담배", "흡연", "담배연기", "꽁초"}, Category: domain.CategorySmoking, Weight: 1.0},
	{Keywords: []string{"이웃", "다툼", "분쟁", "갈등", "싸움"}, Category: domain.CategoryResidentDispute, Weight: 0.9},
	{Keywords: []string{"직원", "경비원", "불친절", "태도", "응대"}, Category: domain.CategoryStaffService, Weight: 0.8},
	{Keywords: []string{"세대", "누수", "보일러", "배관", "곰팡이"}, Category: domain.CategoryUnitRepair, Weight: 0.8},
	{Keywords: []string{"서류", "증명서", "전입", "등록", "신청서"}, Category: domain.CategoryAdministration, Weight: 0.8},
	{Keywords: []string{"처리", "진행", "언제", "결과", "접수한"}, Category: domain.CategoryStatusInquiry, Weight: 0.7},
	{Keywords: []string{"택배", "배송", "배달", "소포"}, Category: domain.CategoryDelivery, Weight: 1.0},
	{Keywords: []string{"안전", "미끄러", "추락", "파손", "위험물"}, Category: domain.CategorySafety, Weight: 0.9},
	{Keywords: []string{"일정", "예약", "공사", "점검", "소독"}, Category: domain.CategorySchedule, Weight: 0.8},
	{Keywords: []string{"민원", "불만", "항의", "불편"}, Category: domain.CategoryComplaint, Weight: 0.8},
}

// RuleBased is a deterministic keyword classifier.
type RuleBased struct {
	rules []Rule
}

// NewRuleBased uses DefaultRules when rules is empty.
func NewRuleBased(rules []Rule) *RuleBased {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &RuleBased{rules: rules}
}

// Classify returns the best scoring rule, or inquiry at DefaultConfidence.
func (r *RuleBased) Classify(text string) Result {
	lower := strings.ToLower(text)

	var (
		best      domain.Category
		bestScore float64
		matched   bool
	)
	for _, rule := range r.rules {
		if len(rule.Keywords) == 0 {
			continue
		}
		hits := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		score := float64(hits) / float64(len(rule.Keywords)) * rule.Weight
		if !matched || score > bestScore {
			best, bestScore, matched = rule.Category, score, true
		}
	}

	if !matched {
		return Result{Category: domain.CategoryInquiry, Confidence: DefaultConfidence, Method: domain.ClassificationMethodRule}
	}
	return Result{Category: best, Confidence: clamp(bestScore), Method: domain.ClassificationMethodRule}
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
