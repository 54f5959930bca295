package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

func TestRuleBasedClassify(t *testing.T) {
	rb := NewRuleBased(nil)

	cases := []struct {
		name       string
		text       string
		category   domain.Category
		confidence float64
	}{
		{"elevator breakdown", "101동 1502호 엘리베이터가 고장났어요", domain.CategoryMaintenance, 0.36},
		{"floor noise", "윗집 층간소음이 너무 시끄러운데요", domain.CategoryNoise, 0.8},
		{"parking", "주차장에 차량이 불법 주차되어 있어요", domain.CategoryParking, 0.75},
		{"billing", "관리비 문의드립니다", domain.CategoryBilling, 0.25},
		{"gas", "가스누출 같아요 긴급", domain.CategoryEmergency, 0.5},
		{"delivery", "택배 분실", domain.CategoryDelivery, 0.25},
		{"no match", "안녕하세요", domain.CategoryInquiry, DefaultConfidence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rb.Classify(tc.text)
			assert.Equal(t, tc.category, got.Category)
			assert.InDelta(t, tc.confidence, got.Confidence, 1e-9)
			assert.Equal(t, domain.ClassificationMethodRule, got.Method)
		})
	}
}

func TestRuleBasedTiesKeepFirstRule(t *testing.T) {
	rb := NewRuleBased([]Rule{
		{Keywords: []string{"물"}, Category: domain.CategoryUnitRepair, Weight: 1},
		{Keywords: []string{"물"}, Category: domain.CategoryHygiene, Weight: 1},
	})

	got := rb.Classify("물이 새요")

	assert.Equal(t, domain.CategoryUnitRepair, got.Category)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestRuleBasedClampsConfidence(t *testing.T) {
	rb := NewRuleBased([]Rule{{Keywords: []string{"불"}, Category: domain.CategoryEmergency, Weight: 3}})

	assert.Equal(t, 1.0, rb.Classify("불이야").Confidence)
	assert.Equal(t, 0.0, clamp(math.NaN()))
	assert.Equal(t, 0.0, clamp(-0.5))
}

func TestRuleBasedIsCaseInsensitive(t *testing.T) {
	rb := NewRuleBased([]Rule{{Keywords: []string{"CCTV"}, Category: domain.CategorySecurity, Weight: 1}})

	assert.Equal(t, domain.CategorySecurity, rb.Classify("cctv 확인 부탁").Category)
}
