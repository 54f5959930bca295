package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ai-secretary/internal/domain"
)

func TestDetermine(t *testing.T) {
	cases := []struct {
		name    string
		channel domain.Channel
		content string
		want    domain.Priority
	}{
		{"broken elevator", domain.ChannelSMS, "101동 1502호 엘리베이터가 고장났어요", domain.PriorityHigh},
		{"gas smell on chat", domain.ChannelChat, "가스 냄새가 나요", domain.PriorityUrgent},
		{"urgent beats call", domain.ChannelCall, "응급 환자가 있어요", domain.PriorityUrgent},
		{"call is high", domain.ChannelCall, "관리비 문의드립니다", domain.PriorityHigh},
		{"noise keyword", domain.ChannelWeb, "밤마다 소음이 심해요", domain.PriorityHigh},
		{"plain inquiry", domain.ChannelEmail, "관리비 문의드립니다", domain.PriorityMedium},
		{"leak", domain.ChannelSMS, "천장 누수", domain.PriorityUrgent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Determine(tc.channel, tc.content))
		})
	}
}

func TestDetermineNeverReturnsLow(t *testing.T) {
	for _, ch := range []domain.Channel{domain.ChannelSMS, domain.ChannelEmail, domain.ChannelWeb, domain.ChannelCall, domain.ChannelChat} {
		assert.NotEqual(t, domain.PriorityLow, Determine(ch, ""))
	}
}
