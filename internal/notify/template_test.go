package notify

import (
	"testing"
	"time"

	"github.com/runwatch/runwatch/internal/alarm"
)

func sampleTransition() alarm.Transition {
	return alarm.Transition{
		From:  alarm.StateOK,
		To:    alarm.StateAlarm,
		Count: 3,
		At:    time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
	}
}

func TestRender_Basic(t *testing.T) {
	data := BuildTemplateData(map[string]any{"hostname": "vps-01"}, "runwatch", sampleTransition())

	result, err := Render(`{{alarm.state | lower}} on {{globals.hostname}}: {{alarm.count}} failures`, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "alarm on vps-01: 3 failures" {
		t.Errorf("result = %q, want %q", result, "alarm on vps-01: 3 failures")
	}
}

func TestRender_StateEmoji(t *testing.T) {
	tests := []struct {
		to    alarm.State
		emoji string
	}{
		{alarm.StateAlarm, "\U0001f534"},
		{alarm.StateOK, "\U0001f7e2"},
	}
	for _, tt := range tests {
		tr := sampleTransition()
		tr.To = tt.to
		data := BuildTemplateData(map[string]any{"hostname": "host"}, "runwatch", tr)
		result, err := Render(`{{alarm.state_emoji}}`, data)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.to, err)
		}
		if result != tt.emoji {
			t.Errorf("state=%s: emoji = %q, want %q", tt.to, result, tt.emoji)
		}
	}
}

func TestRender_RecoveryMessage(t *testing.T) {
	tr := alarm.Transition{From: alarm.StateAlarm, To: alarm.StateOK, Count: 0, At: time.Now()}
	data := BuildTemplateData(map[string]any{"hostname": "host"}, "runwatch", tr)

	result, err := Render(`{{alarm.name}} recovered from {{alarm.previous}}`, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "runwatch recovered from ALARM" {
		t.Errorf("result = %q, want %q", result, "runwatch recovered from ALARM")
	}
}

func TestRender_BadTemplate(t *testing.T) {
	data := BuildTemplateData(nil, "runwatch", sampleTransition())
	if _, err := Render(`{{unclosed`, data); err == nil {
		t.Fatal("expected parse error")
	}
}
