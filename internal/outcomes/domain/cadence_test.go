package domain

import (
	"testing"
	"time"
)

func TestGenerateFollowUpsNoShowOffsets(t *testing.T) {
	p := DefaultPolicy()
	trigger := time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)

	drafts := GenerateFollowUps(p, TriggerNoShow, trigger)
	if len(drafts) != 3 {
		t.Fatalf("expected 3 touches, got %d", len(drafts))
	}

	wantOffsets := []int{0, 5, 12}
	for i, draft := range drafts {
		if draft.TouchNumber != i+1 {
			t.Errorf("touch %d has TouchNumber=%d, want %d", i, draft.TouchNumber, i+1)
		}
		want := trigger.AddDate(0, 0, wantOffsets[i])
		if !draft.ScheduledDate.Equal(want) {
			t.Errorf("touch %d scheduled at %v, want %v", i+1, draft.ScheduledDate, want)
		}
		if draft.Status != FollowUpPending {
			t.Errorf("touch %d status = %q, want Pending", i+1, draft.Status)
		}
		if draft.TriggerType != TriggerNoShow {
			t.Errorf("touch %d trigger = %q, want no_show", i+1, draft.TriggerType)
		}
	}
}

func TestGenerateFollowUpsDeclinedOffsetsDifferFromNoShow(t *testing.T) {
	p := DefaultPolicy()
	trigger := time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)

	declined := GenerateFollowUps(p, TriggerDeclined, trigger)
	if len(declined) != 3 {
		t.Fatalf("expected 3 touches, got %d", len(declined))
	}

	wantOffsets := []int{0, 6, 13}
	for i, draft := range declined {
		want := trigger.AddDate(0, 0, wantOffsets[i])
		if !draft.ScheduledDate.Equal(want) {
			t.Errorf("declined touch %d scheduled at %v, want %v", i+1, draft.ScheduledDate, want)
		}
	}
}

func TestFollowUpTriggerMapping(t *testing.T) {
	cases := []struct {
		result  Result
		trigger TriggerType
		opens   bool
	}{
		{ResultNoShow, TriggerNoShow, true},
		{ResultDeclined, TriggerDeclined, true},
		{ResultFollowUpNeeded, TriggerReschedule, true},
		{ResultTierASale, "", false},
		{ResultNotInterested, "", false},
		{ResultUnresolved, "", false},
		{ResultSecondVisitScheduled, "", false},
	}

	for _, tc := range cases {
		trigger, opens := FollowUpTrigger(tc.result)
		if opens != tc.opens {
			t.Errorf("FollowUpTrigger(%q) opens=%v, want %v", tc.result, opens, tc.opens)
			continue
		}
		if opens && trigger != tc.trigger {
			t.Errorf("FollowUpTrigger(%q) = %q, want %q", tc.result, trigger, tc.trigger)
		}
	}
}
