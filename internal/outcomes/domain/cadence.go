package domain

import "time"

// FollowUpStatus is the lifecycle state of one scheduled outreach touch.
type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "Pending"
	FollowUpSent      FollowUpStatus = "Sent"
	FollowUpConverted FollowUpStatus = "Converted"
	FollowUpDormant   FollowUpStatus = "Dormant"
	FollowUpSnoozed   FollowUpStatus = "Snoozed"
)

// FollowUpDraft is one generated-but-unpersisted outreach touch. The caller
// attaches the appointment/lead references when inserting the batch.
type FollowUpDraft struct {
	TouchNumber   int
	TriggerType   TriggerType
	TriggerDate   time.Time
	ScheduledDate time.Time
	Status        FollowUpStatus
}

// GenerateFollowUps produces the ordered touch schedule for a trigger episode.
// Touch numbers are 1-indexed and match slice position; every entry starts
// life Pending. Pure function of (policy, trigger, triggerDate).
func GenerateFollowUps(p Policy, trigger TriggerType, triggerDate time.Time) []FollowUpDraft {
	offsets := p.CadenceOffsetsDays[trigger]
	drafts := make([]FollowUpDraft, 0, len(offsets))
	for i, offset := range offsets {
		drafts = append(drafts, FollowUpDraft{
			TouchNumber:   i + 1,
			TriggerType:   trigger,
			TriggerDate:   triggerDate,
			ScheduledDate: triggerDate.AddDate(0, 0, offset),
			Status:        FollowUpPending,
		})
	}
	return drafts
}

// FollowUpTrigger maps a non-converting canonical result to the trigger type
// of the follow-up episode it opens. Results that do not open an episode
// return false.
func FollowUpTrigger(result Result) (TriggerType, bool) {
	switch result {
	case ResultNoShow:
		return TriggerNoShow, true
	case ResultDeclined:
		return TriggerDeclined, true
	case ResultFollowUpNeeded:
		return TriggerReschedule, true
	}
	return "", false
}
