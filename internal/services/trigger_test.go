package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crediflow/crm-backend/internal/models"
)

func TestNextOccurrenceDaily(t *testing.T) {
	trigger := &models.Trigger{
		Type:      models.TriggerTypeTime,
		Frequency: models.FrequencyDaily,
		Time:      "09:30",
	}

	// Before today's slot: fires today
	after := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	next, err := nextOccurrence(trigger, after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC), next)

	// After today's slot: fires tomorrow
	after = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	next, err = nextOccurrence(trigger, after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC), next)

	// Exactly at the slot: strictly after, so tomorrow
	after = time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)
	next, err = nextOccurrence(trigger, after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC), next)
}

func TestNextOccurrenceWeekly(t *testing.T) {
	// Mondays and Thursdays at 10:00
	trigger := &models.Trigger{
		Type:      models.TriggerTypeTime,
		Frequency: models.FrequencyWeekly,
		Time:      "10:00",
		Days:      []int{1, 4},
	}

	// Saturday 2026-08-29; next slot is Monday the 31st
	after := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	next, err := nextOccurrence(trigger, after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())

	// Monday after 10:00; next slot is Thursday
	after = time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)
	next, err = nextOccurrence(trigger, after)
	require.NoError(t, err)
	assert.Equal(t, time.Thursday, next.Weekday())
}

func TestNextOccurrenceMonthlySkipsShortMonths(t *testing.T) {
	trigger := &models.Trigger{
		Type:      models.TriggerTypeTime,
		Frequency: models.FrequencyMonthly,
		Time:      "08:00",
		Days:      []int{31},
	}

	// January 31st passed; February has no 31st, so March 31st
	after := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	next, err := nextOccurrence(trigger, after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceCron(t *testing.T) {
	trigger := &models.Trigger{
		Type:      models.TriggerTypeTime,
		Frequency: models.FrequencyCron,
		CronExpr:  "0 9 * * 1-5",
	}

	// Friday evening; next weekday 09:00 is Monday
	after := time.Date(2026, 8, 28, 18, 0, 0, 0, time.UTC)
	next, err := nextOccurrence(trigger, after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceTimezone(t *testing.T) {
	trigger := &models.Trigger{
		Type:      models.TriggerTypeTime,
		Frequency: models.FrequencyDaily,
		Time:      "09:00",
		Timezone:  "Asia/Kolkata",
	}

	// 04:00 UTC is 09:30 IST, past the slot; next is tomorrow IST
	after := time.Date(2026, 8, 29, 4, 0, 0, 0, time.UTC)
	next, err := nextOccurrence(trigger, after)
	require.NoError(t, err)
	loc, _ := time.LoadLocation("Asia/Kolkata")
	assert.Equal(t, time.Date(2026, 8, 30, 9, 0, 0, 0, loc), next.In(loc))
}

func TestValidateTriggerRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		trigger models.Trigger
	}{
		{"bad time", models.Trigger{Type: models.TriggerTypeTime, Frequency: models.FrequencyDaily, Time: "25:00"}},
		{"weekly without days", models.Trigger{Type: models.TriggerTypeTime, Frequency: models.FrequencyWeekly, Time: "09:00"}},
		{"bad weekday", models.Trigger{Type: models.TriggerTypeTime, Frequency: models.FrequencyWeekly, Time: "09:00", Days: []int{7}}},
		{"bad cron", models.Trigger{Type: models.TriggerTypeTime, Frequency: models.FrequencyCron, CronExpr: "not a cron"}},
		{"bad timezone", models.Trigger{Type: models.TriggerTypeTime, Frequency: models.FrequencyDaily, Time: "09:00", Timezone: "Mars/Olympus"}},
		{"event without type", models.Trigger{Type: models.TriggerTypeEvent}},
		{"bad operator", models.Trigger{Type: models.TriggerTypeEvent, EventType: "lead.created", Conditions: []models.Condition{{Field: "score", Operator: "matches", Value: 1}}}},
		{"unknown type", models.Trigger{Type: "SOMETIMES"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, validateTrigger(&tc.trigger))
		})
	}
}

func TestMatchConditions(t *testing.T) {
	payload := map[string]interface{}{
		"loanType": "personal",
		"amount":   float64(50000),
		"city":     "Mumbai Central",
		"verified": true,
	}

	cases := []struct {
		name       string
		conditions []models.Condition
		want       bool
	}{
		{"no conditions match everything", nil, true},
		{"eq string", []models.Condition{{Field: "loanType", Operator: "eq", Value: "personal"}}, true},
		{"eq numeric coercion", []models.Condition{{Field: "amount", Operator: "eq", Value: 50000}}, true},
		{"neq", []models.Condition{{Field: "loanType", Operator: "neq", Value: "home"}}, true},
		{"gt", []models.Condition{{Field: "amount", Operator: "gt", Value: 40000}}, true},
		{"gte boundary", []models.Condition{{Field: "amount", Operator: "gte", Value: 50000}}, true},
		{"lt fails", []models.Condition{{Field: "amount", Operator: "lt", Value: 40000}}, false},
		{"contains", []models.Condition{{Field: "city", Operator: "contains", Value: "Mumbai"}}, true},
		{"eq bool", []models.Condition{{Field: "verified", Operator: "eq", Value: true}}, true},
		{"missing field fails", []models.Condition{{Field: "score", Operator: "eq", Value: 1}}, false},
		{
			"all must hold",
			[]models.Condition{
				{Field: "loanType", Operator: "eq", Value: "personal"},
				{Field: "amount", Operator: "gt", Value: 99999},
			},
			false,
		},
		{"numeric vs string never compare", []models.Condition{{Field: "amount", Operator: "gt", Value: "40000"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchConditions(tc.conditions, payload))
		})
	}
}
