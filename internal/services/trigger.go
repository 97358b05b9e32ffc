package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crediflow/crm-backend/internal/models"
	"github.com/crediflow/crm-backend/pkg/apperrors"
)

var conditionOperators = map[string]bool{
	"eq": true, "neq": true,
	"gt": true, "gte": true, "lt": true, "lte": true,
	"contains": true,
}

// validateTrigger rejects triggers that can never fire
func validateTrigger(trigger *models.Trigger) error {
	switch trigger.Type {
	case models.TriggerTypeTime:
		switch trigger.Frequency {
		case models.FrequencyDaily:
			if _, _, err := parseClock(trigger.Time); err != nil {
				return err
			}
		case models.FrequencyWeekly:
			if _, _, err := parseClock(trigger.Time); err != nil {
				return err
			}
			if len(trigger.Days) == 0 {
				return apperrors.NewValidation("trigger.days", "weekly trigger needs at least one weekday")
			}
			for _, d := range trigger.Days {
				if d < 0 || d > 6 {
					return apperrors.NewValidation("trigger.days", "weekday must be between 0 (Sunday) and 6")
				}
			}
		case models.FrequencyMonthly:
			if _, _, err := parseClock(trigger.Time); err != nil {
				return err
			}
			if len(trigger.Days) == 0 {
				return apperrors.NewValidation("trigger.days", "monthly trigger needs at least one day of month")
			}
			for _, d := range trigger.Days {
				if d < 1 || d > 31 {
					return apperrors.NewValidation("trigger.days", "day of month must be between 1 and 31")
				}
			}
		case models.FrequencyCron:
			if _, err := cron.ParseStandard(trigger.CronExpr); err != nil {
				return apperrors.NewValidation("trigger.cronExpr", fmt.Sprintf("invalid cron expression: %v", err))
			}
		default:
			return apperrors.NewValidation("trigger.frequency", fmt.Sprintf("unknown frequency %q", trigger.Frequency))
		}
		if trigger.Timezone != "" {
			if _, err := time.LoadLocation(trigger.Timezone); err != nil {
				return apperrors.NewValidation("trigger.timezone", fmt.Sprintf("unknown timezone %q", trigger.Timezone))
			}
		}
	case models.TriggerTypeEvent:
		if trigger.EventType == "" {
			return apperrors.NewValidation("trigger.eventType", "event trigger needs an event type")
		}
		for _, c := range trigger.Conditions {
			if c.Field == "" {
				return apperrors.NewValidation("trigger.conditions", "condition field is required")
			}
			if !conditionOperators[c.Operator] {
				return apperrors.NewValidation("trigger.conditions", fmt.Sprintf("unknown operator %q", c.Operator))
			}
		}
	default:
		return apperrors.NewValidation("trigger.type", fmt.Sprintf("unknown trigger type %q", trigger.Type))
	}
	return nil
}

func parseClock(value string) (int, int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, apperrors.NewValidation("trigger.time", "time must be HH:MM")
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, apperrors.NewValidation("trigger.time", "hour must be between 00 and 23")
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, apperrors.NewValidation("trigger.time", "minute must be between 00 and 59")
	}
	return hour, minute, nil
}

func triggerLocation(trigger *models.Trigger) *time.Location {
	if trigger.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(trigger.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// nextOccurrence computes the first firing time strictly after the given
// instant. Missed occurrences collapse into the single next one.
func nextOccurrence(trigger *models.Trigger, after time.Time) (time.Time, error) {
	loc := triggerLocation(trigger)
	local := after.In(loc)

	if trigger.Frequency == models.FrequencyCron {
		schedule, err := cron.ParseStandard(trigger.CronExpr)
		if err != nil {
			return time.Time{}, apperrors.NewValidation("trigger.cronExpr", fmt.Sprintf("invalid cron expression: %v", err))
		}
		return schedule.Next(local), nil
	}

	hour, minute, err := parseClock(trigger.Time)
	if err != nil {
		return time.Time{}, err
	}

	switch trigger.Frequency {
	case models.FrequencyDaily:
		candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
		if !candidate.After(after) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate, nil

	case models.FrequencyWeekly:
		days := make(map[int]bool, len(trigger.Days))
		for _, d := range trigger.Days {
			days[d] = true
		}
		for offset := 0; offset <= 7; offset++ {
			day := local.AddDate(0, 0, offset)
			if !days[int(day.Weekday())] {
				continue
			}
			candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
			if candidate.After(after) {
				return candidate, nil
			}
		}
		return time.Time{}, apperrors.NewValidation("trigger.days", "weekly trigger has no upcoming weekday")

	case models.FrequencyMonthly:
		// Days that overflow a short month (e.g. 31 in February) are skipped
		// for that month rather than rolling over.
		var best time.Time
		for offset := 0; offset <= 12; offset++ {
			month := local.AddDate(0, offset, -local.Day()+1)
			for _, d := range trigger.Days {
				candidate := time.Date(month.Year(), month.Month(), d, hour, minute, 0, 0, loc)
				if candidate.Day() != d {
					continue
				}
				if candidate.After(after) && (best.IsZero() || candidate.Before(best)) {
					best = candidate
				}
			}
			if !best.IsZero() {
				return best, nil
			}
		}
		return time.Time{}, apperrors.NewValidation("trigger.days", "monthly trigger has no upcoming day")
	}

	return time.Time{}, apperrors.NewValidation("trigger.frequency", fmt.Sprintf("unknown frequency %q", trigger.Frequency))
}

// matchConditions reports whether every condition holds against the event
// payload. A missing payload field fails its condition.
func matchConditions(conditions []models.Condition, payload map[string]interface{}) bool {
	for _, condition := range conditions {
		value, ok := payload[condition.Field]
		if !ok {
			return false
		}
		if !compareValues(condition.Operator, value, condition.Value) {
			return false
		}
	}
	return true
}

func compareValues(operator string, actual, expected interface{}) bool {
	switch operator {
	case "eq":
		return valuesEqual(actual, expected)
	case "neq":
		return !valuesEqual(actual, expected)
	case "gt", "gte", "lt", "lte":
		a, aok := toFloat(actual)
		b, bok := toFloat(expected)
		if !aok || !bok {
			return false
		}
		switch operator {
		case "gt":
			return a > b
		case "gte":
			return a >= b
		case "lt":
			return a < b
		default:
			return a <= b
		}
	case "contains":
		a, aok := actual.(string)
		b, bok := expected.(string)
		return aok && bok && strings.Contains(a, b)
	}
	return false
}

// valuesEqual compares numerically when both sides are numbers, so that a
// JSON float64 payload value matches an int condition value.
func valuesEqual(actual, expected interface{}) bool {
	a, aok := toFloat(actual)
	b, bok := toFloat(expected)
	if aok && bok {
		return a == b
	}
	if aok != bok {
		return false
	}
	switch a := actual.(type) {
	case string:
		b, ok := expected.(string)
		return ok && a == b
	case bool:
		b, ok := expected.(bool)
		return ok && a == b
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
