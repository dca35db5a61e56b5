package runtime

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Coerce converts raw host input (form values, decoded JSON, CLI text) into a
// typed Answer for the step. A nil or empty input yields the zero Answer so the
// gate can report it as missing.
func Coerce(step domain.Step, raw any) (domain.Answer, *domain.ValidationError) {
	switch v := raw.(type) {
	case nil:
		return domain.Answer{}, nil
	case domain.Answer:
		return v, nil
	case *domain.Answer:
		if v == nil {
			return domain.Answer{}, nil
		}
		return *v, nil
	}

	switch step.Kind {
	case domain.KindSingleChoice:
		s, ok := asString(raw)
		if !ok {
			return domain.Answer{}, wrongType(step)
		}
		return choiceOrZero(s), nil

	case domain.KindYesNo:
		return coerceYesNo(step, raw)

	case domain.KindMoodSelection:
		return coerceMood(step, raw)

	case domain.KindMultipleChoice:
		return coerceChoices(step, raw)

	case domain.KindNumberInput, domain.KindRatingScale:
		if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
			return domain.Answer{}, nil
		}
		f, ok := asFloat(raw)
		if !ok {
			return domain.Answer{}, notANumber(step)
		}
		return domain.NumberAnswer(f), nil

	case domain.KindTextInput:
		s, ok := raw.(string)
		if !ok {
			return domain.Answer{}, wrongType(step)
		}
		return domain.TextAnswer(s), nil

	case domain.KindMediaCapture:
		return coerceSentinel(step, raw)

	case domain.KindSummary:
		return domain.Answer{}, nil
	}
	return domain.Answer{}, wrongType(step)
}

func choiceOrZero(s string) domain.Answer {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Answer{}
	}
	return domain.ChoiceAnswer(s)
}

func coerceYesNo(step domain.Step, raw any) (domain.Answer, *domain.ValidationError) {
	if b, ok := raw.(bool); ok {
		if b {
			return domain.ChoiceAnswer("yes"), nil
		}
		return domain.ChoiceAnswer("no"), nil
	}
	s, ok := asString(raw)
	if !ok {
		return domain.Answer{}, wrongType(step)
	}
	// Declared option IDs win over the y/n shorthands.
	if step.HasOption(strings.TrimSpace(s)) {
		return domain.ChoiceAnswer(strings.TrimSpace(s)), nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return domain.ChoiceAnswer("yes"), nil
	case "n", "no", "false", "0":
		return domain.ChoiceAnswer("no"), nil
	}
	return choiceOrZero(s), nil
}

func coerceMood(step domain.Step, raw any) (domain.Answer, *domain.ValidationError) {
	var mood domain.Mood
	switch v := raw.(type) {
	case domain.Mood:
		mood = v
	case *domain.Mood:
		if v == nil {
			return domain.Answer{}, nil
		}
		mood = *v
	case string:
		mood.ID = strings.TrimSpace(v)
	case map[string]any, map[string]string:
		if err := mapstructure.Decode(v, &mood); err != nil {
			return domain.Answer{}, wrongType(step)
		}
	default:
		return domain.Answer{}, wrongType(step)
	}

	if mood.ID == "" {
		return domain.Answer{}, nil
	}
	// Fill presentation fields from the declared option.
	if opt, ok := step.Option(mood.ID); ok {
		if mood.Emoji == "" {
			mood.Emoji = opt.Emoji
		}
		if mood.Label == "" {
			mood.Label = opt.Label
		}
	}
	return domain.MoodAnswer(mood), nil
}

func coerceChoices(step domain.Step, raw any) (domain.Answer, *domain.ValidationError) {
	var ids []string
	switch v := raw.(type) {
	case []string:
		ids = v
	case []any:
		for _, item := range v {
			s, ok := asString(item)
			if !ok {
				return domain.Answer{}, wrongType(step)
			}
			ids = append(ids, s)
		}
	case string:
		ids = strings.Split(v, ",")
	default:
		return domain.Answer{}, wrongType(step)
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return domain.ChoicesAnswer(out...), nil
}

func coerceSentinel(step domain.Step, raw any) (domain.Answer, *domain.ValidationError) {
	if b, ok := raw.(bool); ok {
		if b {
			return domain.CapturedAnswer(), nil
		}
		return domain.SkippedAnswer(), nil
	}
	s, ok := raw.(string)
	if !ok {
		return domain.Answer{}, wrongType(step)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return domain.Answer{}, nil
	case string(domain.SentinelCaptured), "captured", "done", "completed":
		return domain.CapturedAnswer(), nil
	case string(domain.SentinelSkipped), "skip":
		return domain.SkippedAnswer(), nil
	}
	return domain.Answer{}, wrongType(step)
}

func asString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case int, int64, float64:
		return strconv.FormatFloat(toFloat(v), 'f', -1, 64), true
	}
	return "", false
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return toFloat(v), true
	}
	return 0, false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}
