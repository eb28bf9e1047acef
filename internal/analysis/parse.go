// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/contract-review/pkg/types"
)

var (
	quotedPattern         = regexp.MustCompile(`"([^"]+)"`)
	datePattern           = regexp.MustCompile(`(?i)(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|\w+ \d{1,2},? \d{4})`)
	actionPattern         = regexp.MustCompile(`(?i)(Notification Required|Consent Required|No Action Required|Further Legal Review Recommended)`)
	recommendationPattern = regexp.MustCompile(`(?i)(Send Notification|Request Consent|No Action|Escalate for Legal Review)`)
)

// Parse turns raw model output into a review. It never fails: output that
// does not contain a JSON object falls back to pattern matching over the
// text, leaving unmatched fields at their defaults. Company is always the
// given folder name.
func Parse(raw, company string) types.Review {
	text := stripFences(raw)

	if obj, ok := extractJSON(text); ok {
		r := reviewFromJSON(obj, company)
		r.RawResponse = raw
		return r
	}

	r := types.DefaultReview(company)
	r.RawResponse = raw
	if m := quotedPattern.FindStringSubmatch(text); m != nil {
		r.ContractName = m[1]
	}
	if m := datePattern.FindStringSubmatch(text); m != nil {
		r.EffectiveDate = m[1]
	}
	if m := actionPattern.FindStringSubmatch(text); m != nil {
		r.ActionRequired = m[1]
	}
	if m := recommendationPattern.FindStringSubmatch(text); m != nil {
		r.RecommendedAction = m[1]
	}
	return r
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSON decodes the span from the first '{' to the last '}'.
func extractJSON(s string) (map[string]any, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(s[start : end+1]))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func reviewFromJSON(obj map[string]any, company string) types.Review {
	get := func(key string) string { return cleanValue(obj[key]) }
	return types.Review{
		Company:                           company,
		ContractName:                      get("contract_name"),
		ContractCounterparty:              get("contract_counterparty"),
		EffectiveDate:                     get("effective_date"),
		RenewalTerminationDate:            get("renewal_termination_date"),
		NameChangeRequiresNotification:    get("name_change_requires_notification"),
		ClauseReference:                   get("clause_reference"),
		IsAssignment:                      get("is_assignment"),
		AssignmentClauseReference:         get("assignment_clause_reference"),
		MaterialCorporateStructureClauses: get("material_corporate_structure_clauses"),
		NoticesClausePresent:              get("notices_clause_present"),
		ActionRequired:                    get("action_required"),
		RecommendedAction:                 get("recommended_action"),
		ContactListed:                     get("contact_listed"),
		ParsedFrom:                        types.ParsedJSON,
	}
}

// cleanValue renders a decoded JSON value as trimmed text. Missing, null,
// false, zero and empty values become NotSpecified.
func cleanValue(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return types.NotSpecified
	case string:
		s = val
	case bool:
		if !val {
			return types.NotSpecified
		}
		// Boolean fields answer yes/no questions such as "Notices Clause Present?".
		s = "Yes"
	case json.Number:
		if f, err := val.Float64(); err == nil && f == 0 {
			return types.NotSpecified
		}
		s = val.String()
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if p := cleanValue(item); p != types.NotSpecified {
				parts = append(parts, p)
			}
		}
		s = strings.Join(parts, "; ")
	case map[string]any:
		if len(val) == 0 {
			return types.NotSpecified
		}
		b, err := json.Marshal(val)
		if err != nil {
			return types.NotSpecified
		}
		s = string(b)
	default:
		s = fmt.Sprint(val)
	}
	if s = strings.TrimSpace(s); s == "" {
		return types.NotSpecified
	}
	return s
}
