package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"cvanalyzer/semantic-cv-analyzer/internal/models"
)

type fieldSpec struct {
	name    string
	aliases []string
	label   *regexp.Regexp
}

func labeled(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^[\s\-*#>•"\d.)]*(?:\*\*)?\s*(?:` + pattern + `)"?\s*(?:\*\*)?\s*[:=]\s*(?:\*\*)?\s*(.*)$`)
}

var (
	technicalSpec = fieldSpec{
		name:    FieldTechnicalMatch,
		aliases: []string{"technical_score", "technical_skills_score"},
		label:   labeled(`technical(?:[ _-]?skills?)?[ _-]?(?:match|score)`),
	}
	experienceSpec = fieldSpec{
		name:    FieldExperienceMatch,
		aliases: []string{"experience_score", "experience_level_score"},
		label:   labeled(`experience(?:[ _-]?level)?[ _-]?(?:match|score)`),
	}
	softSkillsSpec = fieldSpec{
		name:    FieldSoftSkillsMatch,
		aliases: []string{"soft_skill_score", "soft_skills_score", "soft_skill_match"},
		label:   labeled(`soft[ _-]?skills?[ _-]?(?:match|score)`),
	}
	overallSpec = fieldSpec{
		name:    FieldOverallMatch,
		aliases: []string{"overall_average", "overall_score", "match_score"},
		label:   labeled(`overall[ _-]?(?:match|score|average)`),
	}
	keywordsSpec = fieldSpec{
		name:    FieldMissingKeywords,
		aliases: []string{"missing_skills"},
		label:   labeled(`missing[ _-]?(?:keywords|skills)`),
	}
	summarySpec = fieldSpec{
		name:    FieldSummary,
		aliases: []string{"candidate_summary"},
		label:   labeled(`(?:candidate[ _-]?)?summary`),
	}
	questionSpec = fieldSpec{
		name:  FieldInterviewQuestion,
		label: labeled(`interview[ _-]?question`),
	}

	allFieldSpecs = []fieldSpec{
		technicalSpec, experienceSpec, softSkillsSpec, overallSpec,
		keywordsSpec, summarySpec, questionSpec,
	}
)

// rawField is one located field before coercion.
type rawField struct {
	text   string
	list   []string
	isList bool
	number *float64
}

// ResponseParser turns the model reply into an AnalysisResult. In strict mode
// a missing or non-numeric sub-score fails the parse; otherwise it becomes 0
// with a warning.
type ResponseParser struct {
	strict bool
}

func NewResponseParser(strict bool) *ResponseParser {
	return &ResponseParser{strict: strict}
}

func (p *ResponseParser) Strict() bool {
	return p.strict
}

// Parse is pure: the same input always gives the same result.
func (p *ResponseParser) Parse(raw string) (*models.AnalysisResult, error) {
	fields := locateJSONFields(raw)
	if !hasSubScore(fields) {
		// JSON without usable scores; the text may still carry them as lines
		if labeled := locateLabeledFields(raw); hasSubScore(labeled) {
			for name, f := range fields {
				if _, ok := labeled[name]; !ok {
					labeled[name] = f
				}
			}
			fields = labeled
		}
	}
	// A reply with no readable sub-score is never turned into zeros.
	if !hasSubScore(fields) {
		return nil, &ParseError{Reason: ReasonMalformedResponse}
	}

	result := &models.AnalysisResult{MissingKeywords: []string{}}

	scores := []struct {
		spec fieldSpec
		dst  *int
	}{
		{technicalSpec, &result.TechnicalMatch},
		{experienceSpec, &result.ExperienceMatch},
		{softSkillsSpec, &result.SoftSkillsMatch},
	}
	for _, s := range scores {
		value, kind, ok := coerceScore(fields, s.spec.name)
		if !ok {
			if p.strict {
				return nil, &ParseError{Reason: ReasonMissingField, Field: s.spec.name}
			}
			result.Warnings = append(result.Warnings, models.FieldWarning{Field: s.spec.name, Kind: kind})
			continue
		}
		*s.dst = value
		if kind == models.WarningClamped {
			result.Warnings = append(result.Warnings, models.FieldWarning{Field: s.spec.name, Kind: kind})
		}
	}

	if _, present := fields[FieldOverallMatch]; present {
		value, kind, ok := coerceScore(fields, FieldOverallMatch)
		if ok {
			result.OverallMatch = &value
		}
		if kind != "" {
			result.Warnings = append(result.Warnings, models.FieldWarning{Field: FieldOverallMatch, Kind: kind})
		}
	}

	if f, ok := fields[FieldMissingKeywords]; ok {
		if f.isList {
			result.MissingKeywords = cleanKeywords(f.list)
		} else {
			result.MissingKeywords = splitKeywords(f.text)
		}
	}

	if f, ok := fields[FieldSummary]; ok && strings.TrimSpace(f.text) != "" {
		result.Summary = strings.TrimSpace(f.text)
	} else {
		result.Warnings = append(result.Warnings, models.FieldWarning{Field: FieldSummary, Kind: models.WarningMissing})
	}

	if f, ok := fields[FieldInterviewQuestion]; ok {
		result.InterviewQuestion = strings.TrimSpace(f.text)
	}

	return result, nil
}

// coerceScore returns the clamped score for name. ok is false when the field
// is absent or not a number; kind then says which.
func coerceScore(fields map[string]rawField, name string) (value int, kind models.WarningKind, ok bool) {
	f, present := fields[name]
	if !present {
		return 0, models.WarningMissing, false
	}

	var n float64
	switch {
	case f.number != nil:
		n = *f.number
	default:
		parsed, valid := parseScore(f.text)
		if !valid {
			return 0, models.WarningInvalid, false
		}
		n = parsed
	}

	// 0.9 is a 0-1 scale answer, not 1%
	if n > 0 && n < 1 {
		return 0, models.WarningInvalid, false
	}

	rounded := math.Round(n)
	switch {
	case rounded > 100:
		return 100, models.WarningClamped, true
	case rounded < 0:
		return 0, models.WarningClamped, true
	default:
		return int(rounded), "", true
	}
}

var scoreValue = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(?:%|/\s*100)?$`)

// parseScore accepts a bare number, optionally followed by "%" or "/100".
// Anything else ("5 years at Google") is not a score.
func parseScore(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `*"'`))
	m := scoreValue.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func locateJSONFields(raw string) map[string]rawField {
	jsonStr := extractJSON(raw)
	if !gjson.Valid(jsonStr) {
		return nil
	}
	obj := gjson.Parse(jsonStr)
	if !obj.IsObject() {
		return nil
	}

	fields := make(map[string]rawField)
	for _, spec := range allFieldSpecs {
		for _, key := range append([]string{spec.name}, spec.aliases...) {
			res := lookupJSON(obj, key)
			if !res.Exists() || res.Type == gjson.Null {
				continue
			}
			fields[spec.name] = jsonField(res)
			break
		}
	}
	return fields
}

// lookupJSON finds key at the top level or one object down, as in
// {"scores": {"technical_match": 90}}.
func lookupJSON(obj gjson.Result, key string) gjson.Result {
	if res := obj.Get(key); res.Exists() && res.Type != gjson.Null {
		return res
	}
	var found gjson.Result
	obj.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		if res := value.Get(key); res.Exists() && res.Type != gjson.Null {
			found = res
			return false
		}
		return true
	})
	return found
}

// hasSubScore reports whether at least one sub-score reads as a number.
func hasSubScore(fields map[string]rawField) bool {
	for _, name := range []string{FieldTechnicalMatch, FieldExperienceMatch, FieldSoftSkillsMatch} {
		if _, _, ok := coerceScore(fields, name); ok {
			return true
		}
	}
	return false
}

func jsonField(res gjson.Result) rawField {
	switch {
	case res.Type == gjson.Number:
		n := res.Float()
		return rawField{number: &n, text: res.Raw}
	case res.IsArray():
		var list []string
		for _, item := range res.Array() {
			list = append(list, item.String())
		}
		return rawField{list: list, isList: true}
	default:
		return rawField{text: res.String()}
	}
}

var bulletLine = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)

// locateLabeledFields is the fallback for replies written as "Label: value"
// lines instead of JSON. A missing-keywords label with nothing after it
// collects the bullet lines that follow.
func locateLabeledFields(raw string) map[string]rawField {
	fields := make(map[string]rawField)
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	for i := 0; i < len(lines); i++ {
		for _, spec := range allFieldSpecs {
			m := spec.label.FindStringSubmatch(lines[i])
			if m == nil {
				continue
			}
			if _, seen := fields[spec.name]; seen {
				break
			}
			value := cleanLabeledValue(m[1])
			if spec.name == FieldMissingKeywords && value == "" {
				var list []string
				for i+1 < len(lines) {
					b := bulletLine.FindStringSubmatch(lines[i+1])
					if b == nil {
						break
					}
					list = append(list, b[1])
					i++
				}
				fields[spec.name] = rawField{list: list, isList: true}
				break
			}
			fields[spec.name] = rawField{text: value}
			break
		}
	}
	return fields
}

// cleanLabeledValue strips markdown emphasis and the quoting and trailing
// comma left behind by a truncated JSON reply.
func cleanLabeledValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, ",")
	v = strings.TrimSpace(strings.TrimSuffix(v, "**"))
	v = strings.TrimPrefix(strings.TrimSuffix(v, `"`), `"`)
	return strings.TrimSpace(v)
}

func splitKeywords(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	return cleanKeywords(parts)
}

func cleanKeywords(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		item = strings.TrimSpace(strings.TrimLeft(item, "-*•"))
		item = strings.TrimSpace(strings.Trim(item, `"'[]`))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	// Remove markdown code blocks
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	endObj := strings.LastIndex(text, "}")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	}

	return strings.TrimSpace(text)
}
