package apiclient

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"unicode"
)

// aliases maps snake_cased backend spellings onto canonical keys. Keys not
// listed here are only case-normalized.
var aliases = map[string]string{
	"titre":                "title",
	"intitule":             "title",
	"entreprise":           "company",
	"company_name":         "company",
	"nom_entreprise":       "company",
	"lieu":                 "location",
	"localisation":         "location",
	"ville":                "location",
	"salaire":              "salary",
	"remuneration":         "salary",
	"type":                 "kind",
	"type_offre":           "kind",
	"offer_type":           "kind",
	"job_type":             "kind",
	"niveau":               "experience_level",
	"niveau_experience":    "experience_level",
	"experience":           "experience_level",
	"competences":          "skills",
	"categorie":            "category",
	"date_publication":     "published_at",
	"date_de_publication":  "published_at",
	"statut":               "status",
	"propositions":         "proposals",
	"nombre_propositions":  "proposals",
	"lettre_motivation":    "cover_letter",
	"lettre_de_motivation": "cover_letter",
	"date_candidature":     "submitted_at",
	"applied_at":           "submitted_at",
	"offre_id":             "job_id",
	"opportunite_id":       "job_id",
	"opportunity_id":       "job_id",
	"offre":                "job",
	"opportunite":          "job",
	"opportunity":          "job",
	"opportunites":         "jobs",
	"offres":               "jobs",
	"candidature":          "application",
	"candidatures":         "applications",
	"cv":                   "resume_ref",
	"resume":               "resume_ref",
	"resume_url":           "resume_ref",
	"linked_in_url":        "linkedin_url",
	"linkedin":             "linkedin_url",
	"portfolio":            "portfolio_url",
	"nom":                  "name",
	"utilisateur":          "user",
	"total_count":          "total",
	"jeton":                "token",
	"access_token":         "token",
}

// canonicalKey returns the canonical spelling of a response key.
func canonicalKey(key string) string {
	snake := toSnake(key)
	if alias, ok := aliases[snake]; ok {
		return alias
	}
	return snake
}

// toSnake lower-cases key and separates camelCase words with underscores.
func toSnake(key string) string {
	var b strings.Builder
	runes := []rune(key)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeBody rewrites every object key in body to its canonical spelling.
// When a canonical key and an alias of it are both present, the canonical
// one wins.
func normalizeBody(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeValue(v))
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return normalizeObject(t)
	case []interface{}:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	default:
		return v
	}
}

func normalizeObject(obj map[string]interface{}) map[string]interface{} {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]interface{}, len(obj))
	// exact canonical spellings first
	for _, k := range keys {
		if canonicalKey(k) == k {
			out[k] = normalizeValue(obj[k])
		}
	}
	for _, k := range keys {
		ck := canonicalKey(k)
		if ck == k {
			continue
		}
		if _, taken := out[ck]; taken {
			continue
		}
		out[ck] = normalizeValue(obj[k])
	}
	return out
}
