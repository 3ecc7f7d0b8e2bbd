package fixgen

import (
	"strings"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// FallbackConfidenceCap is the highest confidence a fix born from the static
// table may carry.
const FallbackConfidenceCap = 0.7

// ManualReviewConfidence is the confidence assigned to manual-review stubs.
const ManualReviewConfidence = 0.3

// Substitution is one static pattern-replacement entry, keyed by a
// recognizable code snippet. The tables below cover migrations common enough
// to fix without the generation service.
type Substitution struct {
	Match             string
	Replace           string
	Explanation       string
	Confidence        float64
	AdditionalImports []string
}

// substitutions maps each category to its static fallback table.
var substitutions = map[schemas.Category][]Substitution{
	schemas.CategoryDeprecatedMethod: {
		{
			Match:       ".newInstance()",
			Replace:     ".getDeclaredConstructor().newInstance()",
			Explanation: "Class.newInstance() is deprecated since Java 9; use the declared constructor.",
			Confidence:  0.7,
		},
		{
			Match:       "JsonParser.Feature",
			Replace:     "StreamReadFeature",
			Explanation: "Jackson 2.10 moved parser features to StreamReadFeature.",
			Confidence:  0.6,
			AdditionalImports: []string{
				"com.fasterxml.jackson.core.StreamReadFeature",
			},
		},
		{
			Match:       "new Integer(",
			Replace:     "Integer.valueOf(",
			Explanation: "Boxed primitive constructors are deprecated for removal; use valueOf.",
			Confidence:  0.7,
		},
	},
	schemas.CategoryAPISignatureChange: {
		{
			Match:       ".build().perform()",
			Replace:     ".perform()",
			Explanation: "The builder step was folded into perform() in the new API.",
			Confidence:  0.55,
		},
	},
	schemas.CategoryDependencyScope: {
		{
			Match:       "<scope>provided</scope>",
			Replace:     "<scope>compile</scope>",
			Explanation: "Symbols required at compile time are no longer provided by the runtime.",
			Confidence:  0.6,
		},
		{
			Match:       "<scope>runtime</scope>",
			Replace:     "<scope>compile</scope>",
			Explanation: "Runtime-scoped dependency is now referenced at compile time.",
			Confidence:  0.6,
		},
	},
	schemas.CategoryRemovedClass: {
		{
			Match:       "javax.servlet",
			Replace:     "jakarta.servlet",
			Explanation: "Servlet API packages moved from javax to jakarta in Jakarta EE 9.",
			Confidence:  0.7,
			AdditionalImports: []string{
				"jakarta.servlet.http.HttpServletRequest",
			},
		},
		{
			Match:       "org.apache.commons.lang.",
			Replace:     "org.apache.commons.lang3.",
			Explanation: "Commons Lang 3 relocated all classes under the lang3 package.",
			Confidence:  0.7,
		},
	},
	schemas.CategoryMultiFileChange: {},
}

// Lookup scans the category's table for an entry whose snippet occurs in the
// given source line. The first match wins.
func Lookup(category schemas.Category, sourceLine string) (Substitution, bool) {
	for _, s := range substitutions[category] {
		if strings.Contains(sourceLine, s.Match) {
			return s, true
		}
	}
	return Substitution{}, false
}

// ApplySubstitution performs the replacement on a source line.
func ApplySubstitution(s Substitution, sourceLine string) string {
	return strings.Replace(sourceLine, s.Match, s.Replace, 1)
}
