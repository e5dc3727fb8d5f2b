// Package risk turns parsed sections, imports and extracted strings into
// a bounded triage score.
package risk

import (
	"regexp"

	"github.com/Sccrap/pe-triage/internal/pe"
)

// Weights and caps of the sub-scores.
const (
	ImportWeight = 10
	ImportCap    = 40

	HighEntropy   = 7.5
	EntropyWeight = 10
	EntropyCap    = 30

	URLWeight = 5
	URLCap    = 20

	// maxRaw is the normalization base; it is larger than the sum of the
	// caps, so the score never reaches 100.
	maxRaw = 120
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Verdict buckets a score.
type Verdict string

const (
	Clean      Verdict = "LIKELY CLEAN"
	Suspicious Verdict = "SUSPICIOUS"
	Malicious  Verdict = "LIKELY MALICIOUS"
)

// Breakdown is the score with its parts.
type Breakdown struct {
	Imports int
	Entropy int
	Strings int
	Score   int
}

// ImportScore adds ImportWeight for each by-name import on the denylist.
func ImportScore(libs []pe.Library) int {
	score := 0
	for _, lib := range libs {
		for _, s := range lib.Symbols {
			if s.Kind != pe.ByName || !IsSuspicious(s.Name) {
				continue
			}
			score += ImportWeight
			if score >= ImportCap {
				return ImportCap
			}
		}
	}
	return score
}

// EntropyScore adds EntropyWeight for every section that looks packed.
func EntropyScore(sections []pe.Section) int {
	score := 0
	for _, s := range sections {
		if s.Entropy >= HighEntropy {
			score += EntropyWeight
		}
	}
	return min(score, EntropyCap)
}

// StringScore adds URLWeight for every string containing an http(s) URL.
func StringScore(strs []string) int {
	score := 0
	for _, s := range strs {
		if !HasURL(s) {
			continue
		}
		score += URLWeight
		if score >= URLCap {
			return URLCap
		}
	}
	return score
}

// HasURL reports whether s contains an http or https URL.
func HasURL(s string) bool {
	return urlPattern.MatchString(s)
}

// Score combines the sub-scores and normalizes them to 0..100.
func Score(sections []pe.Section, strs []string, libs []pe.Library) Breakdown {
	b := Breakdown{
		Imports: ImportScore(libs),
		Entropy: EntropyScore(sections),
		Strings: StringScore(strs),
	}
	raw := b.Imports + b.Entropy + b.Strings
	b.Score = int(float64(raw) / maxRaw * 100)
	return b
}

// VerdictFor buckets score into clean (<30), suspicious (<60) or malicious.
func VerdictFor(score int) Verdict {
	switch {
	case score < 30:
		return Clean
	case score < 60:
		return Suspicious
	}
	return Malicious
}
