package card

import "math"

// AgreementBonus is added to the merged confidence when both sources agree on
// the name or the company. The merge stays monotonic: the result is never
// below the higher input confidence and never above 1.
const AgreementBonus = 0.05

// Passthrough returns the single available record normalized, used when the
// other source produced nothing.
func Passthrough(f Fields) Fields {
	f.Trim()
	return f
}

// Enhance merges the local heuristic record with the remote LLM record.
// Field-by-field the remote value wins when non-empty; a found local value is
// never demoted to absent. Source becomes ai when the remote contributed at
// least one field.
func Enhance(local, remote Fields) Fields {
	local.Trim()
	remote.Trim()

	merged := local
	contributed := 0
	dst := merged.textSlots()
	src := remote.textSlots()
	for i := range dst {
		if *src[i] != "" {
			*dst[i] = *src[i]
			contributed++
		}
	}

	conf := math.Max(local.Confidence, remote.Confidence)
	if agree(local.Name, remote.Name) || agree(local.Company, remote.Company) {
		conf += AgreementBonus
	}
	merged.Confidence = math.Min(1, conf)

	if contributed > 0 {
		merged.Source = SourceAI
	} else {
		merged.Source = SourceLocal
	}
	return merged
}

func agree(a, b string) bool { return a != "" && a == b }
