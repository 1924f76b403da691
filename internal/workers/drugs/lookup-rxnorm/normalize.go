// internal/workers/drugs/lookup-rxnorm/normalize.go
package lookuprxnorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"clinic-inventory-workers/internal/models"
)

const (
	defaultStrengthUnit = "mg"
	defaultDoseForm     = "Tablet"
)

var (
	strengthPattern  = regexp.MustCompile(`(\d+\.?\d*)\s*([\w/]+)?`)
	genericSeparator = regexp.MustCompile(`[\s,\-/(]`)
)

// parseStrength reads "10 mg", "0.5 mL" or "100 UNT/ML". Missing numbers
// give 0 and a missing unit gives mg.
func parseStrength(raw string) (float64, string) {
	m := strengthPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, defaultStrengthUnit
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, defaultStrengthUnit
	}
	unit := m[2]
	if unit == "" {
		unit = defaultStrengthUnit
	}
	return v, unit
}

// genericName is the first token of the medication name.
func genericName(medicationName string) string {
	trimmed := strings.TrimSpace(medicationName)
	if trimmed == "" {
		return ""
	}
	if first := genericSeparator.Split(trimmed, 2)[0]; first != "" {
		return first
	}
	return trimmed
}

// toDrug builds the normalized drug for a candidate. ok is false when the
// concept has no package NDC.
func toDrug(c candidate, props map[string]string, ndcs []string) (drug models.RxNormDrug, ok bool) {
	if len(ndcs) == 0 {
		return models.RxNormDrug{}, false
	}

	name := firstNonEmpty(props["RxNorm Name"], props["Display Name"], c.Name)
	strength, unit := parseStrength(props["Strength"])

	return models.RxNormDrug{
		RxCUI:          c.RxCUI,
		MedicationName: name,
		GenericName:    genericName(name),
		Strength:       strength,
		StrengthUnit:   unit,
		Form:           firstNonEmpty(props["Dose Form"], defaultDoseForm),
		NDCID:          ndcs[0],
		AllNDCs:        ndcs,
		DisplayText:    fmt.Sprintf("%s - NDC: %s", name, ndcs[0]),
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
