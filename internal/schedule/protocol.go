package schedule

// DoseDefinition describes one required vaccination in the protocol.
type DoseDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AgeMonths   int    `json:"ageMonths"`
	AgeText     string `json:"ageText"`
}

// protocol is the fixed WHO childhood immunization protocol, in the order
// doses are presented to callers. Dose names are unique and serve as the
// canonical dose identity.
var protocol = []DoseDefinition{
	{Name: "BCG", Description: "Bacillus Calmette-Guérin (Tuberculosis)", AgeMonths: 0, AgeText: "At birth"},
	{Name: "Hepatitis B", Description: "Hepatitis B vaccine", AgeMonths: 0, AgeText: "At birth"},
	{Name: "DPT1", Description: "Diphtheria, Pertussis, Tetanus (1st dose)", AgeMonths: 2, AgeText: "2 months"},
	{Name: "Polio1", Description: "Oral Polio Vaccine (1st dose)", AgeMonths: 2, AgeText: "2 months"},
	{Name: "DPT2", Description: "Diphtheria, Pertussis, Tetanus (2nd dose)", AgeMonths: 4, AgeText: "4 months"},
	{Name: "Polio2", Description: "Oral Polio Vaccine (2nd dose)", AgeMonths: 4, AgeText: "4 months"},
	{Name: "DPT3", Description: "Diphtheria, Pertussis, Tetanus (3rd dose)", AgeMonths: 6, AgeText: "6 months"},
	{Name: "Polio3", Description: "Oral Polio Vaccine (3rd dose)", AgeMonths: 6, AgeText: "6 months"},
	{Name: "Measles1", Description: "Measles vaccine (1st dose)", AgeMonths: 9, AgeText: "9 months"},
	{Name: "MMR", Description: "Measles, Mumps, Rubella", AgeMonths: 12, AgeText: "12 months"},
	{Name: "DPT Booster", Description: "DPT Booster dose", AgeMonths: 18, AgeText: "18 months"},
	{Name: "Measles2", Description: "Measles vaccine (2nd dose)", AgeMonths: 24, AgeText: "2 years"},
}

// Protocol returns the full dose list in protocol order. The returned slice
// is a copy; callers may not mutate the table.
func Protocol() []DoseDefinition {
	doses := make([]DoseDefinition, len(protocol))
	copy(doses, protocol)
	return doses
}
