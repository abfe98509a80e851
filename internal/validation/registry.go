package validation

// DefaultRules is the rule set applied to every event kind, in display order.
func DefaultRules(ref ReferenceSource, lookup RecordLookup, clock Clock) []Rule {
	return []Rule{
		NationalIDRule(),
		SecondaryIDRule(),
		FullNameRule(),
		BirthDateRule(clock),
		AdmissionDateRule(clock),
		SalaryRule(),
		EmailRule(),
		PhoneRule(),

		AgeAtAdmissionRule(),
		MaximumAgeRule(clock),
		AdmissionNotBeforeRule(),
		TerminationAfterAdmissionRule(),
		StatusConsistencyRule(),
		SalaryMinimumWageRule(ref),
		SalaryCeilingRule(ref),
		JobTitleRule(),
		DepartmentRule(),

		CategoryRule(ref),
		ContractTypeRule(ref),
		OccupationCodeRule(),
		StateCodeRule(ref),
		NationalityRule(ref),
		MaritalStatusRule(ref),
		RaceRule(ref),
		EducationLevelRule(ref),
		DisabilityRule(ref),

		NationalIDUniqueRule(lookup),
		SecondaryIDUniqueRule(lookup),
		RegistrationUniqueRule(lookup),
		LaborCardUniqueRule(lookup),
	}
}
