package domain

// RawRecord is one row of the HMRC reporting-funds extract, exactly as it
// appears in the spreadsheet. Immutable once read; corrections are applied
// onto copies by the errata filter.
type RawRecord struct {
	Ref           string `json:"ref"` // share-class reference, unique per row
	ParentFund    string `json:"parent_fund"`
	SubFund       string `json:"sub_fund"`
	ISIN          string `json:"isin"`
	CUSIP         string `json:"cusip"`
	EffectiveFrom string `json:"effective_from"`
	CeasedOn      string `json:"ceased_on"` // blank while the fund is still reporting
}

// Erratum overrides fields of the RawRecord sharing its share-class
// reference. A blank field means "no override".
type Erratum struct {
	Ref           string `json:"ref"`
	ParentFund    string `json:"parent_fund,omitempty"`
	SubFund       string `json:"sub_fund,omitempty"`
	ISIN          string `json:"isin,omitempty"`
	CUSIP         string `json:"cusip,omitempty"`
	EffectiveFrom string `json:"effective_from,omitempty"`
	CeasedOn      string `json:"ceased_on,omitempty"`
}

// EligibleRecord is a corrected RawRecord that passed the eligibility
// filter: still reporting, and carrying a checksum-valid CUSIP or a valid
// US ISIN. ISIN is always the canonical 12-character identifier (derived
// from the CUSIP when the sheet had none) and CUSIP is always the
// 9-character national code embedded in it.
type EligibleRecord struct {
	Ref           string `json:"ref"`
	ParentFund    string `json:"parent_fund"`
	SubFund       string `json:"sub_fund"`
	ISIN          string `json:"isin"`
	CUSIP         string `json:"cusip"`
	EffectiveFrom string `json:"effective_from"`
}

// DroppedRecord records a row the eligibility filter rejected, for audit.
type DroppedRecord struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// FigiEntry is the resolved listing for one ISIN. A nil *FigiEntry in the
// resolver cache is an explicit "no match" marker, distinct from an ISIN
// that was never queried.
type FigiEntry struct {
	Ticker   string `json:"ticker"`
	ExchCode string `json:"exchCode,omitempty"`
	Name     string `json:"name,omitempty"`
}

// EnrichedRecord is an EligibleRecord joined with its resolved ticker and
// normalized family/display names.
type EnrichedRecord struct {
	EligibleRecord
	Ticker      string `json:"ticker"`
	Family      string `json:"family"`
	DisplayName string `json:"display_name"`
}

// ResultRecord is the unit emitted to one output list. Only records with a
// resolved ticker and a non-blank category are ever emitted.
type ResultRecord struct {
	Ticker         string `json:"ticker"`
	Family         string `json:"family"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	ISIN           string `json:"isin"`
	CUSIP          string `json:"cusip"`
	ReportingSince string `json:"reporting_since,omitempty"`
}

// SiblingRecord flags an eligible fund that shares a family with a
// published result but appears in neither output list. Computed fresh
// every run; surfaced for manual review only.
type SiblingRecord struct {
	Ref    string `json:"ref"`
	Family string `json:"family"`
	Name   string `json:"name"`
	ISIN   string `json:"isin"`
	CUSIP  string `json:"cusip"`
}
