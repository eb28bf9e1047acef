// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

const (
	// NotSpecified fills review fields the model left blank.
	NotSpecified = "Not Specified"
	// NotApplicable is the default assignment clause reference.
	NotApplicable = "N/A"
)

// ParseSource records how a review was recovered from the model output.
type ParseSource string

const (
	ParsedJSON     ParseSource = "json"
	ParsedFallback ParseSource = "fallback"
)

// Review is the structured answer for one company's contract package.
type Review struct {
	// Company is always the folder name, whatever the model returned.
	Company string `json:"company" yaml:"company"`

	ContractName                      string `json:"contract_name" yaml:"contract_name"`
	ContractCounterparty              string `json:"contract_counterparty" yaml:"contract_counterparty"`
	EffectiveDate                     string `json:"effective_date" yaml:"effective_date"`
	RenewalTerminationDate            string `json:"renewal_termination_date" yaml:"renewal_termination_date"`
	NameChangeRequiresNotification    string `json:"name_change_requires_notification" yaml:"name_change_requires_notification"`
	ClauseReference                   string `json:"clause_reference" yaml:"clause_reference"`
	IsAssignment                      string `json:"is_assignment" yaml:"is_assignment"`
	AssignmentClauseReference         string `json:"assignment_clause_reference" yaml:"assignment_clause_reference"`
	MaterialCorporateStructureClauses string `json:"material_corporate_structure_clauses" yaml:"material_corporate_structure_clauses"`
	NoticesClausePresent              string `json:"notices_clause_present" yaml:"notices_clause_present"`
	ActionRequired                    string `json:"action_required" yaml:"action_required"`
	RecommendedAction                 string `json:"recommended_action" yaml:"recommended_action"`
	ContactListed                     string `json:"contact_listed" yaml:"contact_listed"`

	// RawResponse is the unparsed model output.
	RawResponse string      `json:"raw_response,omitempty" yaml:"raw_response,omitempty"`
	ParsedFrom  ParseSource `json:"parsed_from" yaml:"parsed_from"`

	Stats           DocumentStats `json:"document_stats" yaml:"document_stats"`
	FailedDocuments []string      `json:"failed_documents,omitempty" yaml:"failed_documents,omitempty"`
}

// ReviewField pairs a display label with a review value.
type ReviewField struct {
	Label string
	Value string
}

// Fields returns the labelled review fields in report order.
func (r Review) Fields() []ReviewField {
	return []ReviewField{
		{"Contract Name", r.ContractName},
		{"Contract Counterparty", r.ContractCounterparty},
		{"Effective Date", r.EffectiveDate},
		{"Renewal/Termination Date", r.RenewalTerminationDate},
		{"Name Change Requires Notification or Consent", r.NameChangeRequiresNotification},
		{"Clause Reference", r.ClauseReference},
		{"Name Change Considered an Assignment", r.IsAssignment},
		{"Assignment Clause Reference", r.AssignmentClauseReference},
		{"Material Corporate Structure Clauses", r.MaterialCorporateStructureClauses},
		{"Notices Clause Present", r.NoticesClausePresent},
		{"Action Required", r.ActionRequired},
		{"Recommended Action", r.RecommendedAction},
		{"Contact Listed", r.ContactListed},
	}
}

// DefaultReview returns a review whose fields carry the placeholder values
// used when the model output cannot be decoded.
func DefaultReview(company string) Review {
	return Review{
		Company:                           company,
		ContractName:                      NotSpecified,
		ContractCounterparty:              NotSpecified,
		EffectiveDate:                     NotSpecified,
		RenewalTerminationDate:            NotSpecified,
		NameChangeRequiresNotification:    NotSpecified,
		ClauseReference:                   NotSpecified,
		IsAssignment:                      NotSpecified,
		AssignmentClauseReference:         NotApplicable,
		MaterialCorporateStructureClauses: NotSpecified,
		NoticesClausePresent:              NotSpecified,
		ActionRequired:                    NotSpecified,
		RecommendedAction:                 NotSpecified,
		ContactListed:                     NotSpecified,
		ParsedFrom:                        ParsedFallback,
	}
}

// Failure records a company whose review could not be completed.
type Failure struct {
	Company string `json:"company" yaml:"company"`

	// Step is the pipeline step that failed: extract, validate, analyze or workbook.
	Step  string `json:"step" yaml:"step"`
	Error string `json:"error" yaml:"error"`

	Stats           DocumentStats `json:"document_stats" yaml:"document_stats"`
	FailedDocuments []string      `json:"failed_documents,omitempty" yaml:"failed_documents,omitempty"`
}
