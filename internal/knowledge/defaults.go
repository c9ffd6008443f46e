package knowledge

import "sync"

// Well-known category keys.
const (
	CategoryBusinessName    = "business_name"
	CategoryDBAName         = "dba_name"
	CategoryEntityType      = "entity_type"
	CategoryEIN             = "ein"
	CategorySSN             = "ssn"
	CategoryStateTaxID      = "state_tax_id"
	CategoryStateID         = "state_id"
	CategoryNAICSCode       = "naics_code"
	CategoryBusinessPurpose = "business_purpose"
	CategoryFormationDate   = "formation_date"
	CategoryFiscalYearEnd   = "fiscal_year_end"
	CategoryDateOfBirth     = "date_of_birth"
	CategoryRegisteredAgent = "registered_agent"
	CategoryOwnerName       = "owner_name"
	CategoryFirstName       = "first_name"
	CategoryLastName        = "last_name"
	CategoryOfficerTitle    = "officer_title"
	CategoryEmail           = "email"
	CategoryPhone           = "phone"
	CategoryFax             = "fax"
	CategoryWebsite         = "website"
	CategoryAddressStreet   = "address_street"
	CategoryAddressLine2    = "address_line2"
	CategoryCity            = "city"
	CategoryState           = "state"
	CategoryZipCode         = "zip_code"
	CategoryCounty          = "county"
	CategoryCountry         = "country"
	CategoryEmployeeCount   = "employee_count"
	CategorySignature       = "signature"
	CategoryBoolean         = "boolean"
	CategoryAgreement       = "agreement"
)

// AnchorCategories strongly predict a business registration form.
var AnchorCategories = []string{CategoryBusinessName, CategoryEntityType}

// defaultEntries is the built-in knowledge. Patterns run against a corpus
// that is lower-cased with separators and camelCase boundaries turned
// into single spaces.
var defaultEntries = []Entry{
	{
		Category: CategoryBusinessName,
		Label:    "Business Name",
		Patterns: []string{
			`\b(legal\s+)?business\s+name\b`,
			`\bcompany\s+name\b`,
			`\b(entity|corporate|corporation|organization|llc)\s+name\b`,
			`\bname\s+of\s+(the\s+)?(business|company|entity|corporation|organization)\b`,
			`\blegal\s+name\b`,
		},
		Keywords:   []string{"business name", "company name", "entity name", "legal name", "organization name"},
		Attributes: []string{"organization"},
		Priority:   15,
		Validation: `^.{1,200}$`,
	},
	{
		Category: CategoryDBAName,
		Label:    "DBA / Trade Name",
		Patterns: []string{
			`\bd\s?b\s?a\b`,
			`\bdoing\s+business\s+as\b`,
			`\b(trade|assumed|fictitious)\s+name\b`,
		},
		Keywords: []string{"doing business as", "trade name", "assumed name", "fictitious name"},
		Priority: 12,
	},
	{
		Category: CategoryEntityType,
		Label:    "Entity Type",
		Patterns: []string{
			`\bentity\s+type\b`,
			`\btype\s+of\s+(business\s+)?(entity|organization|business)\b`,
			`\bbusiness\s+(structure|type)\b`,
			`\blegal\s+structure\b`,
			`\borganization(al)?\s+type\b`,
			`\bownership\s+type\b`,
		},
		Keywords: []string{"entity type", "business structure", "type of entity", "legal structure", "business type"},
		Priority: 12,
	},
	{
		Category: CategoryEIN,
		Label:    "EIN",
		Patterns: []string{
			`\bf?ein\b`,
			`\bemployer\s+identification\b`,
			`\bfederal\s+(tax\s+)?(id|identification)\b`,
			`\bfederal\s+employer\b`,
		},
		Keywords:   []string{"employer identification", "federal tax id", "federal id"},
		Priority:   15,
		Validation: `^\d{2}-?\d{7}$`,
	},
	{
		Category: CategorySSN,
		Label:    "Social Security Number",
		Patterns: []string{
			`\bssn\b`,
			`\bsocial\s+security\b`,
			`\bitin\b`,
		},
		Keywords:   []string{"social security"},
		Priority:   10,
		Validation: `^\d{3}-?\d{2}-?\d{4}$`,
	},
	{
		Category: CategoryStateTaxID,
		Label:    "State Tax ID",
		Patterns: []string{
			`\bstate\s+(tax|employer)\s+(id|identification|number|account)\b`,
			`\bsales\s+tax\s+(permit|id|number|account)\b`,
			`\bunemployment\s+(insurance\s+)?(account|id|number)\b`,
		},
		Keywords: []string{"state tax", "sales tax"},
		Priority: 8,
	},
	{
		Category: CategoryStateID,
		Label:    "State Registration Number",
		Patterns: []string{
			`\b(entity|file|filing|charter|registration|control)\s+(number|no|id)\b`,
			`\bsos\s+(id|number)\b`,
		},
		Keywords: []string{"file number", "entity number", "registration number"},
		Priority: 8,
	},
	{
		Category: CategoryNAICSCode,
		Label:    "NAICS Code",
		Patterns: []string{
			`\bnaics\b`,
			`\bsic\s+code\b`,
			`\bindustry\s+(code|classification)\b`,
		},
		Keywords:   []string{"naics", "industry"},
		Priority:   10,
		Validation: `^\d{2,6}$`,
	},
	{
		Category: CategoryBusinessPurpose,
		Label:    "Business Purpose",
		Patterns: []string{
			`\b(business|corporate)\s+purpose\b`,
			`\bpurpose\s+of\s+(the\s+)?(business|corporation|entity|company)\b`,
			`\bnature\s+of\s+(the\s+)?business\b`,
			`\b(business|activity)\s+description\b`,
			`\bdescribe\s+(your|the)\s+business\b`,
		},
		Keywords: []string{"purpose", "nature of business"},
		Priority: 8,
	},
	{
		Category: CategoryFormationDate,
		Label:    "Formation Date",
		Patterns: []string{
			`\b(formation|incorporation|organization|registration|effective|start|commencement)\s+date\b`,
			`\bdate\s+(of\s+)?(formation|incorporation|organization|commencement)\b`,
			`\bdate\s+(business\s+)?(started|began|commenced)\b`,
		},
		Keywords:   []string{"date of formation", "start date", "effective date"},
		Priority:   8,
		Validation: `^\d{4}-\d{2}-\d{2}$`,
	},
	{
		Category: CategoryFiscalYearEnd,
		Label:    "Fiscal Year End",
		Patterns: []string{
			`\bfiscal\s+year\b`,
			`\b(tax|accounting)\s+year\s+end\b`,
		},
		Keywords: []string{"fiscal year"},
		Priority: 8,
	},
	{
		Category: CategoryDateOfBirth,
		Label:    "Date of Birth",
		Patterns: []string{
			`\bdate\s+of\s+birth\b`,
			`\bdob\b`,
			`\bbirth\s*date\b`,
		},
		Keywords:   []string{"birth"},
		Attributes: []string{"bday"},
		Priority:   10,
	},
	{
		Category: CategoryRegisteredAgent,
		Label:    "Registered Agent",
		Patterns: []string{
			`\bregistered\s+agent\b`,
			`\bagent\s+(for\s+service|name)\b`,
			`\b(statutory|resident)\s+agent\b`,
		},
		Keywords: []string{"registered agent", "agent"},
		Priority: 12,
	},
	{
		Category: CategoryOwnerName,
		Label:    "Owner Name",
		Patterns: []string{
			`\b(owner|member|manager|principal|incorporator|organizer|director|partner|proprietor|officer|applicant|contact)s?\s+(full\s+)?name\b`,
			`\bname\s+of\s+(the\s+)?(owner|applicant|principal|organizer|incorporator)\b`,
			`\bfull\s+name\b`,
		},
		Keywords:   []string{"owner", "organizer", "incorporator", "applicant"},
		Attributes: []string{"name"},
		Priority:   8,
	},
	{
		Category:   CategoryFirstName,
		Label:      "First Name",
		Patterns:   []string{`\bfirst\s+name\b`, `\bgiven\s+name\b`, `\bf\s?name\b`},
		Attributes: []string{"given-name"},
		Priority:   8,
	},
	{
		Category:   CategoryLastName,
		Label:      "Last Name",
		Patterns:   []string{`\blast\s+name\b`, `\bsurname\b`, `\bfamily\s+name\b`, `\bl\s?name\b`},
		Attributes: []string{"family-name"},
		Priority:   8,
	},
	{
		Category: CategoryOfficerTitle,
		Label:    "Officer Title",
		Patterns: []string{
			`\b(job|officer|position)\s+title\b`,
			`\btitle\s+of\s+(officer|signer)\b`,
			`\bcapacity\b`,
		},
		Attributes: []string{"organization-title"},
		Priority:   6,
	},
	{
		Category:   CategoryEmail,
		Label:      "Email",
		Patterns:   []string{`\be\s?mail\b`, `\bemail\s+address\b`},
		Keywords:   []string{"email"},
		Attributes: []string{"email"},
		Priority:   15,
		Validation: `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
	},
	{
		Category: CategoryPhone,
		Label:    "Phone",
		Patterns: []string{
			`\b(tele)?phone\b`,
			`\bmobile\b`,
			`\bcell\b`,
			`\bcontact\s+number\b`,
			`\btel\b`,
		},
		Keywords:   []string{"phone"},
		Attributes: []string{"tel", "tel-national"},
		Priority:   12,
		Validation: `^\+?[\d\s().-]{7,20}$`,
	},
	{
		Category: CategoryFax,
		Label:    "Fax",
		Patterns: []string{`\bfax\b`, `\bfacsimile\b`},
		Keywords: []string{"fax"},
		Priority: 8,
	},
	{
		Category: CategoryWebsite,
		Label:    "Website",
		Patterns: []string{
			`\bweb\s?site\b`,
			`\burl\b`,
			`\bhome\s?page\b`,
			`\bweb\s+address\b`,
		},
		Attributes: []string{"url"},
		Priority:   8,
	},
	{
		Category: CategoryAddressStreet,
		Label:    "Street Address",
		Patterns: []string{
			`\b(street|mailing|physical|business|principal|registered|office)\s+address\b`,
			`\baddress\s+(line\s+)?1\b`,
			`\bstreet\b`,
			`\baddress\b`,
		},
		Keywords:   []string{"address"},
		Attributes: []string{"street-address", "address-line1"},
		Priority:   10,
	},
	{
		Category: CategoryAddressLine2,
		Label:    "Address Line 2",
		Patterns: []string{
			`\baddress\s+line\s+2\b`,
			`\bline\s?2\b`,
			`\b(apt|apartment|suite|unit)\b`,
		},
		Keywords:   []string{"line 2", "suite", "apartment"},
		Attributes: []string{"address-line2"},
		Priority:   10,
	},
	{
		Category:   CategoryCity,
		Label:      "City",
		Patterns:   []string{`\bcity\b`, `\btown\b`, `\bmunicipality\b`, `\blocality\b`},
		Attributes: []string{"address-level2"},
		Priority:   10,
	},
	{
		Category: CategoryState,
		Label:    "State",
		Patterns: []string{
			`\bstate\b`,
			`\bprovince\b`,
			`\bstate\s+of\s+(formation|incorporation|organization)\b`,
		},
		Attributes: []string{"address-level1"},
		Priority:   8,
	},
	{
		Category:   CategoryZipCode,
		Label:      "ZIP Code",
		Patterns:   []string{`\bzip\b`, `\bzip\s?code\b`, `\bpostal\s+code\b`, `\bpostcode\b`},
		Attributes: []string{"postal-code"},
		Priority:   10,
		Validation: `^\d{5}(-\d{4})?$`,
	},
	{
		Category: CategoryCounty,
		Label:    "County",
		Patterns: []string{`\bcounty\b`, `\bparish\b`},
		Priority: 8,
	},
	{
		Category:   CategoryCountry,
		Label:      "Country",
		Patterns:   []string{`\bcountry\b`, `\bnation\b`},
		Attributes: []string{"country", "country-name"},
		Priority:   8,
	},
	{
		Category: CategoryEmployeeCount,
		Label:    "Number of Employees",
		Patterns: []string{
			`\b(number|no)\s+of\s+employees\b`,
			`\bemployees\b`,
			`\bemployee\s+count\b`,
			`\bheadcount\b`,
		},
		Priority: 6,
	},
	{
		Category: CategorySignature,
		Label:    "Signature",
		Patterns: []string{
			`\bsignature\b`,
			`\bsign(ed)?\s+by\b`,
			`\belectronic(ally)?\s+sign`,
			`\bsigner\b`,
		},
		Priority: 8,
	},
	{
		Category: CategoryBoolean,
		Label:    "Yes / No",
		Patterns: []string{`\byes\s+(or\s+)?no\b`},
		Priority: 5,
	},
	{
		Category: CategoryAgreement,
		Label:    "Agreement",
		Patterns: []string{
			`\bi\s+(agree|certify|acknowledge|attest|affirm|understand|consent)\b`,
			`\bterms\s+(and\s+)?conditions\b`,
			`\bunder\s+penalt(y|ies)\s+of\s+perjury\b`,
			`\bagree\b`,
			`\bcertif(y|ication)\b`,
		},
		Keywords: []string{"agree", "certify", "acknowledge", "consent", "attest"},
		Priority: 10,
	},
}

var defaultBase = sync.OnceValue(func() *Base {
	b, err := New(defaultEntries)
	if err != nil {
		panic(err)
	}
	return b
})

// Default returns the built-in knowledge base. The value is shared and
// must be treated as read-only; Merge returns a new Base.
func Default() *Base {
	return defaultBase()
}
