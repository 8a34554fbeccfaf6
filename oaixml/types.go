// Package oaixml models the OAI-PMH 2.0 wire protocol: the XML response
// shapes and an HTTP client that issues verbs and follows resumption
// tokens. Parsing uses encoding/xml — no XML/XPath library exists
// anywhere in the retrieval pack (see DESIGN.md).
package oaixml

// Header is the OAI-PMH record header: identifier, datestamp, set
// membership, and a deletion status.
type Header struct {
	Status     string   `xml:"status,attr"`
	Identifier string   `xml:"identifier"`
	DateStamp  string   `xml:"datestamp"`
	SetSpec    []string `xml:"setSpec"`
}

// Metadata carries the record payload untouched, as raw inner XML —
// the pipeline's Strip/Transform actions operate on this byte range
// rather than a typed tree, since the payload schema is provider-defined.
type Metadata struct {
	Body []byte `xml:",innerxml"`
}

// About carries optional provenance/rights XML, untouched.
type About struct {
	Body []byte `xml:",innerxml"`
}

// Record is one harvested item: a header plus its metadata payload.
type Record struct {
	Header   Header   `xml:"header"`
	Metadata Metadata `xml:"metadata"`
	About    About    `xml:"about"`
}

// ListIdentifiers is the response body of the ListIdentifiers verb.
type ListIdentifiers struct {
	Headers         []Header `xml:"header"`
	ResumptionToken string   `xml:"resumptionToken"`
}

// ListRecords is the response body of the ListRecords verb.
type ListRecords struct {
	Records         []Record `xml:"record"`
	ResumptionToken string   `xml:"resumptionToken"`
}

// GetRecord is the response body of the GetRecord verb.
type GetRecord struct {
	Record Record `xml:"record"`
}

// RequestEcho is the OAI-mandated echo of the request parameters.
type RequestEcho struct {
	Verb           string `xml:"verb,attr"`
	Set            string `xml:"set,attr"`
	MetadataPrefix string `xml:"metadataPrefix,attr"`
}

// Error is the OAI-PMH protocol-level error payload. A non-empty Code
// means the repository rejected the request (badVerb, noRecordsMatch,
// noMetadataFormats, badResumptionToken, etc).
type Error struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// MetadataFormat describes one entry of ListMetadataFormats.
type MetadataFormat struct {
	MetadataPrefix    string `xml:"metadataPrefix"`
	Schema            string `xml:"schema"`
	MetadataNamespace string `xml:"metadataNamespace"`
}

// ListMetadataFormats is the response body of the ListMetadataFormats verb.
type ListMetadataFormats struct {
	MetadataFormat []MetadataFormat `xml:"metadataFormat"`
}

// Identify is the response body of the Identify verb.
type Identify struct {
	RepositoryName    string   `xml:"repositoryName"`
	BaseURL           string   `xml:"baseURL"`
	ProtocolVersion   string   `xml:"protocolVersion"`
	AdminEmail        []string `xml:"adminEmail"`
	EarliestDatestamp string   `xml:"earliestDatestamp"`
	DeletedRecord     string   `xml:"deletedRecord"`
	Granularity       string   `xml:"granularity"`
}

// Response is the top-level OAI-PMH XML envelope. Exactly one of the
// verb-specific fields is populated on a successful response; Error is
// populated instead on protocol failure.
type Response struct {
	ResponseDate string      `xml:"responseDate"`
	Request      RequestEcho `xml:"request"`
	Error        Error       `xml:"error"`

	Identify            Identify            `xml:"Identify"`
	ListMetadataFormats ListMetadataFormats `xml:"ListMetadataFormats"`
	GetRecord           GetRecord           `xml:"GetRecord"`
	ListIdentifiers     ListIdentifiers     `xml:"ListIdentifiers"`
	ListRecords         ListRecords         `xml:"ListRecords"`
}

// HasError reports whether the repository returned a protocol-level error.
func (r *Response) HasError() bool {
	return r.Error.Code != ""
}

// ResumptionToken returns the token carried by whichever list response
// is populated, and whether one was present at all.
func (r *Response) ResumptionToken() (string, bool) {
	if tok := r.ListIdentifiers.ResumptionToken; tok != "" {
		return tok, true
	}
	if tok := r.ListRecords.ResumptionToken; tok != "" {
		return tok, true
	}
	return "", false
}
