package cvrindeks

// SearchBody is an Elasticsearch-style query against the virksomhed index.
type SearchBody struct {
	From   int            `json:"from,omitempty"`
	Size   int            `json:"size"`
	Query  map[string]any `json:"query"`
	Source bool           `json:"_source"`
}

// TermQuery builds an exact CVR lookup body.
func TermQuery(cvr string) map[string]any {
	return map[string]any{
		"term": map[string]any{"Vrvirksomhed.cvrNummer": cvr},
	}
}

// NameQuery builds a name-prefix search body. The should clauses mirror what
// the index ranks well for partial company names.
func NameQuery(q string) map[string]any {
	return map[string]any{
		"bool": map[string]any{
			"should": []map[string]any{
				{"match_phrase_prefix": map[string]any{
					"Vrvirksomhed.virksomhedMetadata.nyesteNavn.navn": q,
				}},
				{"match": map[string]any{
					"Vrvirksomhed.virksomhedMetadata.nyesteNavn.navn": map[string]any{
						"query":    q,
						"operator": "and",
					},
				}},
			},
			"minimum_should_match": 1,
		},
	}
}

// SearchResponse is the hit envelope returned by the index.
type SearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

// Hit is a single search hit.
type Hit struct {
	Source HitSource `json:"_source"`
}

// HitSource wraps the virksomhed document. Some index versions nest the
// document under Vrvirksomhed, others inline it; Doc resolves either.
type HitSource struct {
	Vrvirksomhed *VirksomhedDoc `json:"Vrvirksomhed"`

	// Inline fallback for older index versions.
	VirksomhedDoc
}

// Doc returns the virksomhed document regardless of nesting.
func (s HitSource) Doc() *VirksomhedDoc {
	if s.Vrvirksomhed != nil {
		return s.Vrvirksomhed
	}
	return &s.VirksomhedDoc
}

// VirksomhedDoc is the upstream company document. Field names vary across
// endpoint versions, so consumers use the fallback accessors below instead
// of reading nested blocks directly.
type VirksomhedDoc struct {
	CVRNummer any `json:"cvrNummer"` // number in some versions, string in others

	VirksomhedMetadata *struct {
		NyesteNavn *struct {
			Navn string `json:"navn"`
		} `json:"nyesteNavn"`
		SammensatStatus           string `json:"sammensatStatus"`
		NyesteBeliggenhedsadresse *struct {
			Vejnavn      string `json:"vejnavn"`
			HusnummerFra int    `json:"husnummerFra"`
			Postnummer   int    `json:"postnummer"`
			Postdistrikt string `json:"postdistrikt"`
			Landekode    string `json:"landekode"`
		} `json:"nyesteBeliggenhedsadresse"`
		NyesteHovedbranche *struct {
			Branchekode  string `json:"branchekode"`
			Branchetekst string `json:"branchetekst"`
		} `json:"nyesteHovedbranche"`
	} `json:"virksomhedMetadata"`

	Navne []struct {
		Navn string `json:"navn"`
	} `json:"navne"`

	Virksomhedsstatus *struct {
		Status string `json:"status"`
	} `json:"virksomhedsstatus"`

	DeltagerRelation []struct {
		Deltager *struct {
			Navne []struct {
				Navn string `json:"navn"`
			} `json:"navne"`
		} `json:"deltager"`
		Organisationer []struct {
			Hovedtype string `json:"hovedtype"`
		} `json:"organisationer"`
	} `json:"deltagerRelation"`
}

// Announcement is one entry in the datacvr offentliggørelser feed.
type Announcement struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Date string `json:"dato"`
	URL  string `json:"url"`

	// Alternate field names used by older feed versions.
	AltID   string `json:"offentliggoerelsesId"`
	AltType string `json:"dokumenttype"`
	AltDate string `json:"offentliggoerelsesDato"`
	AltURL  string `json:"dokumentUrl"`
}

// AnnouncementFeed is the feed envelope. Some versions wrap entries in
// "offentliggoerelser", others in "items".
type AnnouncementFeed struct {
	Offentliggoerelser []Announcement `json:"offentliggoerelser"`
	Items              []Announcement `json:"items"`
}

// Entries returns the feed entries regardless of envelope version.
func (f AnnouncementFeed) Entries() []Announcement {
	if len(f.Offentliggoerelser) > 0 {
		return f.Offentliggoerelser
	}
	return f.Items
}

// AccountsFacts is the facts endpoint payload for one fiscal period. Values
// arrive as loosely typed JSON numbers or strings; alternate field names per
// endpoint version are resolved by the provider.
type AccountsFacts struct {
	Period struct {
		Start string `json:"start"`
		End   string `json:"end"`
		Year  int    `json:"year"`
	} `json:"period"`

	PL map[string]any `json:"pl"`
	BS map[string]any `json:"bs"`

	// Flat alternates used by the older facts endpoint.
	Flat map[string]any `json:"facts"`
}
