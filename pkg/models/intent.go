package models

import "strings"

// Facet names, also used as the stored query type.
const (
	FacetChats       = "chats"
	FacetCalls       = "calls"
	FacetContacts    = "contacts"
	FacetMedia       = "media"
	FacetEntities    = "entities"
	FacetConnections = "connections"
)

// ConnectionParams are identifiers quoted in the query that seed connection lookups.
type ConnectionParams struct {
	PhoneNumbers    []string `json:"phoneNumbers,omitempty"`
	CryptoAddresses []string `json:"cryptoAddresses,omitempty"`
}

// IsEmpty reports whether no identifiers were extracted.
func (p ConnectionParams) IsEmpty() bool {
	return len(p.PhoneNumbers) == 0 && len(p.CryptoAddresses) == 0
}

// Intent is the set of facets a query asks about.
type Intent struct {
	SearchChats      bool             `json:"searchChats"`
	SearchCalls      bool             `json:"searchCalls"`
	SearchContacts   bool             `json:"searchContacts"`
	SearchMedia      bool             `json:"searchMedia"`
	FindEntities     bool             `json:"findEntities"`
	FindConnections  bool             `json:"findConnections"`
	ConnectionParams ConnectionParams `json:"connectionParams"`
}

// Facets returns the enabled facet names in canonical order.
func (i Intent) Facets() []string {
	var facets []string
	if i.SearchChats {
		facets = append(facets, FacetChats)
	}
	if i.SearchCalls {
		facets = append(facets, FacetCalls)
	}
	if i.SearchContacts {
		facets = append(facets, FacetContacts)
	}
	if i.SearchMedia {
		facets = append(facets, FacetMedia)
	}
	if i.FindEntities {
		facets = append(facets, FacetEntities)
	}
	if i.FindConnections {
		facets = append(facets, FacetConnections)
	}
	return facets
}

// QueryType is the stored classification label: enabled facets joined by commas, or "general".
func (i Intent) QueryType() string {
	facets := i.Facets()
	if len(facets) == 0 {
		return "general"
	}
	return strings.Join(facets, ",")
}
