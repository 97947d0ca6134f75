package entity

// Member is a person belonging to an organization
type Member struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	// Title is the free-text job title, e.g. "Warehouse Admin"
	Title string `json:"title"`
	// RoleClaim is an explicit approval role; it wins over Title when set
	RoleClaim  string `json:"role_claim,omitempty"`
	LarkOpenID string `json:"lark_open_id,omitempty"`
}

// Item is an inventory catalog entry
type Item struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Unit           string `json:"unit"`
}

// Warehouse is a fulfilment location
type Warehouse struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
}
