package models

// Payload is the type-specific input of a run. The set of implementations is closed:
// one per RunType.
type Payload interface {
	RunType() RunType
	isPayload()
}

type FindConnectionsPayload struct {
	Limit int `json:"limit,omitempty" validate:"gte=0"`
}

type DownloadConnectionsPayload struct{}

type FindCompanyPeoplePayload struct {
	CompanyName string `json:"companyName,omitempty"`
	CompanyURL  string `json:"companyUrl"            validate:"required,url"`
	Limit       int    `json:"limit,omitempty"       validate:"gte=0"`
}

type SendConnectionRequestPayload struct {
	ProfileURL string `json:"profileUrl"        validate:"required,url"`
	Message    string `json:"message,omitempty" validate:"max=300"`
}

type SendMessagePayload struct {
	ProfileURL string `json:"profileUrl" validate:"required,url"`
	Message    string `json:"message"    validate:"required"`
}

func (FindConnectionsPayload) RunType() RunType       { return RunTypeFindConnections }
func (DownloadConnectionsPayload) RunType() RunType   { return RunTypeDownloadConnections }
func (FindCompanyPeoplePayload) RunType() RunType     { return RunTypeFindCompanyPeople }
func (SendConnectionRequestPayload) RunType() RunType { return RunTypeSendConnectionRequest }
func (SendMessagePayload) RunType() RunType           { return RunTypeSendMessage }

func (FindConnectionsPayload) isPayload()       {}
func (DownloadConnectionsPayload) isPayload()   {}
func (FindCompanyPeoplePayload) isPayload()     {}
func (SendConnectionRequestPayload) isPayload() {}
func (SendMessagePayload) isPayload()           {}

// LinkedInConnection is a first-degree connection returned by the connection scrapers.
type LinkedInConnection struct {
	ProfileURL  string `json:"profileUrl"`
	FullName    string `json:"fullName,omitempty"`
	Headline    string `json:"headline,omitempty"`
	ConnectedAt string `json:"connectedAt,omitempty"`
}

// LinkedInProfile is a person found on a company's people page.
type LinkedInProfile struct {
	ProfileURL string `json:"profileUrl"`
	FullName   string `json:"fullName,omitempty"`
	Title      string `json:"title,omitempty"`
	Location   string `json:"location,omitempty"`
}

type InviteResult struct {
	ProfileURL string `json:"profileUrl"`
	Sent       bool   `json:"sent"`
	Pending    bool   `json:"pending,omitempty"`
}

type MessageResult struct {
	ProfileURL string `json:"profileUrl"`
	Delivered  bool   `json:"delivered"`
	ThreadURL  string `json:"threadUrl,omitempty"`
}
