package records

// CredentialState is the state of a credential exchange.
type CredentialState string

const (
	CredentialProposalSent     CredentialState = "proposal-sent"
	CredentialProposalReceived CredentialState = "proposal-received"
	CredentialOfferSent        CredentialState = "offer-sent"
	CredentialOfferReceived    CredentialState = "offer-received"
	CredentialDeclined         CredentialState = "declined"
	CredentialRequestSent      CredentialState = "request-sent"
	CredentialRequestReceived  CredentialState = "request-received"
	CredentialIssued           CredentialState = "credential-issued"
	CredentialReceived         CredentialState = "credential-received"
	CredentialDone             CredentialState = "done"
	CredentialAbandoned        CredentialState = "abandoned"
)

// CredentialPreviewAttribute is one attribute of a credential preview.
type CredentialPreviewAttribute struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	MimeType string `json:"mimeType,omitempty" yaml:"mimeType,omitempty" mapstructure:"mimeType"`
	Value    string `json:"value" yaml:"value" mapstructure:"value"`
}

// CredentialExchangeRecord mirrors a credential exchange owned by the agent.
type CredentialExchangeRecord struct {
	Base                 `yaml:",inline" mapstructure:",squash"`
	State                CredentialState              `json:"state" yaml:"state" mapstructure:"state"`
	ConnectionID         string                       `json:"connectionId,omitempty" yaml:"connectionId,omitempty" mapstructure:"connectionId"`
	ThreadID             string                       `json:"threadId,omitempty" yaml:"threadId,omitempty" mapstructure:"threadId"`
	ProtocolVersion      string                       `json:"protocolVersion,omitempty" yaml:"protocolVersion,omitempty" mapstructure:"protocolVersion"`
	CredentialAttributes []CredentialPreviewAttribute `json:"credentialAttributes,omitempty" yaml:"credentialAttributes,omitempty" mapstructure:"credentialAttributes"`
}

func (c CredentialExchangeRecord) RecordState() string { return string(c.State) }
func (c CredentialExchangeRecord) RecordType() Type    { return TypeCredential }

// Clone returns a deep copy of the record.
func (c CredentialExchangeRecord) Clone() CredentialExchangeRecord {
	out := c
	out.Base = c.cloneBase()
	if c.CredentialAttributes != nil {
		out.CredentialAttributes = append([]CredentialPreviewAttribute(nil), c.CredentialAttributes...)
	}
	return out
}
