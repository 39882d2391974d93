package model

import "time"

// CredentialServiceBPS is the credential store key for the BPS WebAPI token.
const CredentialServiceBPS = "bps"

// Credential is a stored secret for an external service. Value is plaintext at
// the domain boundary; the storage adapter encrypts it at rest.
type Credential struct {
	ID        int64
	Service   string
	Value     string
	UpdatedAt time.Time
}

// MaskedValue returns the credential with all but its last four characters hidden.
func (c Credential) MaskedValue() string {
	if len(c.Value) <= 4 {
		return "****"
	}
	return "****" + c.Value[len(c.Value)-4:]
}
