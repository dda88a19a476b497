// Package secret adapts externally supplied certificate descriptors
// into the internal certificate-config form consumed by TLS setup.
package secret

// TLSCertificateDescriptor is the external shape of a TLS certificate
// secret: PEM sources for the chain and key, plus an optional key
// passphrase source.
type TLSCertificateDescriptor struct {
	Name             string
	CertificateChain string
	PrivateKey       string
	Password         string
}

// TLSCertificateConfig is the internal certificate configuration. It
// is populated once from a descriptor and never mutated afterwards.
type TLSCertificateConfig struct {
	name             string
	certificateChain string
	privateKey       string
	password         string
}

func (c *TLSCertificateConfig) Name() string             { return c.name }
func (c *TLSCertificateConfig) CertificateChain() string { return c.certificateChain }
func (c *TLSCertificateConfig) PrivateKey() string       { return c.privateKey }
func (c *TLSCertificateConfig) Password() string         { return c.password }

// TLSCertificateConfigProvider exposes a certificate config built from
// a descriptor at construction time.
type TLSCertificateConfigProvider struct {
	config *TLSCertificateConfig
}

// NewTLSCertificateConfigProvider copies the descriptor into an
// internal config and returns a provider exposing it unchanged.
func NewTLSCertificateConfigProvider(desc TLSCertificateDescriptor) *TLSCertificateConfigProvider {
	return &TLSCertificateConfigProvider{
		config: &TLSCertificateConfig{
			name:             desc.Name,
			certificateChain: desc.CertificateChain,
			privateKey:       desc.PrivateKey,
			password:         desc.Password,
		},
	}
}

// Secret returns the certificate config captured at construction.
func (p *TLSCertificateConfigProvider) Secret() *TLSCertificateConfig {
	return p.config
}
