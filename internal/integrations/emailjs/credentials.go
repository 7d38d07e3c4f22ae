package emailjs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"portfolio-site/internal/integrations/paramstore"
)

// Credentials identify the EmailJS service, template and account. PrivateKey
// is only needed when the account requires it for non-browser calls.
type Credentials struct {
	ServiceID  string `json:"service_id"`
	TemplateID string `json:"template_id"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key,omitempty"`
}

type CredentialsProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ServiceID) == "" {
		missing = append(missing, "service_id")
	}
	if strings.TrimSpace(c.TemplateID) == "" {
		missing = append(missing, "template_id")
	}
	if strings.TrimSpace(c.PublicKey) == "" {
		missing = append(missing, "public_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("emailjs: missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Credentials lets a fixed Credentials value act as its own provider.
func (c Credentials) Credentials(context.Context) (Credentials, error) {
	return c, c.Validate()
}

// ParamCredentials loads Credentials from a JSON parameter on first use. A
// failed load is retried on the next call.
type ParamCredentials struct {
	getter paramstore.Getter
	name   string

	mu     sync.Mutex
	loaded bool
	creds  Credentials
}

func NewParamCredentials(g paramstore.Getter, name string) (*ParamCredentials, error) {
	if g == nil {
		return nil, errors.New("emailjs: paramstore getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("emailjs: credentials parameter name must not be empty")
	}
	return &ParamCredentials{getter: g, name: name}, nil
}

func (p *ParamCredentials) Credentials(ctx context.Context) (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.creds, nil
	}

	var creds Credentials
	if err := paramstore.GetJSON(ctx, p.getter, p.name, &creds); err != nil {
		return Credentials{}, fmt.Errorf("emailjs: load credentials: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	p.creds = creds
	p.loaded = true
	return creds, nil
}
