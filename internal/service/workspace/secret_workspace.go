package workspace

import (
	"context"
	"fmt"

	"bizdesk/internal/reveal"
)

// Secret kinds addressable through reveal.FieldKey.
const (
	KindAccount = "account"
	KindPortal  = "portal"
)

// ResolveSecret returns the clear text behind a field key such as
// "account:a1:password" or "portal:gov2:username".
func (s *Service) ResolveSecret(ctx context.Context, fieldKey string) (string, error) {
	kind, id, field, err := reveal.ParseFieldKey(fieldKey)
	if err != nil {
		return "", err
	}
	switch kind {
	case KindAccount:
		a, err := s.GetAccount(ctx, id)
		if err != nil {
			return "", err
		}
		switch field {
		case "account_number":
			return a.AccountNumber, nil
		case "routing_number":
			return a.RoutingNumber, nil
		case "username":
			return a.Username, nil
		case "password":
			return a.Password, nil
		}
	case KindPortal:
		p, err := s.GetPortal(ctx, id)
		if err != nil {
			return "", err
		}
		switch field {
		case "username":
			return p.Username, nil
		case "password":
			return p.Password, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownSecret, fieldKey)
}
