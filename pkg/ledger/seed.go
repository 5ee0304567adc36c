package ledger

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/concilia/pkg/errors"
)

// DefaultSeed returns the clients injected into every loaded state.
func DefaultSeed() []Client {
	return []Client{
		{ID: "1", Name: "Angelita Avanci De Oliveira", BillingStart: YearMonth{Year: 2025, Month: 3}},
		{ID: "2", Name: "Rafael Rodrigues Silva", BillingStart: YearMonth{Year: 2024, Month: 1}},
		{ID: "3", Name: "Emptech Máquinas De Manutenção Eireli", BillingStart: YearMonth{Year: 2023, Month: 11}},
	}
}

type seedFile struct {
	Clients []Client `yaml:"clients"`
}

// LoadSeedFile reads a seed list from a YAML file of the form
//
//	clients:
//	  - id: "1"
//	    name: Acme
//	    billing_start: 2024-01
func LoadSeedFile(path string) ([]Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return ParseSeed(data, path)
}

// ParseSeed decodes a YAML seed list. file is only used in error messages.
func ParseSeed(data []byte, file string) ([]Client, error) {
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, errors.WrapParse("yaml", file, err)
	}
	seen := make(map[string]struct{}, len(sf.Clients))
	for _, c := range sf.Clients {
		if c.ID == "" || c.Name == "" || c.BillingStart.IsZero() {
			return nil, errors.NewValidationError("clients", c.ID, "seed clients need id, name and billing_start")
		}
		if _, dup := seen[c.ID]; dup {
			return nil, errors.NewValidationError("clients", c.ID, "duplicate seed client id")
		}
		seen[c.ID] = struct{}{}
	}
	return sf.Clients, nil
}
