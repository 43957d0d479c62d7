package sources

import (
	"fmt"

	"pc28/config"
	"pc28/domain/interfaces"
)

// NewFromConfig builds one adapter per configured source
func NewFromConfig(cfgs []config.SourceConfig, draws RecentDrawReader) ([]interfaces.SourceAdapter, error) {
	adapters := make([]interfaces.SourceAdapter, 0, len(cfgs))
	for _, c := range cfgs {
		switch c.Kind {
		case config.SourceKindUSA28:
			adapters = append(adapters, NewUSA28Source(c.Name, c.Priority, c.Enabled, c.URL, c.Timeout()))
		case config.SourceKindJND28:
			adapters = append(adapters, NewJND28Source(c.Name, c.Priority, c.Enabled, c.URL, c.Timeout()))
		case config.SourceKindLedger:
			if draws == nil {
				return nil, fmt.Errorf("source %q needs a ledger reader", c.Name)
			}
			adapters = append(adapters, NewLedgerSource(c.Name, c.Enabled, draws))
		default:
			return nil, fmt.Errorf("source %q has unknown kind %q", c.Name, c.Kind)
		}
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no draw sources configured")
	}
	return adapters, nil
}
