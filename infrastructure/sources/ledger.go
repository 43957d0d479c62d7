package sources

import (
	"context"
	"fmt"

	"pc28/domain/entities"
)

// LedgerPriority keeps the local fallback behind every remote provider
const LedgerPriority = 99

// RecentDrawReader reads the newest ledger rows
type RecentDrawReader interface {
	GetRecent(ctx context.Context, limit int) ([]*entities.DrawResult, error)
}

// LedgerSource replays the ledger's newest rows. It can only ever return
// issues the ledger already holds.
type LedgerSource struct {
	desc  entities.SourceDescriptor
	draws RecentDrawReader
}

// NewLedgerSource creates the local fallback adapter
func NewLedgerSource(name string, enabled bool, draws RecentDrawReader) *LedgerSource {
	return &LedgerSource{
		desc: entities.SourceDescriptor{
			Name:     name,
			Priority: LedgerPriority,
			Enabled:  enabled,
		},
		draws: draws,
	}
}

// Descriptor returns the adapter's static identity
func (s *LedgerSource) Descriptor() entities.SourceDescriptor {
	return s.desc
}

// FetchLatest returns the two newest ledger rows, newest first
func (s *LedgerSource) FetchLatest(ctx context.Context) ([]entities.DrawItem, error) {
	draws, err := s.draws.GetRecent(ctx, 2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.desc.Name, err)
	}

	items := make([]entities.DrawItem, 0, len(draws))
	for _, d := range draws {
		items = append(items, entities.DrawItem{
			Issue:    d.Issue,
			Digits:   d.Digits,
			Sum:      d.Sum,
			DrawTime: d.DrawTime,
		})
	}
	return items, nil
}
