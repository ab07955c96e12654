package app

import (
	"context"
	"fmt"

	"camembert-game-service/internal/domain"
)

// WinnerResolver ranks groups at game end. A "complete set" is one full pie:
// min(red, green) / WedgesPerCategory, so both colors have to contribute.
// Ties on complete sets break on raw total; anything still level is a
// genuine tie and every tied group is returned.
type WinnerResolver struct {
	gateway Gateway
	wedges  int
}

func NewWinnerResolver(gateway Gateway, rules Rules) *WinnerResolver {
	wedges := rules.WedgesPerCategory
	if wedges <= 0 {
		wedges = DefaultRules().WedgesPerCategory
	}
	return &WinnerResolver{gateway: gateway, wedges: wedges}
}

// Resolve is a pure read over persisted progress; it mutates nothing.
func (r *WinnerResolver) Resolve(ctx context.Context, sessionID int64) ([]domain.Winner, error) {
	snapshot, err := r.gateway.ProgressSnapshot(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read progress for session %d: %w", sessionID, err)
	}
	if len(snapshot) == 0 {
		return nil, nil
	}

	best := make([]domain.Winner, 0, 1)
	for _, entry := range snapshot {
		w := domain.Winner{
			GroupID:      entry.GroupID,
			GroupName:    entry.GroupName,
			CompleteSets: min(entry.Red, entry.Green) / r.wedges,
			Total:        entry.Red + entry.Green,
		}
		switch {
		case len(best) == 0:
			best = append(best, w)
		case w.CompleteSets > best[0].CompleteSets,
			w.CompleteSets == best[0].CompleteSets && w.Total > best[0].Total:
			best = append(best[:0], w)
		case w.CompleteSets == best[0].CompleteSets && w.Total == best[0].Total:
			best = append(best, w)
		}
	}
	return best, nil
}
