package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/victornm/ecoquest/internal/datetime"
	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/storage"
	"github.com/victornm/ecoquest/internal/telemetry"
)

// Sweep deletes every game whose date lies at least the expiry period in the
// past. It commits on its own before the caller's operation starts, so the
// caller never sees a swept game. Games with an unparseable date are kept.
func (s *Service) Sweep(ctx context.Context) error {
	now := s.now()

	var expired []int64
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		gs, err := tx.Games().List(ctx)
		if err != nil {
			return fmt.Errorf("list games: %w", err)
		}

		expired = expired[:0]
		for _, g := range gs {
			date, err := datetime.ParseDate(g.Date)
			if err != nil {
				slog.WarnContext(ctx, "game: sweep skipped game with invalid date",
					"game_id", g.GameID,
					"date", g.Date,
				)
				continue
			}
			if now.Sub(date) >= s.expiry {
				expired = append(expired, g.GameID)
			}
		}

		if len(expired) == 0 {
			return nil
		}
		return tx.Games().Delete(ctx, expired...)
	})
	if err != nil {
		return fmt.Errorf("game: sweep: %w", err)
	}

	if len(expired) == 0 {
		return nil
	}

	telemetry.ExpiredGames.Add(float64(len(expired)))
	slog.InfoContext(ctx, "game: swept expired games", "game_ids", expired)
	for _, id := range expired {
		s.eb.Publish(ctx, domain.EventGameDeleted{GameID: id, Expired: true})
	}
	return nil
}
