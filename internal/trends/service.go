// Package trends serves per-station price history backed by the daily
// dataset and a two-layer history cache.
package trends

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prix-carburants/backend-go/internal/cache"
	"github.com/prix-carburants/backend-go/internal/feed"
	"github.com/prix-carburants/backend-go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	maxTrendDays  = 30
	fetchParallel = 4
)

// ErrInvalidDays flags a days parameter outside the supported range. Callers
// map it to a client error rather than an upstream failure.
var ErrInvalidDays = fmt.Errorf("days must be between 1 and %d", maxTrendDays)

// DaySource returns the daily price snapshot for one station and date.
type DaySource interface {
	StationDay(ctx context.Context, stationID string, date time.Time) (*models.PriceRecord, error)
}

type Service struct {
	source  DaySource
	history *cache.HistoryCacheService
	now     func() time.Time
}

func NewService(source DaySource, history *cache.HistoryCacheService) *Service {
	return &Service{
		source:  source,
		history: history,
		now:     time.Now,
	}
}

// PriceHistory returns up to days of price records for a station, oldest
// first. Days absent from the daily dataset are simply missing from the
// result.
func (s *Service) PriceHistory(ctx context.Context, stationID string, days int) ([]models.PriceRecord, error) {
	if days <= 0 || days > maxTrendDays {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidDays, days)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)

	records := make([]*models.PriceRecord, days)
	var missing []int

	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -i)
		record, err := s.history.GetRecord(ctx, stationID, date)
		if err != nil {
			log.Warn().Err(err).Str("station_id", stationID).Str("date", date.Format("2006-01-02")).Msg("History cache lookup failed")
		}
		if record != nil {
			records[i] = record
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		if err := s.fetchMissing(ctx, stationID, today, missing, records); err != nil {
			return nil, err
		}
	}

	var out []models.PriceRecord
	for _, record := range records {
		if record != nil {
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Service) fetchMissing(ctx context.Context, stationID string, today time.Time, missing []int, records []*models.PriceRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallel)

	for _, idx := range missing {
		idx := idx
		g.Go(func() error {
			date := today.AddDate(0, 0, -idx)
			record, err := s.source.StationDay(gctx, stationID, date)
			if err != nil {
				return fmt.Errorf("fetching prices for %s: %w", date.Format("2006-01-02"), err)
			}
			records[idx] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var fetched []models.PriceRecord
	for _, idx := range missing {
		if records[idx] != nil {
			fetched = append(fetched, *records[idx])
		}
	}
	if len(fetched) > 0 {
		if err := s.history.SaveRecordsBatch(ctx, fetched); err != nil {
			log.Warn().Err(err).Str("station_id", stationID).Msg("History cache batch save failed")
		}
	}
	return nil
}

var _ DaySource = (*feed.Service)(nil)
