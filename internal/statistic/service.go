// Package statistic records finished games and exports them as a workbook.
package statistic

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/victornm/ecoquest/internal/datetime"
	"github.com/victornm/ecoquest/internal/domain"
	"github.com/victornm/ecoquest/internal/errors"
	"github.com/victornm/ecoquest/internal/filestore"
	"github.com/victornm/ecoquest/internal/spreadsheet"
	"github.com/victornm/ecoquest/internal/storage"
)

// ExportPattern matches every statistics workbook a previous export left.
var ExportPattern = regexp.MustCompile(`^statistics.*\.xlsx$`)

type Config struct {
	Store storage.Store
	Files *filestore.Store
}

type Service struct {
	store storage.Store
	files *filestore.Store
}

func NewService(c Config) *Service {
	return &Service{store: c.Store, files: c.Files}
}

type CreateRequest struct {
	UserID   int64  `json:"userId"`
	Date     string `json:"date"`
	Duration string `json:"duration"`
	Results  string `json:"results"`
}

// Create records a finished game hosted by an active master. The host's names
// are copied into the record.
func (s *Service) Create(ctx context.Context, req CreateRequest) (int64, error) {
	switch {
	case req.Date == "":
		return 0, errors.InvalidInput("game date is required")
	case req.Duration == "":
		return 0, errors.InvalidInput("game duration is required")
	case req.Results == "":
		return 0, errors.InvalidInput("game results are required")
	}
	if _, err := datetime.ParseDate(req.Date); err != nil {
		return 0, errors.InvalidInput("game date %q has an invalid format", req.Date)
	}
	if _, err := datetime.ParseDuration(req.Duration); err != nil {
		return 0, errors.InvalidInput("game duration %q has an invalid format", req.Duration)
	}
	if !json.Valid([]byte(req.Results)) {
		return 0, errors.InvalidInput("game results are not valid JSON")
	}

	rec := domain.Statistic{
		UserID:   req.UserID,
		Date:     req.Date,
		Duration: req.Duration,
		Results:  req.Results,
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		u, err := tx.Users().Get(ctx, req.UserID)
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("user %d not found", req.UserID)
		}
		if err != nil {
			return fmt.Errorf("get user %d: %w", req.UserID, err)
		}
		if !u.IsActiveMaster() {
			return errors.InvalidInput("user %d is not an active master", req.UserID)
		}

		rec.LastName, rec.FirstName, rec.Patronymic, rec.Login = u.LastName, u.FirstName, u.Patronymic, u.Login
		return tx.Statistics().Create(ctx, &rec)
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "statistic: recorded", "record_id", rec.RecordID, "user_id", rec.UserID)
	return rec.RecordID, nil
}

// ExportRequest bounds the exported records by date and duration. A bound
// that does not parse is replaced by the smallest or largest value present.
type ExportRequest struct {
	FileName      string `json:"fileName"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	StartDuration string `json:"startDuration"`
	EndDuration   string `json:"endDuration"`
}

type record struct {
	domain.Statistic
	date     time.Time
	duration time.Duration
}

// Export writes the records within the requested bounds to {FileName}.xlsx,
// one row per player, and returns the name of the written file.
func (s *Service) Export(ctx context.Context, req ExportRequest) (string, error) {
	if req.FileName == "" {
		return "", errors.InvalidInput("file name is required")
	}
	if strings.ContainsAny(req.FileName, `/\`) {
		return "", errors.InvalidInput("file name %q is not allowed", req.FileName)
	}

	var all []domain.Statistic
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) (err error) {
		all, err = tx.Statistics().List(ctx)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("list statistics: %w", err)
	}

	recs := make([]record, 0, len(all))
	for _, st := range all {
		date, err := datetime.ParseDate(st.Date)
		if err != nil {
			slog.WarnContext(ctx, "statistic: export skipped record with invalid date", "record_id", st.RecordID, "date", st.Date)
			continue
		}
		d, err := datetime.ParseDuration(st.Duration)
		if err != nil {
			slog.WarnContext(ctx, "statistic: export skipped record with invalid duration", "record_id", st.RecordID, "duration", st.Duration)
			continue
		}
		recs = append(recs, record{Statistic: st, date: date, duration: d})
	}

	b := bounds(recs, req)
	if b.startDate.After(b.endDate) {
		return "", errors.InvalidInput("start date is after end date")
	}
	if b.startDuration > b.endDuration {
		return "", errors.InvalidInput("start duration is greater than end duration")
	}

	recs = slices.DeleteFunc(recs, func(r record) bool {
		return r.date.Before(b.startDate) || r.date.After(b.endDate) ||
			r.duration < b.startDuration || r.duration > b.endDuration
	})
	slices.SortStableFunc(recs, func(a, b record) int {
		if c := a.date.Compare(b.date); c != 0 {
			return c
		}
		return cmp.Compare(a.duration, b.duration)
	})

	rows := make([]spreadsheet.StatisticRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, expand(ctx, r.Statistic)...)
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteStatistics(&buf, rows); err != nil {
		return "", err
	}

	name := req.FileName + ".xlsx"
	if err := s.files.Replace(name, ExportPattern, &buf); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "statistic: exported", "file", name, "records", len(recs), "rows", len(rows))
	return name, nil
}

type window struct {
	startDate, endDate         time.Time
	startDuration, endDuration time.Duration
}

func bounds(recs []record, req ExportRequest) window {
	var w window
	for i, r := range recs {
		if i == 0 || r.date.Before(w.startDate) {
			w.startDate = r.date
		}
		if i == 0 || r.date.After(w.endDate) {
			w.endDate = r.date
		}
		if i == 0 || r.duration < w.startDuration {
			w.startDuration = r.duration
		}
		if i == 0 || r.duration > w.endDuration {
			w.endDuration = r.duration
		}
	}

	if t, err := datetime.ParseDate(req.StartDate); err == nil {
		w.startDate = t
	}
	if t, err := datetime.ParseDate(req.EndDate); err == nil {
		w.endDate = t
	}
	if d, err := datetime.ParseDuration(req.StartDuration); err == nil {
		w.startDuration = d
	}
	if d, err := datetime.ParseDuration(req.EndDuration); err == nil {
		w.endDuration = d
	}
	return w
}

// expand turns a record into one row per player of every team.
func expand(ctx context.Context, st domain.Statistic) []spreadsheet.StatisticRow {
	var res domain.StatisticResults
	if err := json.Unmarshal([]byte(st.Results), &res); err != nil {
		slog.WarnContext(ctx, "statistic: export skipped record with invalid results", "record_id", st.RecordID, "error", err)
		return nil
	}

	host := strings.Join([]string{st.LastName, st.FirstName, st.Patronymic}, " ")

	var rows []spreadsheet.StatisticRow
	for _, team := range res.Teams {
		var name string
		if team.Name != nil {
			name = *team.Name
		}
		for _, player := range team.Players {
			rows = append(rows, spreadsheet.StatisticRow{
				RecordID: st.RecordID,
				Date:     st.Date,
				Duration: st.Duration,
				Host:     host,
				Login:    st.Login,
				Team:     name,
				Player:   player,
				Score:    team.Score,
				Place:    team.Place,
			})
		}
	}
	return rows
}
