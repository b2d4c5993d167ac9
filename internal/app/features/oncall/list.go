// internal/app/features/oncall/list.go
package oncall

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/dateutil"
	"github.com/dalemusser/residencyhub/internal/app/system/formutil"
	"github.com/dalemusser/residencyhub/internal/app/system/jsonutil"
	"github.com/dalemusser/residencyhub/internal/app/system/timeouts"
	"github.com/dalemusser/residencyhub/internal/domain/models"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// defaultSpan is the number of days shown when the caller gives no "to".
const defaultSpan = 14

// period reads ?from=&to=&resident=. It answers 400 and returns ok=false
// when a parameter is malformed.
func (h *Handler) period(w http.ResponseWriter, r *http.Request) (from, to time.Time, resident *primitive.ObjectID, ok bool) {
	from, to, err := formutil.DateRange(r, h.OnCall.Location(), defaultSpan)
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return from, to, nil, false
	}
	if resident, err = formutil.OptionalObjectID(r, "resident"); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, err.Error())
		return from, to, nil, false
	}
	return from, to, resident, true
}

func (h *Handler) load(ctx context.Context, from, to time.Time, resident *primitive.ObjectID) ([]models.OnCallDay, error) {
	if resident != nil {
		return h.OnCall.ListForResident(ctx, *resident, from, to)
	}
	return h.OnCall.ListRange(ctx, from, to)
}

// ServeList handles GET /api/oncall?from=&to=&resident=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	from, to, resident, ok := h.period(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "oncall.list")
	defer cancel()

	days, err := h.load(ctx, from, to, resident)
	if err != nil {
		h.fail(w, r, "list on-call", err)
		return
	}
	loc := h.OnCall.Location()
	jsonutil.OK(w, map[string]any{
		"from":     dateutil.Key(from, loc),
		"to":       dateutil.Key(dateutil.AddDays(to, -1, loc), loc),
		"stations": h.OnCall.Stations(),
		"days":     days,
	})
}

// ServeExport handles GET /api/oncall/export.xlsx?from=&to=. The workbook
// has one row per date in the range and one column per station.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	from, to, resident, ok := h.period(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "oncall.export")
	defer cancel()

	days, err := h.load(ctx, from, to, resident)
	if err != nil {
		h.fail(w, r, "export on-call", err)
		return
	}

	loc := h.OnCall.Location()
	f, err := Workbook(h.OnCall.Stations(), days, from, to, loc)
	if err != nil {
		h.fail(w, r, "export on-call", err)
		return
	}
	defer f.Close()

	name := fmt.Sprintf("oncall-%s_%s.xlsx", dateutil.Key(from, loc), dateutil.Key(dateutil.AddDays(to, -1, loc), loc))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	if err := f.Write(w); err != nil {
		h.Log.Warn("write on-call workbook failed", zap.Error(err))
	}
}

const sheetName = "On-call"

// Workbook lays out days as a grid: column A holds the date, then one column
// per station. Every date in [from, to) gets a row, empty or not.
func Workbook(stations []string, days []models.OnCallDay, from, to time.Time, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		f.Close()
		return nil, err
	}

	col := make(map[string]int, len(stations))
	header := make([]any, 0, len(stations)+1)
	header = append(header, "Date")
	for i, st := range stations {
		col[st] = i + 2
		header = append(header, st)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheetName, 1, 1, style)
	}

	byKey := make(map[string]models.OnCallDay, len(days))
	for _, d := range days {
		byKey[d.DateKey] = d
	}

	row := 2
	for day := from; day.Before(to); day = dateutil.AddDays(day, 1, loc) {
		key := dateutil.Key(day, loc)
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheetName, cell, key); err != nil {
			f.Close()
			return nil, err
		}
		for _, sh := range byKey[key].Shifts {
			c, ok := col[sh.Station]
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c, row)
			if err := f.SetCellValue(sheetName, cell, sh.ResidentName); err != nil {
				f.Close()
				return nil, err
			}
		}
		row++
	}

	last, _ := excelize.ColumnNumberToName(len(stations) + 1)
	_ = f.SetColWidth(sheetName, "A", "A", 12)
	if len(stations) > 0 {
		_ = f.SetColWidth(sheetName, "B", last, 24)
	}
	return f, nil
}
