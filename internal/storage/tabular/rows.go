package tabular

import (
	"strconv"
	"strings"
	"time"

	"github.com/aristath/lotofacil/internal/domain"
)

var (
	drawsHeader       = []string{"draw_id", "draw_date", "numbers"}
	predictionsHeader = []string{"id", "combination", "occurred_before", "prediction_date"}
)

// isHeader recognises both the current header and the legacy Portuguese one
// (concurso, data, dezenas).
func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "draw_id" || first == "concurso" || first == "id"
}

// isDrawsHeader matches only the draws header, current or legacy.
func isDrawsHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "draw_id" || first == "concurso"
}

func drawToRow(d domain.DrawRecord) []string {
	return []string{strconv.Itoa(d.DrawID), d.DateString(), domain.FormatNumbers(d.Numbers)}
}

// carryOver holds stored cells that did not load cleanly. A rewrite puts them
// back as they were, so nothing the store could not read is lost.
type carryOver struct {
	rows  [][]string     // rows that never became draws, verbatim
	dates map[int]string // stored date text that did not parse, by draw_id
}

func collectCarryOver(stored [][]string) carryOver {
	c := carryOver{dates: map[int]string{}}
	for i, row := range stored {
		if i == 0 && isHeader(row) {
			continue
		}
		if blankRow(row) {
			continue
		}
		rec, dateErr, err := rowToDraw(row)
		if err != nil {
			c.rows = append(c.rows, row)
			continue
		}
		if dateErr != nil {
			c.dates[rec.DrawID] = row[1]
		}
	}
	return c
}

// drawRows renders merged followed by the carried rows. A carried row whose
// draw_id is now present in merged was superseded and is dropped.
func (c carryOver) drawRows(merged []domain.DrawRecord) [][]string {
	rows := make([][]string, 0, len(merged)+len(c.rows)+1)
	rows = append(rows, drawsHeader)

	ids := make(map[int]struct{}, len(merged))
	for _, d := range merged {
		ids[d.DrawID] = struct{}{}
		row := drawToRow(d)
		if raw, ok := c.dates[d.DrawID]; ok && d.DrawDate.IsZero() {
			row[1] = raw
		}
		rows = append(rows, row)
	}

	for _, row := range c.rows {
		if id, err := strconv.Atoi(strings.TrimSpace(row[0])); err == nil {
			if _, ok := ids[id]; ok {
				continue
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// rowToDraw parses one stored row. err is set for rows that cannot carry a
// draw at all; an unparsable date keeps the row with a zero date and reports
// dateErr.
func rowToDraw(row []string) (rec domain.DrawRecord, dateErr error, err error) {
	if len(row) < 3 {
		return rec, nil, errShortRow
	}
	id, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return rec, nil, err
	}
	numbers, err := domain.NormalizeNumbers(row[2])
	if err != nil {
		return rec, nil, err
	}
	rec = domain.DrawRecord{DrawID: id, Numbers: numbers}
	if date, derr := domain.ParseDrawDate(row[1]); derr == nil {
		rec.DrawDate = date
	} else {
		dateErr = derr
	}
	return rec, dateErr, nil
}

func predictionToRow(p domain.PredictionRecord) []string {
	return []string{
		p.ID,
		domain.FormatNumbers(p.Combination),
		strconv.FormatBool(p.OccurredBefore),
		p.PredictionDate.UTC().Format(time.RFC3339),
	}
}

func rowToPrediction(row []string) (domain.PredictionRecord, error) {
	if len(row) < 4 {
		return domain.PredictionRecord{}, errShortRow
	}
	numbers, err := domain.NormalizeNumbers(row[1])
	if err != nil {
		return domain.PredictionRecord{}, err
	}
	occurred, err := strconv.ParseBool(strings.TrimSpace(row[2]))
	if err != nil {
		return domain.PredictionRecord{}, err
	}
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(row[3]))
	if err != nil {
		return domain.PredictionRecord{}, err
	}
	return domain.PredictionRecord{
		ID:             row[0],
		Combination:    domain.Combination(numbers),
		OccurredBefore: occurred,
		PredictionDate: at,
	}, nil
}
