// Package export renders the log collection for download.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/imxin/internal/ruler"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat resolves a format name. The empty string means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q (must be json or csv)", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Filename returns the download name for an export taken on day.
func (f Format) Filename(day time.Time) string {
	return fmt.Sprintf("imxin-logs-%s.%s", day.Format("2006-01-02"), f)
}

// Render encodes logs in format f.
func Render(f Format, logs []ruler.LogEntry) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(logs)
	case FormatCSV:
		return CSV(logs)
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

// JSON writes logs as an indented array, exactly as stored.
func JSON(logs []ruler.LogEntry) ([]byte, error) {
	if logs == nil {
		logs = []ruler.LogEntry{}
	}
	data, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode logs: %w", err)
	}
	return data, nil
}

// CSVHeader is the first row of a CSV export.
var CSVHeader = []string{
	"timestamp", "emotions", "quadrants", "intensity",
	"body_location", "body_sensation",
	"trigger", "what", "who", "where", "need",
	"expression", "prompt", "mode",
	"strategies", "post_mood", "full_flow",
}

// listSep joins multi-valued cells.
const listSep = "|"

// CSV writes one row per entry under CSVHeader. Absent payloads leave
// their cells empty.
func CSV(logs []ruler.LogEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	for _, e := range logs {
		if err := w.Write(row(e)); err != nil {
			return nil, fmt.Errorf("write CSV row %s: %w", e.Timestamp, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func row(e ruler.LogEntry) []string {
	names := make([]string, 0, len(e.Emotions))
	var quadrants []string
	seen := make(map[string]bool)
	for _, em := range e.Emotions {
		names = append(names, em.Name)
		if q := string(em.Quadrant); q != "" && !seen[q] {
			seen[q] = true
			quadrants = append(quadrants, q)
		}
	}

	r := make([]string, len(CSVHeader))
	r[0] = e.Timestamp
	r[1] = strings.Join(names, listSep)
	r[2] = strings.Join(quadrants, listSep)
	r[3] = strconv.Itoa(e.Intensity)
	if b := e.BodyScan; b != nil {
		r[4], r[5] = b.Location, b.Sensation
	}
	if u := e.Understanding; u != nil {
		r[6], r[7], r[8], r[9] = u.Trigger, u.What, u.Who, u.Where
		if u.Need != nil {
			r[10] = *u.Need
		}
	}
	if x := e.Expressing; x != nil {
		r[11], r[12], r[13] = x.Expression, x.Prompt, x.Mode
	}
	if g := e.Regulating; g != nil {
		r[14] = strings.Join(g.SelectedStrategies, listSep)
	}
	r[15] = e.PostMood
	r[16] = strconv.FormatBool(e.IsFullFlow)
	return r
}
