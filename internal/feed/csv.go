// Package feed parses the tabular feeds published by schedule and score
// providers into field-keyed records.
package feed

import (
	"bufio"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"nflpickem/ingestion/internal/models"
)

const bom = "\ufeff"

// Record is one feed row keyed by lower-cased header name.
type Record map[string]string

// Pick returns the first alias present in the record with a non-blank value.
func (r Record) Pick(aliases ...string) string {
	for _, alias := range aliases {
		if v := strings.TrimSpace(r[alias]); v != "" {
			return v
		}
	}
	return ""
}

// ParseCSV parses CSV text with a header row into records.
func ParseCSV(text string) []Record {
	return ParseCSVReader(strings.NewReader(text))
}

// ParseCSVReader parses CSV from r. It never fails: each physical line is
// parsed on its own so a malformed line drops only itself, and a read error
// ends the input. Quoted fields cannot span lines.
func ParseCSVReader(r io.Reader) []Record {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	records := []Record{}
	var header []string
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		fields, ok := parseLine(line)
		if !ok || blank(fields) {
			continue
		}

		if header == nil {
			header = make([]string, len(fields))
			for i, h := range fields {
				header[i] = strings.ToLower(strings.TrimSpace(h))
			}
			continue
		}

		rec := make(Record, len(header))
		for i, name := range header {
			if i < len(fields) {
				rec[name] = strings.TrimSpace(fields[i])
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}

	return records
}

// maxLineBytes bounds a single feed line.
const maxLineBytes = 4 << 20

func parseLine(line string) ([]string, bool) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	fields, err := reader.Read()
	if err != nil {
		return nil, false
	}
	return fields, true
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// CanonicalHeader is the column order of the canonical schedule CSV.
var CanonicalHeader = []string{"season", "week", "kickoff", "home", "away", "is_tiebreaker"}

// WriteCanonicalCSV writes rows in the canonical schedule shape.
func WriteCanonicalCSV(w io.Writer, rows []models.ScheduleRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CanonicalHeader); err != nil {
		return err
	}
	for _, row := range rows {
		kickoff := ""
		if t := row.KickoffAt(); t != nil {
			kickoff = t.UTC().Format(time.RFC3339)
		}
		rec := []string{
			strconv.Itoa(row.Season),
			strconv.Itoa(row.Week),
			kickoff,
			row.Home,
			row.Away,
			strconv.FormatBool(row.IsTiebreaker),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
