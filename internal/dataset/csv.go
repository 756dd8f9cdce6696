package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
)

// maxReportedErrors bounds ParseResult.Errors
const maxReportedErrors = 20

// ParseResult is a parsed CSV dataset plus row accounting
type ParseResult struct {
	Data    models.Dataset
	Total   int
	Skipped int
	Errors  []string
}

// ParseCSV reads a timestamp,value CSV. Column order is free and extra
// columns are ignored. Rows that cannot be parsed are skipped and counted;
// an error from the underlying reader aborts parsing.
func ParseCSV(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ParseResult{Data: models.Dataset{}}

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	headerMap := make(map[string]int)
	for i, h := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"timestamp", "value"} {
		if _, ok := headerMap[required]; !ok {
			return nil, fmt.Errorf("missing required csv header: %s", required)
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read csv: %w", err)
			}
		}
		result.Total++
		if err != nil {
			result.skip(fmt.Sprintf("csv read error at line %d: %v", result.Total+1, err))
			continue
		}

		sample, err := parseRecord(record, headerMap)
		if err != nil {
			result.skip(fmt.Sprintf("line %d: %v", result.Total+1, err))
			continue
		}
		result.Data = append(result.Data, sample)
	}

	return result, nil
}

func (r *ParseResult) skip(reason string) {
	r.Skipped++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, reason)
	}
}

func parseRecord(record []string, headerMap map[string]int) (models.Sample, error) {
	get := func(col string) string {
		if idx, ok := headerMap[col]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	ts := get("timestamp")
	if ts == "" {
		return models.Sample{}, fmt.Errorf("timestamp is empty")
	}

	valStr := get("value")
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return models.Sample{}, fmt.Errorf("invalid value format: %q", valStr)
	}

	return models.Sample{Timestamp: ts, Value: val}, nil
}
