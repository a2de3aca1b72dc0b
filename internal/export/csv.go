// Package export materializes batch results into tabular artifacts:
// a wide CSV (one row per record, one column per response field) and an
// optional parquet archive.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	model "github.com/tigerroll/swell/internal/core/domain/model"
	"github.com/tigerroll/swell/internal/jsonutil"
)

// BuildCSV generates a wide-format CSV from result rows: one row per record,
// one column per flattened response field. Nested objects are flattened with
// dot notation (e.g., surgeryRelatedDetails.primaryProcedure), which allows
// direct joins to analytical datasets. Rows that carry an error instead of a
// response contribute an "error" column holding the message. Columns are
// sorted lexicographically so output is deterministic; JSON-Schema metadata
// keys never become columns.
func BuildCSV(results []model.ResultRow, recordIDField string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	type flatResult struct {
		recordID string
		fields   map[string]interface{}
	}

	flattened := make([]flatResult, 0, len(results))
	allFields := make(map[string]struct{})

	for _, result := range results {
		var fields map[string]interface{}
		switch {
		case result.Response != nil:
			fields = jsonutil.Flatten(result.Response)
		case result.Error != "":
			fields = map[string]interface{}{"error": result.Error}
		default:
			fields = map[string]interface{}{}
		}

		for name := range fields {
			if !jsonutil.IsSchemaMetadataKey(name) {
				allFields[name] = struct{}{}
			}
		}

		flattened = append(flattened, flatResult{
			recordID: result.RecordID,
			fields:   fields,
		})
	}

	sortedFields := make([]string, 0, len(allFields))
	for name := range allFields {
		sortedFields = append(sortedFields, name)
	}
	sort.Strings(sortedFields)

	if recordIDField == "" {
		recordIDField = "Record ID"
	}
	header := append([]string{recordIDField}, sortedFields...)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range flattened {
		row := make([]string, 0, len(header))
		row = append(row, result.recordID)

		for _, name := range sortedFields {
			value, ok := result.fields[name]
			if !ok || value == nil {
				row = append(row, "")
				continue
			}
			row = append(row, stringifyValue(value))
		}

		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row for record '%s': %w", result.recordID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.String(), nil
}

// BuildHistorySummaryCSV generates a summary CSV over execution histories,
// one row per batch's last run.
func BuildHistorySummaryCSV(histories []*model.ExecutionHistory) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Batch", "Dataset", "Total Records", "Success Count", "Error Count", "Execution Time (s)", "Executed At"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, h := range histories {
		row := []string{
			h.BatchName,
			h.DatasetName,
			fmt.Sprintf("%d", h.TotalRecords),
			fmt.Sprintf("%d", h.SuccessCount),
			fmt.Sprintf("%d", h.ErrorCount),
			fmt.Sprintf("%.2f", h.ExecutionTime),
			h.ExecutedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row for batch '%s': %w", h.BatchID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.String(), nil
}

// stringifyValue converts a flattened field value to its CSV representation.
func stringifyValue(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	if b, ok := value.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%v", value)
}
