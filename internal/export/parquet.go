package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	model "github.com/tigerroll/swell/internal/core/domain/model"
)

// archiveRecord is the parquet row layout for archived result rows.
// Responses vary per batch, so the parsed object is stored as a JSON string.
type archiveRecord struct {
	RecordID string `parquet:"name=record_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Response string `parquet:"name=response, type=BYTE_ARRAY, convertedtype=UTF8"`
	Error    string `parquet:"name=error, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// BuildParquet serializes result rows into a snappy-compressed parquet file
// in memory, for archival alongside the CSV export.
func BuildParquet(results []model.ResultRow) ([]byte, error) {
	buf := new(bytes.Buffer)

	pw, err := writer.NewParquetWriterFromWriter(buf, new(archiveRecord), int64(len(results))+1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, result := range results {
		var response string
		if result.Response != nil {
			b, err := json.Marshal(result.Response)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal response for record '%s': %w", result.RecordID, err)
			}
			response = string(b)
		}

		rec := archiveRecord{
			RecordID: result.RecordID,
			Response: response,
			Error:    result.Error,
		}
		if err := pw.Write(rec); err != nil {
			return nil, fmt.Errorf("failed to write parquet row for record '%s': %w", result.RecordID, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf.Bytes(), nil
}
