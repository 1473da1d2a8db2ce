// Package export writes scan indexes to interchange formats for analysis
// tooling.
package export

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/DocOtak/ad2cp-index/pkg/ad2cp"
)

// IndexRow is one index entry in the Parquet schema.
type IndexRow struct {
	Offset uint64 `parquet:"offset"`
	Length uint32 `parquet:"length"`
	ID     int32  `parquet:"id"`
}

// Metadata keys attached to exported files.
const (
	MetaBrokenEnd    = "broken_end"
	MetaSkippedBytes = "skipped_bytes"
)

const writeBatch = 1024

// WriteParquet writes the scan result as a Parquet table with one row per
// indexed record. BrokenEnd and the resync skip count travel as file
// metadata so the export is self-contained.
func WriteParquet(w io.Writer, res *ad2cp.Result) error {
	pw := parquet.NewGenericWriter[IndexRow](w,
		parquet.KeyValueMetadata(MetaBrokenEnd, strconv.FormatBool(res.BrokenEnd)),
		parquet.KeyValueMetadata(MetaSkippedBytes, strconv.FormatUint(res.Skipped, 10)),
	)

	idx := res.Index
	rows := make([]IndexRow, 0, writeBatch)
	for i := 0; i < idx.Len(); i++ {
		rec := idx.Record(i)
		rows = append(rows, IndexRow{Offset: rec.Offset, Length: rec.Length, ID: int32(rec.ID)})
		if len(rows) == writeBatch {
			if _, err := pw.Write(rows); err != nil {
				return fmt.Errorf("write parquet rows: %w", err)
			}
			rows = rows[:0]
		}
	}
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}

	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// WriteParquetFile writes the scan result to a Parquet file at path.
func WriteParquetFile(path string, res *ad2cp.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	if err := WriteParquet(f, res); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close parquet file: %w", err)
	}
	return nil
}
