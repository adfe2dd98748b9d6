package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/ducminhle1904/pattern-cluster-bot/pkg/types"
)

// csv column layout: date,open,high,low,close,volume with a header row.
const (
	csvDateCol = iota
	csvOpenCol
	csvHighCol
	csvLowCol
	csvCloseCol
	csvVolumeCol
	csvMinColumns = 6
)

const csvDateFormat = "2006-01-02"

// CSVProvider loads daily bars from a CSV file. The symbol argument is
// interpreted as the file path.
type CSVProvider struct{}

// NewCSVProvider creates a new CSV data provider.
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{}
}

// GetName returns the name of the data provider.
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadBars loads all bars from the CSV file at path. Malformed rows are
// skipped with a warning rather than failing the whole load.
func (p *CSVProvider) LoadBars(path string) ([]types.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	var bars []types.Bar
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		lineNum++

		if len(record) < csvMinColumns {
			log.Printf("⚠️ Insufficient columns at line %d (expected %d, got %d), skipping", lineNum, csvMinColumns, len(record))
			continue
		}

		date, err := time.Parse(csvDateFormat, record[csvDateCol])
		if err != nil {
			log.Printf("⚠️ Invalid date '%s' at line %d, skipping: %v", record[csvDateCol], lineNum, err)
			continue
		}

		open, err1 := strconv.ParseFloat(record[csvOpenCol], 64)
		high, err2 := strconv.ParseFloat(record[csvHighCol], 64)
		low, err3 := strconv.ParseFloat(record[csvLowCol], 64)
		close, err4 := strconv.ParseFloat(record[csvCloseCol], 64)
		volume, err5 := strconv.ParseFloat(record[csvVolumeCol], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			log.Printf("⚠️ Invalid numeric field at line %d, skipping", lineNum)
			continue
		}

		bars = append(bars, types.Bar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no valid bars in %s", path)
	}
	return bars, nil
}
