package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/i474232898/weather-history/internal/weather"
)

var (
	// ErrNoHistory is returned by Clear when the history file does not exist.
	ErrNoHistory = errors.New("nothing to clear")
	// ErrMalformedRow is returned when a data row cannot be read back as a reading.
	ErrMalformedRow = errors.New("malformed history row")
)

// Header is the fixed first row of the history sheet.
var Header = []interface{}{"Date", "Time", "City", "Condition", "Temperature"}

const sheetName = "History"

// XLSXStore persists readings as rows of a single spreadsheet file.
// Every open/modify/save cycle runs under one mutex, so the scheduler and
// HTTP handlers never observe a half-written file.
type XLSXStore struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
}

// NewXLSXStore creates a store backed by the file at path.
// The file itself is created on the first Append.
func NewXLSXStore(path string) *XLSXStore {
	return &XLSXStore{path: path, loc: time.Local}
}

// Path returns the backing file path.
func (s *XLSXStore) Path() string {
	return s.path
}

// Append adds one row for r, creating the file with the header row if needed.
func (s *XLSXStore) Append(r weather.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, sheet, err := s.openOrCreate()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	if len(rows) == 0 {
		header := Header
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		rows = append(rows, nil)
	}

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	row := []interface{}{r.Date(), r.Clock(), r.City, r.Condition, r.Temperature}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

// ReadAll returns every data row in file order. A missing file yields an
// empty slice and no error.
func (s *XLSXStore) ReadAll() ([]weather.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []weather.Reading{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, err
	}

	readings := make([]weather.Reading, 0, len(rows))
	for i, row := range rows {
		if i == 0 || isBlank(row) {
			continue
		}
		r, err := s.parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// Clear drops every data row and keeps the header.
func (s *XLSXStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNoHistory
		}
		return err
	}

	f, err := newWorkbook()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

func (s *XLSXStore) openOrCreate() (*excelize.File, string, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, f.GetSheetName(f.GetActiveSheetIndex()), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("open %s: %w", s.path, err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", err
		}
	}

	f, err = newWorkbook()
	if err != nil {
		return nil, "", err
	}
	return f, sheetName, nil
}

func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, err
	}
	header := Header
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (s *XLSXStore) parseRow(row []string) (weather.Reading, error) {
	if len(row) < len(Header) {
		return weather.Reading{}, fmt.Errorf("%w: expected %d cells, got %d", ErrMalformedRow, len(Header), len(row))
	}

	temp, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	if err != nil {
		return weather.Reading{}, fmt.Errorf("%w: temperature %q", ErrMalformedRow, row[4])
	}

	ts, err := time.ParseInLocation(weather.DateLayout+" "+weather.ClockLayout, row[0]+" "+row[1], s.loc)
	if err != nil {
		return weather.Reading{}, fmt.Errorf("%w: timestamp %q %q", ErrMalformedRow, row[0], row[1])
	}

	return weather.Reading{
		Timestamp:   ts,
		City:        row[2],
		Condition:   row[3],
		Temperature: temp,
	}, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
