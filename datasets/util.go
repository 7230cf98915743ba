package datasets

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func parseFrameIndex(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty string")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// pandas exports integer columns with missing values as floats ("123.0").
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, err
		}
		v = int(f)
	}
	if v < 0 {
		return 0, errors.Errorf("negative frame index %d", v)
	}
	return v, nil
}

// readCSVHeader reads the header row and returns a lowercased column -> index map.
func readCSVHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if len(header) > 0 {
		// Spreadsheet exports prefix the first cell with a UTF-8 BOM.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.TrimSpace(strings.ToLower(col))] = i
	}
	return colIndex, nil
}

// requireColumns verifies every name in required is present in colIndex.
func requireColumns(colIndex map[string]int, required ...string) error {
	for _, col := range required {
		if _, ok := colIndex[col]; !ok {
			return errors.Errorf("required column %q not found in CSV", col)
		}
	}
	return nil
}

// readJSON decodes the JSON file at path into v.
func readJSON(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", path)
	}
	defer file.Close()
	if err := json.NewDecoder(file).Decode(v); err != nil {
		return errors.Wrapf(err, "failed to decode %q", path)
	}
	return nil
}
