// Package dataset reads descriptor files into matrices.
//
// Two formats are understood:
//   - .csv  one float descriptor per line, comma separated
//   - .hex  one binary descriptor per line, hex encoded
package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/patrikhermansson/visualwords/core"
	"github.com/rs/zerolog/log"
)

// Load reads a descriptor file, choosing the format by extension.
func Load(path string) (*core.Matrix, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadFloat(path)
	case ".hex":
		return LoadBinary(path)
	default:
		return nil, fmt.Errorf("unsupported descriptor file %s: want .csv or .hex", path)
	}
}

// LoadFloat reads float32 descriptors from a CSV file.
func LoadFloat(path string) (*core.Matrix, error) {
	log.Debug().Msgf("Opening CSV file: %s", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are reported by NewFloatMatrix
	var rows [][]float32
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read error in %s: %w", path, err)
		}
		row := make([]float32, len(record))
		for i, val := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(val), 32)
			if err != nil {
				return nil, fmt.Errorf("parse error at row %d col %d in %s: %w", len(rows), i, path, err)
			}
			row[i] = float32(v)
		}
		rows = append(rows, row)
	}

	m, err := core.NewFloatMatrix(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Msgf("Parsed %d rows from %s", m.Rows(), path)
	return m, nil
}

// LoadBinary reads hex-encoded binary descriptors, one per line. Blank lines are skipped.
func LoadBinary(path string) (*core.Matrix, error) {
	log.Debug().Msgf("Opening hex file: %s", path)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var rows [][]byte
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		row, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("parse error at line %d in %s: %w", line, path, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error in %s: %w", path, err)
	}

	m, err := core.NewBinaryMatrix(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Msgf("Parsed %d rows from %s", m.Rows(), path)
	return m, nil
}
