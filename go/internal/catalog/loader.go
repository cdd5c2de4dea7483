// Package catalog loads the draftable schools from CSV exports.
package catalog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/leagify/go/internal/models"
	"github.com/rs/zerolog/log"
)

// MinColumns is the number of columns a school row must carry.
const MinColumns = 11

// MaxLineBytes caps a single row. Longer rows are counted as errors and
// skipped.
const MaxLineBytes = 1 << 20

const (
	colName = iota
	colConference
	colProjectedPoints
	colNumberOfProspects
	colSchoolURL
	colSuggestedAuctionValue
	colPosition
	colPointsAboveAverage
	colPointsAboveReplacement
	colAveragePointsForPosition
	colReplacementValueAverage
)

// Summary counts what happened to each line of the input.
type Summary struct {
	TotalLines     int `json:"total_lines"`
	HeaderLines    int `json:"header_lines"`
	BlankLines     int `json:"blank_lines"`
	MalformedLines int `json:"malformed_lines"`
	ErrorLines     int `json:"error_lines"`
	Parsed         int `json:"parsed"`
}

// Skipped returns the number of data lines that did not become schools.
func (s Summary) Skipped() int {
	return s.BlankLines + s.MalformedLines + s.ErrorLines
}

// Catalog is an immutable, ordered set of schools.
type Catalog struct {
	schools []models.School
}

// New builds a catalog from already-parsed schools. Schools without an id get one.
func New(schools []models.School) *Catalog {
	c := &Catalog{
		schools: make([]models.School, len(schools)),
	}
	for i, s := range schools {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		c.schools[i] = s
	}
	return c
}

// Schools returns a copy of the schools in load order.
func (c *Catalog) Schools() []models.School {
	out := make([]models.School, len(c.schools))
	copy(out, c.schools)
	return out
}

// Len returns the number of schools.
func (c *Catalog) Len() int {
	return len(c.schools)
}

// Load parses a school CSV. The first line is a header and is skipped. Blank
// lines are skipped, rows with fewer than MinColumns columns are counted as
// malformed, and rows that fail to tokenize are counted as errors. Numeric
// fields that do not parse are left nil.
func Load(r io.Reader) (*Catalog, Summary, error) {
	var (
		summary Summary
		schools []models.School
	)

	reader := bufio.NewReaderSize(r, 64*1024)
	header := true
	for {
		line, tooLong, err := readLine(reader, MaxLineBytes)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, summary, fmt.Errorf("failed to read school csv: %w", err)
		}
		summary.TotalLines++

		if header {
			header = false
			summary.HeaderLines++
			continue
		}
		if tooLong {
			log.Warn().Int("line", summary.TotalLines).Int("max_bytes", MaxLineBytes).Msg("skipping oversized school row")
			summary.ErrorLines++
			continue
		}
		if strings.TrimSpace(line) == "" {
			summary.BlankLines++
			continue
		}

		columns, err := splitRow(line)
		if err != nil {
			log.Warn().Err(err).Int("line", summary.TotalLines).Msg("skipping unparseable school row")
			summary.ErrorLines++
			continue
		}
		if len(columns) < MinColumns {
			log.Warn().
				Int("line", summary.TotalLines).
				Int("columns", len(columns)).
				Msg("skipping malformed school row")
			summary.MalformedLines++
			continue
		}

		schools = append(schools, parseSchool(columns))
		summary.Parsed++
	}

	log.Info().
		Int("total_lines", summary.TotalLines).
		Int("header_lines", summary.HeaderLines).
		Int("blank_lines", summary.BlankLines).
		Int("malformed_lines", summary.MalformedLines).
		Int("error_lines", summary.ErrorLines).
		Int("parsed", summary.Parsed).
		Msg("school csv parsed")

	return New(schools), summary, nil
}

// LoadFile opens path and parses it with Load.
func LoadFile(path string) (*Catalog, Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("failed to open school csv: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// readLine returns the next line without its terminator. A line longer than
// limit is drained and reported as tooLong. io.EOF means no more lines.
func readLine(r *bufio.Reader, limit int) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !tooLong && len(buf)+len(chunk) <= limit {
			buf = append(buf, chunk...)
		} else if !tooLong {
			tooLong = true
			buf = nil
		}
		switch {
		case errors.Is(readErr, bufio.ErrBufferFull):
			continue
		case errors.Is(readErr, io.EOF):
			if len(buf) == 0 && !tooLong {
				return "", false, io.EOF
			}
		case readErr != nil:
			return "", false, readErr
		}
		return strings.TrimRight(string(buf), "\r\n"), tooLong, nil
	}
}

func splitRow(line string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	record, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func parseSchool(columns []string) models.School {
	return models.School{
		ID:                                 uuid.New(),
		Name:                               strings.TrimSpace(columns[colName]),
		Conference:                         strings.TrimSpace(columns[colConference]),
		ProjectedPoints:                    parseFloat(columns[colProjectedPoints]),
		NumberOfProspects:                  parseInt(columns[colNumberOfProspects]),
		SchoolURL:                          strings.TrimSpace(columns[colSchoolURL]),
		SuggestedAuctionValue:              parseFloat(columns[colSuggestedAuctionValue]),
		Position:                           strings.TrimSpace(columns[colPosition]),
		ProjectedPointsAboveAverage:        parseFloat(columns[colPointsAboveAverage]),
		ProjectedPointsAboveReplacement:    parseFloat(columns[colPointsAboveReplacement]),
		AveragePointsForPosition:           parseFloat(columns[colAveragePointsForPosition]),
		ReplacementValueAverageForPosition: parseFloat(columns[colReplacementValueAverage]),
	}
}

func parseFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}
