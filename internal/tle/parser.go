package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads three-line element text from r. Blank lines are discarded and
// every remaining line is trimmed; the result is consumed strictly in groups
// of three (name, line 1, line 2). A trailing group with fewer than three
// lines is dropped. Parse does not validate the element lines themselves;
// that is left to the propagation model builder.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	entries := make([]TLEEntry, 0, len(lines)/3)
	for i := 0; i < len(lines); i += 3 {
		if i+2 >= len(lines) {
			logger.Warn("dropping incomplete trailing TLE group",
				"component", "tle",
				"line_index", i,
				"lines", len(lines)-i,
			)
			break
		}

		name, line1, line2 := lines[i], lines[i+1], lines[i+2]
		entries = append(entries, TLEEntry{
			NORADID: noradID(line1),
			Name:    name,
			Epoch:   epoch(line1),
			Line1:   line1,
			Line2:   line2,
		})
	}

	return entries, nil
}

// noradID extracts the catalog number from line 1 columns 3-7.
func noradID(line1 string) int {
	if len(line1) < 7 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
	if err != nil {
		return 0
	}
	return n
}

// epoch extracts the element set epoch from line 1 columns 19-32.
func epoch(line1 string) time.Time {
	if len(line1) < 32 {
		return time.Time{}
	}
	t, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// Day 1.0 is Jan 1 00:00.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
