package footballdata

import (
	"fmt"
	"strings"
)

// Result is the full-time result of a match as recorded in the FTR column.
type Result int

const (
	ResultUnknown Result = iota
	Home
	Draw
	Away
)

// Results lists the valid results ordered by their FTR code (A, D, H).
var Results = []Result{Away, Draw, Home}

// ParseResult converts an FTR code into a Result.
func ParseResult(code string) (Result, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "H":
		return Home, nil
	case "D":
		return Draw, nil
	case "A":
		return Away, nil
	}
	return ResultUnknown, fmt.Errorf("invalid result code %q", code)
}

// Code returns the FTR code of the result.
func (r Result) Code() string {
	switch r {
	case Home:
		return "H"
	case Draw:
		return "D"
	case Away:
		return "A"
	}
	return ""
}

func (r Result) String() string {
	switch r {
	case Home:
		return "Home"
	case Draw:
		return "Draw"
	case Away:
		return "Away"
	}
	return "Unknown"
}

// MarshalText renders the result as its FTR code so it can be used as a JSON value or map key.
func (r Result) MarshalText() ([]byte, error) {
	if r == ResultUnknown {
		return nil, fmt.Errorf("cannot marshal unknown result")
	}
	return []byte(r.Code()), nil
}

func (r *Result) UnmarshalText(text []byte) error {
	parsed, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MatchRecord is one retained row of a results file.
type MatchRecord struct {
	HomeTeam string `json:"homeTeam"`
	AwayTeam string `json:"awayTeam"`
	Result   Result `json:"result"`
}

// Complete reports whether every field of the record is present.
func (m MatchRecord) Complete() bool {
	return m.HomeTeam != "" && m.AwayTeam != "" && m.Result != ResultUnknown
}
