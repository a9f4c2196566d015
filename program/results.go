package program

import (
	"fmt"
	"strings"
)

// OptionResult is the standing of a single option
type OptionResult struct {
	Option  Option
	Votes   uint64
	Percent float64
}

// Results summarises a tally record for display
type Results struct {
	Initialized bool
	Total       uint64
	Options     [NumOptions]OptionResult
}

// Tally decodes the data of a ballot account for read-only use. An account
// that has never been written reads as an uninitialized record with no votes.
func Tally(data []byte) (Record, error) {
	if len(data) == 0 {
		return Record{}, nil
	}
	return DecodeRecord(data)
}

// Summarize computes the total and each option's share of it. Every percentage
// is zero when no votes have been cast.
func Summarize(r Record) Results {
	res := Results{
		Initialized: r.Initialized,
		Total:       r.Total(),
	}
	for i, count := range r.Counts() {
		res.Options[i] = OptionResult{
			Option: Options[i],
			Votes:  count,
		}
		if res.Total > 0 {
			res.Options[i].Percent = float64(count) / float64(res.Total) * 100
		}
	}
	return res
}

// Leaders returns the option(s) with the most votes. Ties return every tied
// option in order. With no votes cast there is no leader.
func (r Results) Leaders() []Option {
	if r.Total == 0 {
		return nil
	}
	var most uint64
	for _, o := range r.Options {
		if o.Votes > most {
			most = o.Votes
		}
	}
	leaders := make([]Option, 0, 1)
	for _, o := range r.Options {
		if o.Votes == most {
			leaders = append(leaders, o.Option)
		}
	}
	return leaders
}

func (r Results) String() string {
	var sb strings.Builder
	for _, o := range r.Options {
		fmt.Fprintf(&sb, "%s: %d votes (%.1f%%)\n", o.Option, o.Votes, o.Percent)
	}
	fmt.Fprintf(&sb, "total: %d", r.Total)
	return sb.String()
}
