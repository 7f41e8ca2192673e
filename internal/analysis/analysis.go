// Package analysis computes run statistics from reportcheck log output:
// classification quality against ground truth, mean cost per report, and
// how often each chain of oracle verdicts occurred.
//
// It reads the text-handler log lines written by the engine and judge:
//
//	level=INFO msg="oracle verdict" report=7 operation=visibility result=true reason=...
//	level=INFO msg="Input token: 812 ($0.000122); Output token: 23 ($0.000014)"
//	level=INFO msg="Report #7 Consistent? true" strategy=full ...
//	level=WARN msg="Analysis for Report #8 failed -- ..."
package analysis

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	decisionPattern = regexp.MustCompile(`Report #(\S+) Consistent\? (true|false)`)
	failurePattern  = regexp.MustCompile(`Analysis for Report #(\S+) failed`)
	costPattern     = regexp.MustCompile(`Input token: (\d+) \(\$(\d+\.\d+)\); Output token: (\d+) \(\$(\d+\.\d+)\)`)
	verdictPattern  = regexp.MustCompile(`msg="oracle verdict" report=("(?:[^"\\]|\\.)*"|\S+) operation=\S+ result=(true|false)`)
)

// Log is the parsed content of one run's log.
type Log struct {
	// Predictions maps report index to the logged verdict. A report decided
	// twice keeps its last verdict.
	Predictions map[string]bool

	// Chains counts verdict sequences, e.g. "true-true-false", one per
	// decided report. Verdicts are grouped by report, so interleaved
	// concurrent reports keep separate sequences. A failed report's
	// verdicts are discarded.
	Chains map[string]int

	Calls       int
	TotalTokens int
	TotalUSD    float64
	Decisions   int
}

// ParseFile parses the log at path.
func ParseFile(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads log lines from r in a single pass.
func Parse(r io.Reader) (*Log, error) {
	l := &Log{
		Predictions: make(map[string]bool),
		Chains:      make(map[string]int),
	}
	// verdicts of reports not yet decided or failed
	open := make(map[string][]string)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()

		if m := costPattern.FindStringSubmatch(line); m != nil {
			in, _ := strconv.Atoi(m[1])
			inUSD, _ := strconv.ParseFloat(m[2], 64)
			out, _ := strconv.Atoi(m[3])
			outUSD, _ := strconv.ParseFloat(m[4], 64)
			l.Calls++
			l.TotalTokens += in + out
			l.TotalUSD += inUSD + outUSD
			continue
		}
		if m := verdictPattern.FindStringSubmatch(line); m != nil {
			id := attrValue(m[1])
			open[id] = append(open[id], m[2])
			continue
		}
		if m := failurePattern.FindStringSubmatch(line); m != nil {
			delete(open, m[1])
			continue
		}
		if m := decisionPattern.FindStringSubmatch(line); m != nil {
			id := m[1]
			l.Predictions[id] = m[2] == "true"
			l.Decisions++
			l.Chains[strings.Join(open[id], "-")]++
			delete(open, id)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return l, nil
}

// attrValue undoes the text handler's quoting of an attribute value.
func attrValue(v string) string {
	if strings.HasPrefix(v, `"`) {
		if u, err := strconv.Unquote(v); err == nil {
			return u
		}
	}
	return v
}

// CostStats is the oracle spend of a run.
type CostStats struct {
	Reports     int     `json:"reports" yaml:"reports"`
	Calls       int     `json:"calls" yaml:"calls"`
	TotalUSD    float64 `json:"total_usd" yaml:"total_usd"`
	TotalTokens int     `json:"total_tokens" yaml:"total_tokens"`
	MeanUSD     float64 `json:"mean_usd" yaml:"mean_usd"`
	MeanTokens  float64 `json:"mean_tokens" yaml:"mean_tokens"`
}

// Costs averages spend over decided reports. Calls made for reports that
// later failed still count toward the total.
func (l *Log) Costs() CostStats {
	c := CostStats{
		Reports:     l.Decisions,
		Calls:       l.Calls,
		TotalUSD:    l.TotalUSD,
		TotalTokens: l.TotalTokens,
	}
	if l.Decisions > 0 {
		c.MeanUSD = l.TotalUSD / float64(l.Decisions)
		c.MeanTokens = float64(l.TotalTokens) / float64(l.Decisions)
	}
	return c
}

// ChainCount is how often one verdict sequence occurred.
type ChainCount struct {
	Chain string  `json:"chain" yaml:"chain"`
	Count int     `json:"count" yaml:"count"`
	Share float64 `json:"share" yaml:"share"`
}

// LogicChains returns verdict sequences by descending frequency.
func (l *Log) LogicChains() []ChainCount {
	total := 0
	for _, n := range l.Chains {
		total += n
	}
	out := make([]ChainCount, 0, len(l.Chains))
	for chain, n := range l.Chains {
		out = append(out, ChainCount{Chain: chain, Count: n, Share: float64(n) / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Chain < out[j].Chain
	})
	return out
}

// Classification compares predictions to ground truth. The positive class
// is "consistent".
type Classification struct {
	YY int `json:"yy" yaml:"yy"` // predicted consistent, labelled consistent
	NN int `json:"nn" yaml:"nn"` // predicted inconsistent, labelled inconsistent
	YN int `json:"yn" yaml:"yn"` // predicted inconsistent, labelled consistent
	NY int `json:"ny" yaml:"ny"` // predicted consistent, labelled inconsistent

	Total     int     `json:"total" yaml:"total"`
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`

	// Unlabelled lists predicted reports missing from the ground truth.
	Unlabelled []string `json:"unlabelled,omitempty" yaml:"unlabelled,omitempty"`
}

// Classify scores predictions against labels. Ratios with a zero
// denominator are reported as 0.
func Classify(pred, truth map[string]bool) Classification {
	var c Classification
	for id, p := range pred {
		t, ok := truth[id]
		if !ok {
			c.Unlabelled = append(c.Unlabelled, id)
			continue
		}
		switch {
		case p && t:
			c.YY++
		case !p && !t:
			c.NN++
		case p && !t:
			c.NY++
		default:
			c.YN++
		}
	}
	sort.Strings(c.Unlabelled)

	c.Total = c.YY + c.NN + c.YN + c.NY
	c.Accuracy = ratio(c.YY+c.NN, c.Total)
	c.Precision = ratio(c.YY, c.YY+c.NY)
	c.Recall = ratio(c.YY, c.YY+c.YN)
	c.F1 = ratio(2*c.YY, 2*c.YY+c.NY+c.YN)
	return c
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
