package engine

import (
	"fmt"
	"strings"
)

// Strategy names a routing policy over the decision graph.
type Strategy string

const (
	StrategyFull                         Strategy = "full"
	StrategySkipVisibilityCheck          Strategy = "skip-visibility-check"
	StrategySkipOCR                      Strategy = "skip-ocr"
	StrategySkipInvisibilityVerification Strategy = "skip-invisibility-verification"
	StrategyBareOracle                   Strategy = "bare-oracle"
)

// Strategies lists every strategy, full tree first.
func Strategies() []Strategy {
	return []Strategy{
		StrategyFull,
		StrategySkipVisibilityCheck,
		StrategySkipOCR,
		StrategySkipInvisibilityVerification,
		StrategyBareOracle,
	}
}

// ParseStrategy parses a strategy name. The empty string is the full tree.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return StrategyFull, nil
	}
	for _, st := range Strategies() {
		if string(st) == strings.ToLower(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q (want one of %s)", s, strings.Join(strategyNames(), ", "))
}

// UsesOCR reports whether the strategy can reach a state that reads
// screenshot text.
func (s Strategy) UsesOCR() bool {
	switch s {
	case StrategySkipOCR, StrategyBareOracle:
		return false
	}
	return true
}

func strategyNames() []string {
	names := make([]string, 0, len(Strategies()))
	for _, st := range Strategies() {
		names = append(names, string(st))
	}
	return names
}

// State is a node of the decision graph.
type State string

const (
	CheckVisibility       State = "CheckVisibility"
	CheckTextReflection   State = "CheckTextReflection"
	CompareAgainstOCRText State = "CompareAgainstOCRText"
	CompareAgainstVision  State = "CompareAgainstVision"
	VerifyInvisibility    State = "VerifyInvisibility"
	DescribeState         State = "DescribeState"
	CompareTextualState   State = "CompareTextualState"
	CompareVisualState    State = "CompareVisualState"
	BareJudgment          State = "BareJudgment"
)

// Routing selects where the graph starts and where the visibility check
// branches to. Every other edge is fixed:
//
//	CheckTextReflection  true -> CompareAgainstOCRText, false -> CompareAgainstVision
//	VerifyInvisibility   disconfirmed -> consistent, else -> DescribeState
//	DescribeState        -> CompareTextualState
//	CompareTextualState  true -> consistent, false -> CompareVisualState
type Routing struct {
	Start      State
	Visible    State // after CheckVisibility returns true
	NotVisible State // after CheckVisibility returns false
}

// RoutingFor returns the routing policy of a strategy.
func RoutingFor(s Strategy) (Routing, error) {
	switch s {
	case StrategyFull:
		return Routing{Start: CheckVisibility, Visible: CheckTextReflection, NotVisible: VerifyInvisibility}, nil
	case StrategySkipVisibilityCheck:
		return Routing{Start: CheckTextReflection}, nil
	case StrategySkipOCR:
		return Routing{Start: CheckVisibility, Visible: CompareAgainstVision, NotVisible: CompareVisualState}, nil
	case StrategySkipInvisibilityVerification:
		return Routing{Start: CheckVisibility, Visible: CheckTextReflection, NotVisible: DescribeState}, nil
	case StrategyBareOracle:
		return Routing{Start: BareJudgment}, nil
	}
	return Routing{}, fmt.Errorf("unknown strategy %q", s)
}
