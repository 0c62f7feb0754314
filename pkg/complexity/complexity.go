// Package complexity scores how hard a goal looks before any planning
// happens, the way the teacher's skill recommender scores a channel message
// before picking skills for it — a small weighted combination of lexical
// signals, not a model call.
package complexity

import (
	"regexp"
	"strings"
)

// Factor weights, convex-combination style: they sum to 1 so the resulting
// score stays in [0,1].
const (
	weightTools     = 0.20
	weightFiles     = 0.15
	weightCommands  = 0.25
	weightData      = 0.15
	weightAmbiguity = 0.25
)

// toolKeywords maps each registered tool to the words that suggest a goal
// plausibly implicates it. tools_factor counts how many distinct tools are
// implicated, not how many keywords matched.
var toolKeywords = map[string]*regexp.Regexp{
	"list_dir":    regexp.MustCompile(`(?i)\b(list|ls|enumerate)\b`),
	"read_file":   regexp.MustCompile(`(?i)\b(read|open|view|cat|inspect)\b`),
	"write_file":  regexp.MustCompile(`(?i)\b(write|save|create|edit|modify|append)\b`),
	"run_command": regexp.MustCompile(`(?i)\b(run|execute|command|script|install|build)\b`),
	"system_info": regexp.MustCompile(`(?i)\b(system|cpu|memory|disk|os|hardware)\b`),
	"web_fetch":   regexp.MustCompile(`(?i)\b(fetch|download|url|https?|web|api)\b`),
}

var (
	filesPattern       = regexp.MustCompile(`(?i)\b(files?|directory|directories|folders?|paths?)\b`)
	pathTokenPattern   = regexp.MustCompile(`(?:^|\s)\.{0,2}/\S+|\S+\.(go|py|js|ts|json|yaml|yml|txt|md|csv|log)\b`)
	commandOpPattern   = regexp.MustCompile("[|<>;&]|&&|\\|\\||`|\\$\\(")
	commandWordPattern = regexp.MustCompile(`(?i)\b(pipe|redirect|chain|nested?|sequence of commands|and then|after that|also|additionally)\b`)
	dataVolumePattern  = regexp.MustCompile(`(?i)\b(\d+\s*(kb|mb|gb|rows?|records?|lines?|entries)|all|entire|every|everything|bulk|large|whole)\b`)
	ambiguityPattern   = regexp.MustCompile(`(?i)\b(maybe|perhaps|somehow|figure out|not sure|might|but not|except|unless|without|avoid)\b`)
)

// Score estimates goal complexity in [0,1] from five weighted factors:
// distinct tools implicated, breadth of filesystem targets, presence and
// nesting of shell-style operations, estimated data volume, and lexical
// ambiguity.
func Score(goal string) float64 {
	if strings.TrimSpace(goal) == "" {
		return 0
	}

	toolsFactor := toolsFactor(goal)
	filesFactor := saturate(countMatches(filesPattern, goal)+countMatches(pathTokenPattern, goal), 2)
	commandsFactor := commandsFactor(goal)
	dataFactor := saturate(countMatches(dataVolumePattern, goal), 2)
	ambiguityFactor := saturate(countMatches(ambiguityPattern, goal), 3)

	score := weightTools*toolsFactor +
		weightFiles*filesFactor +
		weightCommands*commandsFactor +
		weightData*dataFactor +
		weightAmbiguity*ambiguityFactor

	return clamp01(score)
}

// toolsFactor counts how many distinct tools the goal text plausibly
// implicates, out of the six registered tools.
func toolsFactor(goal string) float64 {
	implicated := 0
	for _, pattern := range toolKeywords {
		if pattern.MatchString(goal) {
			implicated++
		}
	}
	return clamp01(float64(implicated) / float64(len(toolKeywords)))
}

// commandsFactor scores presence and nesting of shell-style operations: any
// operator character saturates quickly, since a single pipe or redirect
// already signals non-trivial shell composition.
func commandsFactor(goal string) float64 {
	ops := len(commandOpPattern.FindAllString(goal, -1))
	words := countMatches(commandWordPattern, goal)
	return saturate(ops+words, 2)
}

func countMatches(pattern *regexp.Regexp, text string) int {
	return len(pattern.FindAllString(text, -1))
}

// saturate maps a raw match count to [0,1], reaching 1.0 at cap matches.
func saturate(count int, cap int) float64 {
	if cap <= 0 {
		return 0
	}
	return clamp01(float64(count) / float64(cap))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
