package junk

import "regexp"

// Pattern is one weighted indicator in the scoring table.
type Pattern struct {
	Name   string
	Re     *regexp.Regexp
	Weight int
}

// Table is the versioned pattern data the classifier scores against.
// It is data, not control flow: swapping in a different table changes the
// signals without touching the scoring algorithm.
type Table struct {
	Version string
	Subject []Pattern
	Sender  []Pattern
	Body    []Pattern
}

// DefaultTable returns the built-in v1 pattern table.
func DefaultTable() Table {
	return Table{
		Version: "v1",
		Subject: []Pattern{
			subjectPattern("urgent action required", `urgent.*action.*required`),
			subjectPattern("congratulations won", `congratulations.*won`),
			subjectPattern("free money", `free.*money|money.*free`),
			subjectPattern("limited time offer", `limited.*time.*offer`),
			subjectPattern("act now / click here", `act.*now|click.*here`),
			subjectPattern("pharmacy spam", `viagra|cialis|pharmacy`),
			subjectPattern("enlargement spam", `increase.*size`),
			subjectPattern("weight loss spam", `lose.*weight.*fast`),
			subjectPattern("get rich quick", `make.*money.*fast`),
			subjectPattern("advance fee fraud", `nigerian.*prince`),
			subjectPattern("tax refund bait", `tax.*refund`),
			subjectPattern("security alert bait", `security.*alert`),
			subjectPattern("stacked re: forwards", `re:.*re:.*re:`),
		},
		Sender: []Pattern{
			senderPattern("suspicious .tk sender", `noreply@.*\.tk$`),
			senderPattern("suspicious .ml domain", `@.*\.ml$`),
			senderPattern("suspicious .ga domain", `@.*\.ga$`),
			senderPattern("generic admin sender", `^admin@`),
			senderPattern("generic support sender", `^support@`),
			senderPattern("generic security sender", `^security@`),
		},
		Body: []Pattern{
			bodyPattern("click here now", `click.*here.*now`),
			bodyPattern("urgent response demand", `urgent.*respond`),
			bodyPattern("account verification bait", `verify.*account.*immediately`),
			bodyPattern("suspended account bait", `suspended.*account`),
			bodyPattern("lottery winner bait", `winner.*lottery`),
			bodyPattern("inheritance bait", `inheritance.*million`),
			bodyPattern("bitcoin investment bait", `bitcoin.*investment`),
			bodyPattern("crypto opportunity bait", `crypto.*opportunity`),
		},
	}
}

const (
	subjectWeight = 2
	senderWeight  = 1
	bodyWeight    = 2
)

func subjectPattern(name, expr string) Pattern {
	return Pattern{Name: name, Re: regexp.MustCompile(expr), Weight: subjectWeight}
}

func senderPattern(name, expr string) Pattern {
	return Pattern{Name: name, Re: regexp.MustCompile(expr), Weight: senderWeight}
}

func bodyPattern(name, expr string) Pattern {
	return Pattern{Name: name, Re: regexp.MustCompile(expr), Weight: bodyWeight}
}
