// Package junk scores messages against a weighted pattern table to estimate
// how likely they are to be unsolicited. Scoring is pure and deterministic:
// no network or disk access.
package junk

import (
	"fmt"
	"strings"

	"github.com/dmeyer/bridgemail/internal/models"
)

// Likelihood is the ordinal junk category derived from the score.
type Likelihood string

const (
	LikelihoodUnlikely Likelihood = "unlikely"
	LikelihoodLow      Likelihood = "low"
	LikelihoodMedium   Likelihood = "medium"
	LikelihoodHigh     Likelihood = "high"
)

// Analysis is the result of scoring one message.
type Analysis struct {
	EmailUID   uint32     `json:"email_id"`
	Score      int        `json:"junk_score"`
	Likelihood Likelihood `json:"likelihood"`
	LikelyJunk bool       `json:"is_likely_junk"`
	Indicators []string   `json:"indicators,omitempty"`
}

// Classifier scores messages against a pattern table.
type Classifier struct {
	table Table
}

// NewClassifier creates a classifier over the default pattern table.
func NewClassifier() *Classifier {
	return NewClassifierWithTable(DefaultTable())
}

// NewClassifierWithTable creates a classifier over a custom table.
func NewClassifierWithTable(table Table) *Classifier {
	return &Classifier{table: table}
}

const (
	capsRatioThreshold   = 0.5
	capsMinSubjectLength = 10
	exclamationLimit     = 3
	bodyScanLength       = 500
)

// Score computes the additive junk score for a message. Each matching
// pattern contributes its weight; structural heuristics (capitals ratio,
// exclamation marks) contribute 1 each. Absence of signal is never a
// positive signal: an empty message scores 0.
func (c *Classifier) Score(email *models.Email) Analysis {
	subject := strings.ToLower(email.Subject)
	sender := strings.ToLower(email.BareFromAddress())
	body := strings.ToLower(email.BodyText)
	if body == "" {
		body = strings.ToLower(email.UnsafeBodyHTML)
	}

	analysis := Analysis{EmailUID: email.UID}

	for _, p := range c.table.Subject {
		if p.Re.MatchString(subject) {
			analysis.Score += p.Weight
			analysis.Indicators = append(analysis.Indicators, "suspicious subject: "+p.Name)
		}
	}

	for _, p := range c.table.Sender {
		if p.Re.MatchString(sender) {
			analysis.Score += p.Weight
			analysis.Indicators = append(analysis.Indicators, "suspicious sender: "+p.Name)
		}
	}

	for _, p := range c.table.Body {
		if p.Re.MatchString(body) {
			analysis.Score += p.Weight
			analysis.Indicators = append(analysis.Indicators, "suspicious body content: "+p.Name)
		}
	}

	if ratio, ok := capsRatio(email.Subject); ok && ratio > capsRatioThreshold {
		analysis.Score++
		analysis.Indicators = append(analysis.Indicators, "excessive capital letters in subject")
	}

	if count := exclamationCount(email.Subject, body); count > exclamationLimit {
		analysis.Score++
		analysis.Indicators = append(analysis.Indicators, fmt.Sprintf("excessive exclamation marks (%d)", count))
	}

	analysis.Likelihood = likelihoodForScore(analysis.Score)
	analysis.LikelyJunk = analysis.Score >= 2

	return analysis
}

// likelihoodForScore maps the additive score to its ordinal category.
func likelihoodForScore(score int) Likelihood {
	switch {
	case score >= 4:
		return LikelihoodHigh
	case score >= 2:
		return LikelihoodMedium
	case score >= 1:
		return LikelihoodLow
	default:
		return LikelihoodUnlikely
	}
}

// capsRatio returns the uppercase ratio of letters in the subject. Subjects
// at or below the minimum length carry too little signal and are skipped.
func capsRatio(subject string) (float64, bool) {
	if len(subject) <= capsMinSubjectLength {
		return 0, false
	}
	upper := 0
	for _, r := range subject {
		if r >= 'A' && r <= 'Z' {
			upper++
		}
	}
	return float64(upper) / float64(len(subject)), true
}

// exclamationCount counts exclamation marks in the subject plus the first
// part of the body.
func exclamationCount(subject, body string) int {
	if len(body) > bodyScanLength {
		body = body[:bodyScanLength]
	}
	return strings.Count(subject, "!") + strings.Count(body, "!")
}
