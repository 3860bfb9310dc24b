package domain

import (
	"fmt"
	"strings"
)

// Dimension names one axis of organizational culture.
type Dimension string

// Kind separates the two scoring families.
type Kind int

const (
	Bipolar  Kind = iota // two opposing poles, score in [-1, 1]
	Unipolar             // single presence signal, score in [0, 10]
)

func (k Kind) String() string {
	if k == Bipolar {
		return "bipolar"
	}
	return "unipolar"
}

// Hofstede organizational dimensions (bipolar).
const (
	ProcessResults        Dimension = "process_results"
	JobEmployee           Dimension = "job_employee"
	ProfessionalParochial Dimension = "professional_parochial"
	OpenClosed            Dimension = "open_closed"
	TightLoose            Dimension = "tight_loose"
	PragmaticNormative    Dimension = "pragmatic_normative"
)

// MIT Big 9 dimensions (unipolar).
const (
	Agility             Dimension = "agility"
	Collaboration       Dimension = "collaboration"
	CustomerOrientation Dimension = "customer_orientation"
	Diversity           Dimension = "diversity"
	Execution           Dimension = "execution"
	Innovation          Dimension = "innovation"
	Integrity           Dimension = "integrity"
	Performance         Dimension = "performance"
	Respect             Dimension = "respect"
)

var bipolarDims = []Dimension{
	ProcessResults, JobEmployee, ProfessionalParochial,
	OpenClosed, TightLoose, PragmaticNormative,
}

var unipolarDims = []Dimension{
	Agility, Collaboration, CustomerOrientation, Diversity, Execution,
	Innovation, Integrity, Performance, Respect,
}

// Dimensions returns every dimension, bipolar first, in a stable order.
func Dimensions() []Dimension {
	out := make([]Dimension, 0, len(bipolarDims)+len(unipolarDims))
	out = append(out, bipolarDims...)
	return append(out, unipolarDims...)
}

func (d Dimension) Kind() Kind {
	for _, b := range bipolarDims {
		if b == d {
			return Bipolar
		}
	}
	return Unipolar
}

func (d Dimension) Valid() bool {
	for _, x := range Dimensions() {
		if x == d {
			return true
		}
	}
	return false
}

// Title renders "customer_orientation" as "Customer Orientation".
func (d Dimension) Title() string {
	words := strings.Split(string(d), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ParseDimension accepts the snake_case name, case-insensitively.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
	}
	return d, nil
}
