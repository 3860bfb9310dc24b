// Package scoring turns review text into culture-dimension scores.
//
// The pipeline is pure and holds no state across calls:
//
//   - Dictionary: immutable, versioned keyword lists per dimension pole.
//   - Score: per-dimension keyword-hit counts for one review.
//   - Aggregate: recency-weighted company scores with relative confidence.
//
// All functions are safe for concurrent use.
package scoring

import (
	"fmt"
	"sync"

	"culture_metrics/internal/domain"
)

// Version tags the keyword lists compiled into Default. Bump it on any list change
// so cached metrics computed under an older list are recomputed.
const Version = "2024.1"

// Pole is one named keyword set. Unipolar dimensions have exactly one.
type Pole struct {
	Name    string
	Phrases []string
}

type Entry struct {
	Dimension domain.Dimension
	Poles     []Pole // bipolar: [A, B]; score = (B - A) / (A + B)
}

// Dictionary maps every dimension to its keyword poles. Build with New; the
// zero value is not usable.
type Dictionary struct {
	version string
	entries map[domain.Dimension]Entry
}

// New validates and normalizes the entries: every dimension exactly once, two
// poles for bipolar and one for unipolar, phrases normalized and de-duplicated.
func New(version string, entries []Entry) (*Dictionary, error) {
	if version == "" {
		return nil, fmt.Errorf("dictionary: version is required")
	}
	d := &Dictionary{version: version, entries: make(map[domain.Dimension]Entry, len(entries))}
	for _, e := range entries {
		if !e.Dimension.Valid() {
			return nil, fmt.Errorf("dictionary: %w: %q", domain.ErrUnknownDimension, e.Dimension)
		}
		if _, dup := d.entries[e.Dimension]; dup {
			return nil, fmt.Errorf("dictionary: duplicate dimension %s", e.Dimension)
		}
		want := 1
		if e.Dimension.Kind() == domain.Bipolar {
			want = 2
		}
		if len(e.Poles) != want {
			return nil, fmt.Errorf("dictionary: %s needs %d poles, got %d", e.Dimension, want, len(e.Poles))
		}
		poles := make([]Pole, len(e.Poles))
		for i, p := range e.Poles {
			poles[i] = Pole{Name: p.Name, Phrases: normalizePhrases(p.Phrases)}
			if len(poles[i].Phrases) == 0 {
				return nil, fmt.Errorf("dictionary: %s pole %q has no phrases", e.Dimension, p.Name)
			}
		}
		d.entries[e.Dimension] = Entry{Dimension: e.Dimension, Poles: poles}
	}
	for _, dim := range domain.Dimensions() {
		if _, ok := d.entries[dim]; !ok {
			return nil, fmt.Errorf("dictionary: missing dimension %s", dim)
		}
	}
	return d, nil
}

func (d *Dictionary) Version() string { return d.version }

// Entry returns a copy, so callers cannot mutate the dictionary.
func (d *Dictionary) Entry(dim domain.Dimension) (Entry, bool) {
	e, ok := d.entries[dim]
	if !ok {
		return Entry{}, false
	}
	poles := make([]Pole, len(e.Poles))
	for i, p := range e.Poles {
		poles[i] = Pole{Name: p.Name, Phrases: append([]string(nil), p.Phrases...)}
	}
	return Entry{Dimension: dim, Poles: poles}, true
}

func normalizePhrases(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		n := normalizePhrase(p)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

var defaultDict = sync.OnceValue(func() *Dictionary {
	d, err := New(Version, defaultEntries)
	if err != nil {
		panic(err)
	}
	return d
})

// Default returns the compiled-in dictionary, built once per process.
func Default() *Dictionary { return defaultDict() }

var defaultEntries = []Entry{
	{Dimension: domain.ProcessResults, Poles: []Pole{
		{Name: "process_oriented", Phrases: []string{
			"procedures", "compliance", "following rules", "bureaucratic", "red tape",
			"step-by-step", "documentation", "sign-offs", "approvals required",
			"by the book", "sops", "protocols", "checklists", "audits",
			"risk-averse", "cautious", "methodical", "structured process",
			"process-driven", "process-focused", "procedural", "formal process",
		}},
		{Name: "results_oriented", Phrases: []string{
			"outcomes", "targets", "goals", "performance-driven", "results matter",
			"delivery", "impact", "achieving objectives", "bottom line",
			"move fast", "bias for action", "get things done", "entrepreneurial",
			"accountability", "ownership", "make it happen", "results speak",
			"results-oriented", "outcome-focused", "performance metrics", "delivering results",
			"fast-paced",
		}},
	}},
	{Dimension: domain.JobEmployee, Poles: []Pole{
		{Name: "job_oriented", Phrases: []string{
			"task completion", "task-focused", "job-focused", "work-focused",
			"efficiency", "productivity", "output", "deliverables",
			"get the job done", "focus on work", "work first", "task oriented",
		}},
		{Name: "employee_oriented", Phrases: []string{
			"employee wellbeing", "work-life balance", "employee satisfaction",
			"employee development", "employee growth", "caring", "supportive",
			"family-friendly", "personal development", "employee first",
			"wellbeing", "people-focused", "employee-centric", "human-centered",
		}},
	}},
	{Dimension: domain.ProfessionalParochial, Poles: []Pole{
		{Name: "professional", Phrases: []string{
			"professional", "industry expertise", "technical skills", "specialist",
			"professional development", "career advancement", "industry knowledge",
			"professional standards", "professional ethics", "expert",
		}},
		{Name: "parochial", Phrases: []string{
			"company culture", "company loyalty", "company values", "company first",
			"company-focused", "internal culture", "company identity",
			"company commitment", "loyalty to company", "insider",
		}},
	}},
	{Dimension: domain.OpenClosed, Poles: []Pole{
		{Name: "closed_system", Phrases: []string{
			"insider culture", "old boys network", "tenure matters",
			"hard to break in", "cliquey", "politics", "who you know",
			"not invented here", "resistant to change", "traditional",
			"established ways", "that's how we do it", "outsiders struggle",
			"insular", "closed-minded", "resistant", "exclusive",
		}},
		{Name: "open_system", Phrases: []string{
			"diverse perspectives", "external hires", "new ideas welcome",
			"learning culture", "bring in talent", "outside thinking",
			"collaborative", "cross-functional", "inclusive", "meritocratic",
			"challenge status quo", "fresh perspectives", "innovative",
			"open to change", "welcoming", "open-minded", "receptive",
		}},
	}},
	{Dimension: domain.TightLoose, Poles: []Pole{
		{Name: "tight_control", Phrases: []string{
			"hierarchy", "chain of command", "formal", "structured",
			"micromanagement", "approvals", "sign-off culture", "bureaucracy",
			"rules", "policies", "standardised", "compliance-focused",
			"top-down", "command and control", "rigid", "strict",
			"hierarchical", "formal structure", "control", "oversight",
		}},
		{Name: "loose_control", Phrases: []string{
			"autonomy", "empowerment", "trust", "self-directed",
			"flat structure", "flexible", "agile", "startup culture",
			"freedom", "independent", "ownership", "entrepreneurial",
			"minimal bureaucracy", "fast decisions", "bottom-up", "decentralised",
			"autonomous", "empowered", "self-managing",
		}},
	}},
	{Dimension: domain.PragmaticNormative, Poles: []Pole{
		{Name: "pragmatic", Phrases: []string{
			"results-over-rules", "pragmatic", "practical", "market-driven",
			"customer-focused", "flexible", "adaptable", "realistic",
			"business-focused", "profit-driven", "bottom line", "efficiency",
		}},
		{Name: "normative", Phrases: []string{
			"values-driven", "principle-adherence", "ethical", "integrity",
			"mission-driven", "purpose-driven", "values-based", "principled",
			"moral", "ethical standards", "doing the right thing", "values matter",
		}},
	}},
	{Dimension: domain.Agility, Poles: []Pole{{Name: "agility", Phrases: []string{
		"agile", "fast", "quick", "responsive", "adaptable", "flexible",
		"speed", "nimble", "rapid", "swift", "quick to adapt", "quick response",
		"ability to change", "quick decision", "fast moving", "dynamic",
	}}}},
	{Dimension: domain.Collaboration, Poles: []Pole{{Name: "collaboration", Phrases: []string{
		"collaborative", "teamwork", "team", "cooperation", "cross-functional",
		"working together", "team player", "collaborative culture",
		"communicate", "together", "partnership", "collective", "unified",
	}}}},
	{Dimension: domain.CustomerOrientation, Poles: []Pole{{Name: "customer_orientation", Phrases: []string{
		"customer", "client", "customer-focused", "customer-centric", "customer first",
		"customer satisfaction", "customer needs", "customer service", "customer-oriented",
		"focus on customers", "customer-driven", "customer experience",
	}}}},
	{Dimension: domain.Diversity, Poles: []Pole{{Name: "diversity", Phrases: []string{
		"diverse", "diversity", "inclusive", "inclusion", "different backgrounds",
		"varied", "multicultural", "equal opportunity", "representation",
		"different perspectives", "inclusive environment", "welcoming",
	}}}},
	{Dimension: domain.Execution, Poles: []Pole{{Name: "execution", Phrases: []string{
		"execution", "deliver", "delivery", "execute", "get things done",
		"deliver on commitments", "follow through", "accountability",
		"execution excellence", "deliver results", "execution focused",
	}}}},
	{Dimension: domain.Innovation, Poles: []Pole{{Name: "innovation", Phrases: []string{
		"innovation", "innovative", "creative", "creativity", "new ideas",
		"new products", "experimental", "forward-thinking", "cutting-edge",
		"think outside the box", "breakthrough", "pioneering", "novel",
	}}}},
	{Dimension: domain.Integrity, Poles: []Pole{{Name: "integrity", Phrases: []string{
		"integrity", "ethical", "honest", "honesty", "trustworthy", "trust",
		"transparent", "transparency", "authentic", "authentic culture",
		"doing the right thing", "ethical behavior", "moral",
	}}}},
	{Dimension: domain.Performance, Poles: []Pole{{Name: "performance", Phrases: []string{
		"performance", "meritocracy", "merit-based", "high performers",
		"performance-driven", "accountability", "results-oriented",
		"performance culture", "high standards", "excellence", "high bar",
	}}}},
	{Dimension: domain.Respect, Poles: []Pole{{Name: "respect", Phrases: []string{
		"respect", "respectful", "dignity", "consideration", "valued",
		"psychological safety", "safe", "supportive", "caring",
		"treat people well", "respect for people", "human dignity",
	}}}},
}
