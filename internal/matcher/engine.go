package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/listing-reconcile/internal/listing"
	"github.com/listing-reconcile/internal/match"
	"github.com/listing-reconcile/internal/normalize"
	"github.com/listing-reconcile/internal/partition"
	"github.com/listing-reconcile/internal/writer"
)

// ErrInvalidListing marks a listing that failed validation.
var ErrInvalidListing = errors.New("invalid listing")

// Outcome is the terminal state of one listing.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeMatched
	OutcomeAlreadySatisfied
	OutcomeUnmatched
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeMatched:
		return "matched"
	case OutcomeAlreadySatisfied:
		return "already_satisfied"
	case OutcomeUnmatched:
		return "unmatched"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Strategy tells where the matched record was found.
type Strategy string

const (
	StrategyLocal    Strategy = "local"
	StrategyNeighbor Strategy = "neighbor"
)

// Assignment pairs a listing's phone with one canonical record.
type Assignment struct {
	RecordID    uuid.UUID `json:"recordId"`
	Phone       string    `json:"phone"`
	Score       float64   `json:"score"`
	Partition   string    `json:"partition"`
	Strategy    Strategy  `json:"strategy"`
	ListingName string    `json:"listingName"`
	RecordName  string    `json:"recordName"`
}

// Update converts the assignment into a datastore write.
func (a Assignment) Update() writer.Update {
	return writer.Update{RecordID: a.RecordID, Phone: a.Phone}
}

// Result is the outcome of processing one listing.
type Result struct {
	Outcome    Outcome
	Assignment *Assignment
	Err        error
	LoadErrors int
}

// Options tunes candidate retrieval.
type Options struct {
	CandidateLimit int
	// NeighborLimit caps the neighbor partitions searched after a local
	// miss; 0 disables the neighbor fallback.
	NeighborLimit  int
	NeighborTerms  int
	SearchAllTerms bool
}

// DefaultOptions returns the reference retrieval settings.
func DefaultOptions() Options {
	return Options{
		CandidateLimit: 100,
		NeighborLimit:  3,
		NeighborTerms:  2,
	}
}

// Engine resolves one listing at a time against the partition store.
type Engine struct {
	store    *partition.Store
	graph    *partition.Graph
	matcher  *match.Matcher
	ledger   *Ledger
	validate *validator.Validate
	opts     Options
	logger   *zap.Logger
}

// NewEngine creates an engine. All listings processed by one engine share
// ledger.
func NewEngine(store *partition.Store, graph *partition.Graph, m *match.Matcher, ledger *Ledger, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		graph:    graph,
		matcher:  m,
		ledger:   ledger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		opts:     opts,
		logger:   logger,
	}
}

// Process resolves l, loading its home partition on demand.
func (e *Engine) Process(ctx context.Context, l listing.Listing) Result {
	home, err := e.store.Load(ctx, l.DeptCode)
	loadErrors := 0
	if err != nil {
		e.logger.Warn("home partition unavailable", zap.String("partition", l.DeptCode), zap.Error(err))
		loadErrors++
	}
	res := e.process(ctx, l, home)
	res.LoadErrors += loadErrors
	return res
}

type candidate struct {
	record *partition.Record
	score  float64
}

// process runs the per-listing state machine against already loaded home
// records. A nil home means the home partition could not be loaded.
func (e *Engine) process(ctx context.Context, l listing.Listing, home []partition.Record) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Outcome: OutcomeFailed, Err: fmt.Errorf("panic while matching %q: %v", l.Name, r)}
		}
	}()

	if !l.HasPhone() || e.ledger.PhoneUsed(l.Phone) {
		return Result{Outcome: OutcomeSkipped}
	}
	if err := e.validate.Struct(l); err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: %v", ErrInvalidListing, err)}
	}

	name := normalize.Name(l.Name)
	if len(name) < 2 {
		return Result{Outcome: OutcomeSkipped}
	}
	terms := normalize.SearchTerms(name)
	subject := match.Subject{Name: name, PostalCode: l.PostalCode}

	best := e.search(home, terms, subject)
	strategy, where := StrategyLocal, l.DeptCode

	if best == nil && e.opts.NeighborLimit > 0 {
		neighborTerms := terms
		if e.opts.NeighborTerms > 0 && len(neighborTerms) > e.opts.NeighborTerms {
			neighborTerms = neighborTerms[:e.opts.NeighborTerms]
		}
		for _, code := range e.graph.Neighbors(l.DeptCode, e.opts.NeighborLimit) {
			records, err := e.store.Load(ctx, code)
			if err != nil {
				e.logger.Warn("neighbor partition unavailable", zap.String("partition", code), zap.Error(err))
				res.LoadErrors++
				continue
			}
			if best = e.search(records, neighborTerms, subject); best != nil {
				strategy, where = StrategyNeighbor, code
				break
			}
		}
	}

	if best == nil {
		res.Outcome = OutcomeUnmatched
		return res
	}
	if best.record.HasPhone() || !e.ledger.Claim(l.Phone, best.record.ID) {
		res.Outcome = OutcomeAlreadySatisfied
		return res
	}

	res.Outcome = OutcomeMatched
	res.Assignment = &Assignment{
		RecordID:    best.record.ID,
		Phone:       l.Phone,
		Score:       best.score,
		Partition:   where,
		Strategy:    strategy,
		ListingName: l.Name,
		RecordName:  best.record.Name,
	}
	return res
}

// search scores the contains-matches of each term in turn. It stops at the
// first term yielding an acceptable candidate unless SearchAllTerms is set.
func (e *Engine) search(records []partition.Record, terms []string, subject match.Subject) *candidate {
	if len(records) == 0 {
		return nil
	}

	var best *candidate
	for _, term := range terms {
		for _, r := range partition.Search(records, term, e.opts.CandidateLimit) {
			if r.HasPhone() || e.ledger.RecordUsed(r.ID) {
				continue
			}
			score := e.matcher.Score(subject, match.Subject{Name: r.NormalizedName, PostalCode: r.PostalCode})
			if !e.matcher.Accepts(score) {
				continue
			}
			if best == nil || score > best.score {
				best = &candidate{record: r, score: score}
			}
		}
		if best != nil && !e.opts.SearchAllTerms {
			return best
		}
	}
	return best
}
