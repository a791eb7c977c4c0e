// Package category handles free-text category suggestions, their vote
// rankings and the read-only category catalog.
package category

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/logging"
	"github.com/dyluth/gather/internal/metrics"
	"github.com/dyluth/gather/pkg/store"
	"go.uber.org/zap"
)

// VoteStore is the slice of the document store the aggregator needs.
type VoteStore interface {
	PutVote(ctx context.Context, v *store.Vote) error
	ListVotes(ctx context.Context) ([]*store.Vote, error)
}

// Ranking is one entry of the suggestion leaderboard.
type Ranking struct {
	Name  string `json:"name"`
	Votes int    `json:"votes"`
}

// Options tune aggregation.
type Options struct {
	// MergeVariants groups votes by slug instead of by raw submitted name.
	// The most voted spelling names the merged entry.
	MergeVariants bool
}

// Aggregator records suggestion votes and ranks them.
type Aggregator struct {
	store   VoteStore
	clock   clock.Clock
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewAggregator creates an aggregator. logger and m may be nil.
func NewAggregator(s VoteStore, c clock.Clock, opts Options, logger *zap.Logger, m *metrics.Recorder) *Aggregator {
	return &Aggregator{
		store:   s,
		clock:   c,
		opts:    opts,
		logger:  logging.OrNop(logger).Named("category"),
		metrics: m,
	}
}

// Submit records userID's vote for rawName and returns the suggestion slug.
// Submitting the same name again overwrites the user's previous vote.
func (a *Aggregator) Submit(ctx context.Context, rawName, userID, email string) (string, error) {
	name := strings.TrimSpace(rawName)
	slug := Normalize(name)
	if slug == "" {
		return "", fmt.Errorf("suggestion %q has no letters or digits: %w", rawName, store.ErrValidation)
	}

	vote := &store.Vote{
		SuggestionID: slug,
		UserID:       userID,
		UserEmail:    email,
		Name:         name,
		TimestampMs:  clock.Millis(a.clock),
	}
	if err := a.store.PutVote(ctx, vote); err != nil {
		return "", fmt.Errorf("submit suggestion %s: %w", slug, err)
	}

	a.metrics.VoteSubmitted()
	a.logger.Info("category suggested", zap.String("slug", slug), zap.String("user_id", userID))
	return slug, nil
}

// Aggregate ranks every vote in the system by count, descending, ties by name.
// By default votes are grouped by the exact submitted name, so spelling
// variants of one slug rank separately.
func (a *Aggregator) Aggregate(ctx context.Context) ([]Ranking, error) {
	votes, err := a.store.ListVotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate votes: %w", err)
	}

	var rankings []Ranking
	if a.opts.MergeVariants {
		rankings = groupBySlug(votes)
	} else {
		rankings = groupByName(votes)
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Votes != rankings[j].Votes {
			return rankings[i].Votes > rankings[j].Votes
		}
		return rankings[i].Name < rankings[j].Name
	})
	return rankings, nil
}

func groupByName(votes []*store.Vote) []Ranking {
	counts := map[string]int{}
	for _, v := range votes {
		counts[v.Name]++
	}

	rankings := make([]Ranking, 0, len(counts))
	for name, n := range counts {
		rankings = append(rankings, Ranking{Name: name, Votes: n})
	}
	return rankings
}

func groupBySlug(votes []*store.Vote) []Ranking {
	spellings := map[string]map[string]int{}
	for _, v := range votes {
		if spellings[v.SuggestionID] == nil {
			spellings[v.SuggestionID] = map[string]int{}
		}
		spellings[v.SuggestionID][v.Name]++
	}

	rankings := make([]Ranking, 0, len(spellings))
	for _, names := range spellings {
		var best string
		bestCount, total := 0, 0
		for name, n := range names {
			total += n
			if n > bestCount || (n == bestCount && name < best) {
				best, bestCount = name, n
			}
		}
		rankings = append(rankings, Ranking{Name: best, Votes: total})
	}
	return rankings
}
