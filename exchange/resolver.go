package exchange

import (
	"context"
	"regexp"
	"strings"

	"github.com/hupe1980/commonpool/core"
)

// Decision is a resolver's verdict on an exchange. OutcomePending leaves the
// exchange unresolved.
type Decision struct {
	Outcome    core.Outcome
	FinalTerms map[core.Resource]int
}

// Resolver decides the outcome of a pending exchange from its record. The
// record passed in is a copy.
type Resolver interface {
	Resolve(ctx context.Context, ex core.ExchangeRecord) (Decision, error)
}

// ResolverFunc is a functional adapter to allow ordinary functions to be used as Resolvers.
type ResolverFunc func(ctx context.Context, ex core.ExchangeRecord) (Decision, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, ex core.ExchangeRecord) (Decision, error) {
	return f(ctx, ex)
}

// KeywordResolver classifies the responder's latest reply by keyword. The
// keyword that occurs earliest wins; on a tie the longer keyword wins. A
// reply without any keyword stays pending.
type KeywordResolver struct {
	Accept []string
	Reject []string
}

var _ Resolver = KeywordResolver{}

// NewKeywordResolver returns a resolver with English accept/reject phrases.
func NewKeywordResolver() KeywordResolver {
	return KeywordResolver{
		Accept: []string{
			"accept", "accepted", "accepting", "agree", "agreed", "deal", "yes", "happy to trade",
		},
		Reject: []string{
			"reject", "rejected", "decline", "declined", "counter", "counteroffer", "refuse", "refused",
			"not interested", "no thanks", "unacceptable", "disagree", "no deal",
			"cannot accept", "can't accept", "won't accept", "not accept", "will not", "won't", "would not",
			"do not agree", "don't agree", "not agree",
		},
	}
}

// Resolve implements Resolver.
func (k KeywordResolver) Resolve(_ context.Context, ex core.ExchangeRecord) (Decision, error) {
	if len(ex.Conversation) == 0 {
		return Decision{Outcome: core.OutcomePending}, nil
	}
	reply := strings.ToLower(ex.Conversation[len(ex.Conversation)-1])
	reply = strings.ReplaceAll(reply, "\u2019", "'")

	accIdx, accLen := earliest(reply, k.Accept)
	rejIdx, rejLen := earliest(reply, k.Reject)

	switch {
	case accIdx < 0 && rejIdx < 0:
		return Decision{Outcome: core.OutcomePending}, nil
	case rejIdx < 0:
		return Decision{Outcome: core.OutcomeSuccess}, nil
	case accIdx < 0:
		return Decision{Outcome: core.OutcomeFailed}, nil
	case accIdx < rejIdx || (accIdx == rejIdx && accLen > rejLen):
		return Decision{Outcome: core.OutcomeSuccess}, nil
	default:
		return Decision{Outcome: core.OutcomeFailed}, nil
	}
}

// earliest returns the position and length of the first keyword occurring
// in s as whole words.
func earliest(s string, keywords []string) (int, int) {
	idx, length := -1, 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		loc := wordPattern(kw).FindStringIndex(s)
		if loc == nil {
			continue
		}
		if i := loc[0]; idx < 0 || i < idx || (i == idx && len(kw) > length) {
			idx, length = i, len(kw)
		}
	}
	return idx, length
}

func wordPattern(kw string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
}
