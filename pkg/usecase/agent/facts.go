package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
)

// factSkill is one recognized exact-answer pattern. Skills are tried in a
// fixed priority order and the first one that both triggers and yields an
// answer wins.
type factSkill struct {
	name    string
	trigger func(query string) bool
	run     func(ctx context.Context, query string) (*model.FactAnswer, error)
}

func (uc *UseCase) factSkills() []factSkill {
	return []factSkill{
		{
			name: "most_active_user",
			trigger: func(query string) bool {
				return strings.Contains(query, "most active")
			},
			run: uc.mostActiveUser,
		},
		{
			name: "user_message_count",
			trigger: func(query string) bool {
				return strings.Contains(query, "how many messages")
			},
			run: uc.userMessageCount,
		},
	}
}

// SeekFacts pattern-matches the query against the skill table and returns an
// exact answer, or nil when no skill applies. It never fails: an error inside
// a skill is logged and treated as "no answer from that skill".
func (uc *UseCase) SeekFacts(ctx context.Context, query string) *model.FactAnswer {
	logger := logging.From(ctx)
	lowered := strings.ToLower(query)

	for _, skill := range uc.factSkills() {
		if !skill.trigger(lowered) {
			continue
		}

		answer, err := skill.run(ctx, lowered)
		if err != nil {
			logger.Error("fact skill failed", "skill", skill.name, "error", err)
			continue
		}
		if answer != nil {
			logger.Info("fact skill matched", "skill", skill.name, "answer", answer.Answer)
			return answer
		}
	}

	logger.Info("no specific fact found", "query", query)
	return nil
}

func (uc *UseCase) mostActiveUser(ctx context.Context, _ string) (*model.FactAnswer, error) {
	ua, err := uc.repo.MostActiveUser(ctx)
	if err != nil {
		return nil, err
	}

	return &model.FactAnswer{
		Fact:    "most_active_user",
		Answer:  ua.UserName,
		Context: fmt.Sprintf("%s is the most active user with %d messages.", ua.UserName, ua.Count),
	}, nil
}

// userMessageCount resolves the user by scanning known user names for a
// case-insensitive substring match against the query, in store report order,
// taking the first hit. No known name in the query means no answer.
func (uc *UseCase) userMessageCount(ctx context.Context, loweredQuery string) (*model.FactAnswer, error) {
	var found string
	for _, name := range uc.users {
		if strings.Contains(loweredQuery, strings.ToLower(name)) {
			found = name
			break
		}
	}
	if found == "" {
		return nil, nil
	}

	count, err := uc.repo.CountMessagesByUser(ctx, found)
	if err != nil {
		return nil, err
	}

	return &model.FactAnswer{
		Fact:    "user_message_count",
		Answer:  strconv.FormatInt(count, 10),
		Context: fmt.Sprintf("%s has sent %d messages.", found, count),
	}, nil
}
