package collector

import (
	"context"

	"f0oster/adwarden/activedirectory"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MembershipIndex maps a user's account name to the group names on the paths
// that reached them, in traversal order. A user reachable through several
// paths accumulates one entry per path, most specific last.
type MembershipIndex map[string][]string

// builtinGroups are never expanded: recursing into them would fold most of
// the directory into every department.
var builtinGroups = map[string]struct{}{
	"Domain Users":     {},
	"Domain Computers": {},
	"Domain Guests":    {},
	"Domain Admins":    {},
	"Users":            {},
	"Guests":           {},
}

// groupDirectory is the slice of the directory adapter the crawler needs.
type groupDirectory interface {
	FindGroup(name string) (*activedirectory.GroupEntry, error)
	FetchMember(dn string) (*activedirectory.MemberEntry, error)
}

// Crawler walks group->member edges depth-first from one root group. All
// crawl state is owned by the Crawl call and discarded with its result;
// nothing survives between invocations.
type Crawler struct {
	directory groupDirectory
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func NewCrawler(directory groupDirectory, queriesPerSecond float64, logger *zap.Logger) *Crawler {
	return &Crawler{
		directory: directory,
		limiter:   rate.NewLimiter(rate.Limit(queriesPerSecond), 1),
		logger:    logger,
	}
}

type crawlState struct {
	index   MembershipIndex
	visited map[string]struct{}
}

// Crawl builds the membership index from rootGroup. A missing root degrades
// to an empty index with a warning; callers treat that as "no department
// data", not as an error.
func (c *Crawler) Crawl(ctx context.Context, rootGroup string) (MembershipIndex, error) {
	state := &crawlState{
		index:   make(MembershipIndex),
		visited: make(map[string]struct{}),
	}

	root, err := c.directory.FindGroup(rootGroup)
	if err != nil {
		if activedirectory.IsNotFound(err) {
			c.logger.Warn("root group not found, membership index is empty",
				zap.String("group", rootGroup))
			return state.index, nil
		}
		return nil, err
	}

	if err := c.walkGroup(ctx, state, root); err != nil {
		return nil, err
	}

	c.logger.Info("group crawl finished",
		zap.String("root", rootGroup),
		zap.Int("groups_visited", len(state.visited)),
		zap.Int("users_indexed", len(state.index)))
	return state.index, nil
}

// walkGroup expands one group. The visited set guarantees each group is
// expanded at most once per crawl, which also breaks membership cycles.
func (c *Crawler) walkGroup(ctx context.Context, state *crawlState, group *activedirectory.GroupEntry) error {
	groupID := group.Ref.ObjectGUID.String()
	if _, seen := state.visited[groupID]; seen {
		return nil
	}
	state.visited[groupID] = struct{}{}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	for _, memberDN := range group.Members {
		member, err := c.directory.FetchMember(memberDN)
		if err != nil {
			if activedirectory.IsNotFound(err) {
				c.logger.Warn("dangling member edge", zap.String("dn", memberDN))
				continue
			}
			return err
		}

		switch {
		case member.IsGroup:
			if _, builtin := builtinGroups[member.Name]; builtin {
				continue
			}
			child := &activedirectory.GroupEntry{
				Ref:     member.Ref,
				Name:    member.Name,
				Members: member.Members,
			}
			if err := c.walkGroup(ctx, state, child); err != nil {
				return err
			}
		case member.IsPerson && member.AccountName != "":
			state.index[member.AccountName] = append(state.index[member.AccountName], group.Name)
		}
	}

	return nil
}
