// Package remote annotates branch analysis with state from the hosting
// service: whether the branch exists on the remote and whether an open
// pull request targets the base branch. The engine is fully functional
// without it; the inspector is only attached when a token is configured.
package remote

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"mergeq.dev/mergeq/internal/retry"
)

// Inspector queries GitHub for branch state
type Inspector struct {
	client *github.Client
	owner  string
	repo   string
	policy retry.Policy
}

// NewInspector creates an inspector for owner/repo authenticated by token
func NewInspector(ctx context.Context, token, owner, repo string, policy retry.Policy) (*Inspector, error) {
	if token == "" {
		return nil, fmt.Errorf("github token not configured")
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("github owner/repo not configured")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	return &Inspector{client: client, owner: owner, repo: repo, policy: policy}, nil
}

// BranchStatus returns remote metadata for a branch. Network failures are
// retried under the configured policy before surfacing.
func (i *Inspector) BranchStatus(ctx context.Context, branch string) (map[string]string, error) {
	meta := map[string]string{}

	err := i.policy.Do(ctx, "github branch lookup", func() error {
		_, resp, err := i.client.Repositories.GetBranch(ctx, i.owner, i.repo, branch, 0)
		if resp != nil && resp.StatusCode == 404 {
			meta["remoteExists"] = "false"
			return nil
		}
		if err != nil {
			return err
		}
		meta["remoteExists"] = "true"
		return nil
	})
	if err != nil {
		return nil, err
	}

	if meta["remoteExists"] != "true" {
		return meta, nil
	}

	err = i.policy.Do(ctx, "github pr lookup", func() error {
		prs, _, err := i.client.PullRequests.List(ctx, i.owner, i.repo, &github.PullRequestListOptions{
			Head:  i.owner + ":" + branch,
			State: "open",
		})
		if err != nil {
			return err
		}
		if len(prs) > 0 {
			pr := prs[0]
			meta["prNumber"] = strconv.Itoa(pr.GetNumber())
			meta["prState"] = pr.GetState()
			meta["prBase"] = pr.GetBase().GetRef()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return meta, nil
}
