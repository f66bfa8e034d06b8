package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"
)

type githubClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewGitHubClient builds the external issue tracker client. baseURL defaults
// to the public GitHub API; token is optional and raises the rate limit.
func NewGitHubClient(baseURL, token string) IssueTracker {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &githubClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *githubClient) FetchIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.baseURL, owner, repo, number)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.ExternalServiceCall("github", "fetch_issue", "owner", owner, "repo", repo, "number", number)
	resp, err := c.client.Do(req)
	if err != nil {
		logger.ExternalServiceResult("github", "fetch_issue", err)
		return nil, fmt.Errorf("failed to fetch issue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("github responded %d for %s/%s#%d", resp.StatusCode, owner, repo, number)
		logger.ExternalServiceResult("github", "fetch_issue", err)
		return nil, err
	}

	var issue Issue
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		logger.ExternalServiceResult("github", "fetch_issue", err)
		return nil, fmt.Errorf("failed to decode issue: %w", err)
	}
	logger.ExternalServiceResult("github", "fetch_issue", nil)
	return &issue, nil
}

// ParseIssueURL extracts owner, repository and issue number from an issue
// URL in either the web form (github.com/{owner}/{repo}/issues/{n}) or the
// API form (.../repos/{owner}/{repo}/issues/{n}).
func ParseIssueURL(issueURL string) (owner, repo string, number int, err error) {
	u, err := url.Parse(issueURL)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid issue url %q: %w", issueURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && parts[0] == "repos" {
		parts = parts[1:]
	}
	if len(parts) != 4 || parts[2] != "issues" {
		return "", "", 0, fmt.Errorf("invalid issue url %q", issueURL)
	}
	number, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid issue number in %q: %w", issueURL, err)
	}
	return parts[0], parts[1], number, nil
}
