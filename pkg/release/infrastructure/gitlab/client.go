// Package gitlab talks to the GitLab v4 REST API.
package gitlab

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
	"github.com/tss-calculator/release-tools/pkg/release/application/service"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/remote"
)

const (
	tokenHeader    = "PRIVATE-TOKEN"
	connectTimeout = 10 * time.Second
	requestTimeout = 30 * time.Second

	dryRunMergeRequestURL = "(dry-run: merge request not created)"
)

var errMissingWebURL = errors.New("api returned no web_url")

type Config struct {
	BaseURL   string
	Token     string
	VerifyTLS bool
	DryRun    bool
}

func NewClient(config Config, logger applogger.Logger) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	if !config.VerifyTLS {
		// nolint:gosec
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.Token,
		dryRun:  config.DryRun,
		logger:  logger,
		http: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
	}
}

var _ service.HostingClient = (*Client)(nil)

type Client struct {
	baseURL string
	token   string
	dryRun  bool
	logger  applogger.Logger
	http    *http.Client
}

type project struct {
	ID                int    `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
}

type updateProjectRequest struct {
	DefaultBranch string `json:"default_branch"`
}

type createMergeRequestRequest struct {
	SourceBranch       string `json:"source_branch"`
	TargetBranch       string `json:"target_branch"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	RemoveSourceBranch bool   `json:"remove_source_branch"`
}

type mergeRequest struct {
	IID    int    `json:"iid"`
	WebURL string `json:"web_url"`
}

// ResolveProjectID looks up the hosted project of remoteURL. In dry-run mode
// it always answers model.DryRunProjectID, even for remotes that are not hosted.
func (c *Client) ResolveProjectID(ctx context.Context, remoteURL string) (model.ProjectRef, error) {
	projectPath, err := remote.ProjectPath(remoteURL)
	if c.dryRun {
		if err != nil {
			c.logger.Warning(err, "[dry-run] remote would not resolve to a hosted project")
		} else {
			c.logger.Info(fmt.Sprintf("[dry-run] skip project lookup for \"%v\"", projectPath))
		}
		return model.DryRunProjectID, nil
	}
	if err != nil {
		return 0, err
	}
	var p project
	err = c.call(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectPath), nil, &p)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return 0, errors.Wrapf(model.ErrNotFound, "project %v: %v", projectPath, err)
		}
		return 0, err
	}
	if p.ID <= 0 {
		return 0, errors.Wrapf(model.ErrNotFound, "project %v has no usable id", projectPath)
	}
	c.logger.Debug(fmt.Sprintf("project \"%v\" has id %d", projectPath, p.ID))
	return p.ID, nil
}

func (c *Client) SetDefaultBranch(ctx context.Context, projectID model.ProjectRef, branch string) error {
	if c.dryRun {
		c.logger.Info(fmt.Sprintf("[dry-run] skip setting default branch of project %d to \"%v\"", projectID, branch))
		return nil
	}
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/projects/%d", projectID), updateProjectRequest{DefaultBranch: branch}, nil)
}

func (c *Client) OpenMergeRequest(ctx context.Context, projectID model.ProjectRef, request service.MergeRequest) (string, error) {
	if c.dryRun {
		c.logger.Info(fmt.Sprintf("[dry-run] skip merge request \"%v\" from \"%v\" to \"%v\"", request.Title, request.SourceBranch, request.TargetBranch))
		return dryRunMergeRequestURL, nil
	}
	var mr mergeRequest
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/projects/%d/merge_requests", projectID), createMergeRequestRequest{
		SourceBranch:       request.SourceBranch,
		TargetBranch:       request.TargetBranch,
		Title:              request.Title,
		Description:        request.Description,
		RemoveSourceBranch: false,
	}, &mr)
	if err != nil {
		return "", err
	}
	if mr.WebURL == "" {
		c.logger.Warning(errMissingWebURL, fmt.Sprintf("merge request \"%v\" was created", request.Title))
	}
	return mr.WebURL, nil
}

// call sends one authenticated request. A nil body sends no payload, a nil
// result discards the response payload.
func (c *Client) call(ctx context.Context, method, path string, body, result any) error {
	endpoint := c.baseURL + path
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "failed to encode request to %v", endpoint)
		}
		payload = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return errors.Wrapf(err, "failed to build request to %v", endpoint)
	}
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.logger.Debug(fmt.Sprintf("%v %v", method, endpoint))

	resp, err := c.http.Do(req)
	if err != nil {
		return &model.ConnectivityError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.ConnectivityError{URL: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &model.APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   method + " " + endpoint,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	if result == nil || len(respBody) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(respBody, result), "failed to decode response of %v", endpoint)
}
