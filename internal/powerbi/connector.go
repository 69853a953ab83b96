// Package powerbi implements tabular.Connector over the Power BI REST API.
package powerbi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"powerbi-tom-skill/internal/common/errors"
	httpclient "powerbi-tom-skill/internal/common/http"
	"powerbi-tom-skill/internal/common/logger"
	"powerbi-tom-skill/internal/tabular"
)

// Options configures the REST connector.
type Options struct {
	APIBase     string
	Authority   string
	Scope       string
	Timeout     time.Duration
	Credentials CredentialSource
	HTTPClient  *httpclient.Client
	Logger      logger.Logger
}

// Connector opens a fresh REST session per Connect. Nothing is cached
// between sessions.
type Connector struct {
	apiBase   string
	authority string
	scope     string
	creds     CredentialSource
	http      *httpclient.Client
	logger    logger.Logger
}

func NewConnector(opts Options) (*Connector, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credentials source is required")
	}
	if opts.APIBase == "" {
		return nil, fmt.Errorf("api base is required")
	}
	if opts.Authority == "" {
		return nil, fmt.Errorf("authority is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = httpclient.NewClient(opts.Timeout)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}

	return &Connector{
		apiBase:   strings.TrimRight(opts.APIBase, "/"),
		authority: strings.TrimRight(opts.Authority, "/"),
		scope:     opts.Scope,
		creds:     opts.Credentials,
		http:      opts.HTTPClient,
		logger:    opts.Logger,
	}, nil
}

func (c *Connector) Connect(ctx context.Context, connectionString string) (tabular.Server, error) {
	workspace, err := tabular.ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	groupID, err := c.resolveGroup(ctx, token, workspace)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("workspace session opened", map[string]interface{}{
		"workspace": workspace,
		"groupId":   groupID,
	})

	return &session{
		connector: c,
		token:     token,
		workspace: workspace,
		groupID:   groupID,
	}, nil
}

func (c *Connector) token(ctx context.Context) (string, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return "", errors.NewCredentialsUnavailableError(err)
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"scope":         {c.scope},
	}
	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.authority, url.PathEscape(creds.TenantID))

	var resp tokenResponse
	if err := c.http.PostForm(ctx, endpoint, form, &resp); err != nil {
		return "", errors.NewCredentialsUnavailableError(err)
	}
	if resp.AccessToken == "" {
		return "", errors.NewCredentialsUnavailableError(fmt.Errorf("token endpoint returned no access_token"))
	}
	return resp.AccessToken, nil
}

func (c *Connector) resolveGroup(ctx context.Context, token, workspace string) (string, error) {
	filter := fmt.Sprintf("name eq '%s'", strings.ReplaceAll(workspace, "'", "''"))
	endpoint := c.apiBase + "/v1.0/myorg/groups?" + url.Values{"$filter": {filter}}.Encode()

	var groups groupList
	if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, token, nil, &groups); err != nil {
		return "", errors.NewWorkspaceConnectionFailedError(workspace, err)
	}
	for _, g := range groups.Value {
		if g.Name == workspace {
			return g.ID, nil
		}
	}
	return "", errors.NewWorkspaceConnectionFailedError(workspace, fmt.Errorf("workspace not visible to the service principal"))
}

func (c *Connector) groupURL(groupID string, parts ...string) string {
	segments := []string{c.apiBase, "v1.0/myorg/groups", url.PathEscape(groupID)}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(p))
	}
	return strings.Join(segments, "/")
}

// executeQuery runs one DAX query against a dataset and returns its rows.
func (c *Connector) executeQuery(ctx context.Context, token, groupID, datasetID, dax string) ([]map[string]any, error) {
	endpoint := c.groupURL(groupID, "datasets", datasetID, "executeQueries")
	body := queryRequest{
		Queries:            []query{{Query: dax}},
		SerializerSettings: serializerSettings{IncludeNulls: true},
	}

	var resp apiResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, endpoint, token, body, &resp); err != nil {
		return nil, errors.NewQueryExecutionFailedError(dax, err)
	}
	return resp.rows(), nil
}
