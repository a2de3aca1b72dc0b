// Package analytics implements the client for the remote analytics dataset
// API: dataset discovery, field metadata via XMD, and SAQL record queries.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	config "github.com/tigerroll/swell/internal/core/config"
	model "github.com/tigerroll/swell/internal/core/domain/model"
	"github.com/tigerroll/swell/internal/support/exception"
	"github.com/tigerroll/swell/internal/support/logger"
)

const moduleName = "analytics"

// Client is the interface to the remote analytics dataset API.
type Client interface {
	// ListDatasets returns the datasets visible to the configured credentials.
	ListDatasets(ctx context.Context) ([]*model.Dataset, error)
	// ListFields returns the fields (dimensions and measures) of a dataset.
	ListFields(ctx context.Context, datasetID string) ([]*model.DatasetField, error)
	// Query pulls records from a dataset with a row limit, an optional raw
	// SAQL filter fragment and an optional set of equality filters.
	Query(ctx context.Context, datasetID string, fields []string, limit int, savedFilter string, filters map[string]string) ([]map[string]interface{}, error)
}

// RestClient is the REST implementation of Client.
type RestClient struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	tokens     TokenSource
}

var _ Client = (*RestClient)(nil)

// NewRestClient creates a RestClient from the application configuration.
func NewRestClient(cfg *config.Config) *RestClient {
	aCfg := cfg.Swell.Analytics
	timeout := time.Duration(aCfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &RestClient{
		baseURL:    strings.TrimRight(aCfg.BaseURL, "/"),
		apiVersion: aCfg.APIVersion,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     NewStaticTokenSource(aCfg.AccessToken),
	}
}

// NewRestClientWithTokenSource creates a RestClient with a custom token source.
func NewRestClientWithTokenSource(cfg *config.Config, tokens TokenSource) *RestClient {
	c := NewRestClient(cfg)
	c.tokens = tokens
	return c
}

// apiURL builds a full API URL from a path under /services/data/<version>.
func (c *RestClient) apiURL(path string) string {
	return fmt.Sprintf("%s/services/data/%s/%s", c.baseURL, c.apiVersion, strings.TrimLeft(path, "/"))
}

// doRequest performs an authenticated request. A 401 response triggers one
// token refresh and retry.
func (c *RestClient) doRequest(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	send := func(token string) (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to create request for %s", url), err, false, false)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to obtain access token", err, false, true)
	}

	resp, err := send(token)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("request to %s failed", url), err, false, true)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		logger.Infof("Access token expired, re-authenticating...")
		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, "failed to refresh access token", err, false, false)
		}
		resp, err = send(token)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("request to %s failed after re-authentication", url), err, false, true)
		}
	}

	return resp, nil
}

// getJSON performs a GET and decodes the response body into out.
func (c *RestClient) getJSON(ctx context.Context, url string, out interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= 500
		return exception.NewBatchErrorf(moduleName, "GET %s returned status %d: %s", url, resp.StatusCode, string(detail), false, retryable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to decode response from %s", url), err, false, false)
	}
	return nil
}

// ListDatasets returns the datasets visible to the configured credentials.
func (c *RestClient) ListDatasets(ctx context.Context) ([]*model.Dataset, error) {
	var payload struct {
		Datasets []struct {
			ID               string `json:"id"`
			Name             string `json:"name"`
			Label            string `json:"label"`
			CurrentVersionID string `json:"currentVersionId"`
			TotalRows        int64  `json:"totalRows"`
			LastModifiedDate string `json:"lastModifiedDate"`
			CreatedBy        struct {
				Name string `json:"name"`
			} `json:"createdBy"`
			Type string `json:"type"`
		} `json:"datasets"`
	}
	if err := c.getJSON(ctx, c.apiURL("wave/datasets"), &payload); err != nil {
		return nil, err
	}

	datasets := make([]*model.Dataset, 0, len(payload.Datasets))
	for _, d := range payload.Datasets {
		label := d.Label
		if label == "" {
			label = d.Name
		}
		dsType := d.Type
		if dsType == "" {
			dsType = "dataset"
		}
		datasets = append(datasets, &model.Dataset{
			ID:               d.ID,
			Name:             d.Name,
			Label:            label,
			CurrentVersionID: d.CurrentVersionID,
			RowCount:         d.TotalRows,
			LastModifiedDate: d.LastModifiedDate,
			CreatedBy:        d.CreatedBy.Name,
			Type:             dsType,
		})
	}
	return datasets, nil
}

// currentVersionID resolves a dataset's current version ID.
func (c *RestClient) currentVersionID(ctx context.Context, datasetID string) (string, error) {
	var payload struct {
		CurrentVersionID string `json:"currentVersionId"`
	}
	if err := c.getJSON(ctx, c.apiURL("wave/datasets/"+datasetID), &payload); err != nil {
		return "", err
	}
	if payload.CurrentVersionID == "" {
		return "", exception.NewBatchErrorf(moduleName, "could not find current version for dataset %s", datasetID)
	}
	return payload.CurrentVersionID, nil
}

// ListFields returns the fields of a dataset, extracted from the XMD
// dimensions and measures of its current version.
func (c *RestClient) ListFields(ctx context.Context, datasetID string) ([]*model.DatasetField, error) {
	versionID, err := c.currentVersionID(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	var xmd struct {
		Dimensions []struct {
			Field string `json:"field"`
			Label string `json:"label"`
			Type  string `json:"type"`
		} `json:"dimensions"`
		Measures []struct {
			Field string `json:"field"`
			Label string `json:"label"`
			Type  string `json:"type"`
		} `json:"measures"`
	}
	xmdURL := c.apiURL(fmt.Sprintf("wave/datasets/%s/versions/%s/xmds/main", datasetID, versionID))
	if err := c.getJSON(ctx, xmdURL, &xmd); err != nil {
		return nil, err
	}

	fields := make([]*model.DatasetField, 0, len(xmd.Dimensions)+len(xmd.Measures))
	for _, d := range xmd.Dimensions {
		label := d.Label
		if label == "" {
			label = d.Field
		}
		dataType := d.Type
		if dataType == "" {
			dataType = "Text"
		}
		fields = append(fields, &model.DatasetField{
			Name:     d.Field,
			Label:    label,
			Type:     "dimension",
			DataType: dataType,
		})
	}
	for _, m := range xmd.Measures {
		label := m.Label
		if label == "" {
			label = m.Field
		}
		dataType := m.Type
		if dataType == "" {
			dataType = "Numeric"
		}
		fields = append(fields, &model.DatasetField{
			Name:     m.Field,
			Label:    label,
			Type:     "measure",
			DataType: dataType,
		})
	}

	logger.Debugf("Found %d fields for dataset %s.", len(fields), datasetID)
	return fields, nil
}

// buildSAQL constructs the SAQL statement for a record query. The saved
// filter is an opaque SAQL expression and is emitted as written; filter keys
// are sorted so generated queries are deterministic.
func buildSAQL(datasetID, versionID string, fields []string, limit int, savedFilter string, filters map[string]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "q = load %q;", datasetID+"/"+versionID)

	if f := strings.TrimSpace(savedFilter); f != "" {
		fmt.Fprintf(&sb, "\nq = filter q by %s;", f)
	}

	if len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for k := range filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		conditions := make([]string, 0, len(keys))
		for _, k := range keys {
			conditions = append(conditions, fmt.Sprintf("%q == %q", k, filters[k]))
		}
		fmt.Fprintf(&sb, "\nq = filter q by %s;", strings.Join(conditions, " && "))
	}

	if len(fields) > 0 {
		// Field names are not quoted in foreach generate.
		fmt.Fprintf(&sb, "\nq = foreach q generate %s;", strings.Join(fields, ", "))
	}

	fmt.Fprintf(&sb, "\nq = limit q %d;", limit)
	return sb.String()
}

// Query pulls records from a dataset using a SAQL query. Cell values wrapped
// in {"value": ...} objects are unwrapped to their plain values.
func (c *RestClient) Query(ctx context.Context, datasetID string, fields []string, limit int, savedFilter string, filters map[string]string) ([]map[string]interface{}, error) {
	versionID, err := c.currentVersionID(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	saql := buildSAQL(datasetID, versionID, fields, limit, savedFilter, filters)
	logger.Debugf("Executing SAQL query:\n%s", saql)

	body, err := json.Marshal(map[string]string{"query": saql})
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to marshal SAQL query", err, false, false)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, c.apiURL("wave/query"), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= 500
		return nil, exception.NewBatchErrorf(moduleName, "query failed with status %d: %s", resp.StatusCode, string(detail), false, retryable)
	}

	var payload struct {
		Results struct {
			Records []map[string]interface{} `json:"records"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to decode query response", err, false, false)
	}

	results := make([]map[string]interface{}, 0, len(payload.Results.Records))
	for _, record := range payload.Results.Records {
		flat := make(map[string]interface{}, len(record))
		for key, value := range record {
			if wrapped, ok := value.(map[string]interface{}); ok {
				if inner, ok := wrapped["value"]; ok {
					flat[key] = inner
					continue
				}
			}
			flat[key] = value
		}
		results = append(results, flat)
	}

	logger.Debugf("Query returned %d records from dataset %s.", len(results), datasetID)
	return results, nil
}
