// Package azure implements embedding.EmbeddingProvider against an Azure
// OpenAI embeddings deployment.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"ai-docchat-be/pkg/apierr"
	"ai-docchat-be/pkg/credential"
)

type Provider struct {
	baseURL    string
	apiVersion string
	deployment string
	creds      credential.Provider
	client     *http.Client
}

func NewProvider(baseURL, apiVersion, deployment string, creds credential.Provider, timeout time.Duration) *Provider {
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		deployment: deployment,
		creds:      creds,
		client:     &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	payloadJSON, err := json.Marshal(embeddingRequest{Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s", p.baseURL, p.deployment, p.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadJSON))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	cred, err := p.creds.Current(ctx)
	if err != nil {
		return nil, err
	}
	if cred.Kind == credential.KindBearerToken {
		req.Header.Set("Authorization", "Bearer "+cred.Value)
	} else {
		req.Header.Set("api-key", cred.Value)
	}

	res, err := p.client.Do(req)
	if err != nil {
		kind := apierr.KindConnection
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			kind = apierr.KindTimeout
		}
		return nil, apierr.Wrap(kind, "embedding request", err)
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindConnection, "read response", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, apierr.New(apierr.ClassifyStatus(res.StatusCode), res.StatusCode, string(bodyBytes))
	}

	var embRes embeddingResponse
	if err := json.Unmarshal(bodyBytes, &embRes); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if embRes.Error != nil {
		return nil, fmt.Errorf("embedding api returned error: %s", embRes.Error.Message)
	}
	if len(embRes.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(embRes.Data), len(inputs))
	}

	// The API may reorder entries; restore input order via index.
	vectors := make([][]float32, len(inputs))
	for _, item := range embRes.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index out of range: %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
