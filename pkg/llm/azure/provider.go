// Package azure implements llm.ChatProvider against an Azure OpenAI
// chat-completions deployment, including SSE token streaming. Errors are
// classified into the pkg/apierr taxonomy at this boundary.
package azure

import (
	"bufio"
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
	"ai-docchat-be/pkg/llm"
)

type Provider struct {
	baseURL     string
	apiVersion  string
	deployment  string
	temperature float64
	creds       credential.Provider
	client      *http.Client
}

func NewProvider(baseURL, apiVersion, deployment string, temperature float64, creds credential.Provider, timeout time.Duration) *Provider {
	return &Provider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiVersion:  apiVersion,
		deployment:  deployment,
		temperature: temperature,
		creds:       creds,
		client:      &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	res, err := p.send(ctx, history, false, options)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return "", classifyTransport("read response", err)
	}

	var chatRes chatResponse
	if err := json.Unmarshal(bodyBytes, &chatRes); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chatRes.Choices) == 0 {
		return "", fmt.Errorf("empty choices from chat completion")
	}
	return chatRes.Choices[0].Message.Content, nil
}

func (p *Provider) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (*llm.Stream, error) {
	stream := llm.NewStream(16)
	go p.runStream(ctx, stream, history, options)
	return stream, nil
}

func (p *Provider) runStream(ctx context.Context, stream *llm.Stream, history []llm.Message, options []llm.Option) {
	res, err := p.send(ctx, history, true, options)
	if err != nil {
		stream.Close(err)
		return
	}
	defer res.Body.Close()

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			stream.Close(nil)
			return
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue // malformed keep-alive lines are skipped
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			stream.EmitDelta(chunk.Choices[0].Delta.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		stream.Close(classifyTransport("read stream", err))
		return
	}
	// Transport ended without the [DONE] marker: treat as an interrupted
	// connection so the caller's retry discipline can restart the call.
	stream.Close(apierr.New(apierr.KindConnection, 0, "stream ended before completion marker"))
}

func (p *Provider) send(ctx context.Context, history []llm.Message, streaming bool, options []llm.Option) (*http.Response, error) {
	opts := &llm.Options{
		Temperature: p.temperature,
		Model:       p.deployment,
	}
	for _, o := range options {
		o(opts)
	}

	payload := chatRequest{
		Messages:    history,
		Temperature: opts.Temperature,
		Stream:      streaming,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", p.baseURL, opts.Model, p.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadJSON))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Fetching the credential here means every retry attempt re-checks
	// bearer freshness through the provider.
	cred, err := p.creds.Current(ctx)
	if err != nil {
		return nil, err
	}
	applyCredential(req, cred)

	res, err := p.client.Do(req)
	if err != nil {
		return nil, classifyTransport("chat completion request", err)
	}

	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()
		bodyBytes, _ := io.ReadAll(res.Body)
		return nil, apierr.New(apierr.ClassifyStatus(res.StatusCode), res.StatusCode, apiMessage(bodyBytes))
	}
	return res, nil
}

func applyCredential(req *http.Request, cred credential.Credential) {
	if cred.Kind == credential.KindBearerToken {
		req.Header.Set("Authorization", "Bearer "+cred.Value)
		return
	}
	req.Header.Set("api-key", cred.Value)
}

func apiMessage(body []byte) string {
	var errRes errorResponse
	if err := json.Unmarshal(body, &errRes); err == nil && errRes.Error.Message != "" {
		return errRes.Error.Message
	}
	return string(body)
}

func classifyTransport(op string, err error) *apierr.Error {
	kind := apierr.KindConnection
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = apierr.KindTimeout
	}
	return apierr.Wrap(kind, op, err)
}
