package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/korjavin/sanbot/models"
	"github.com/rs/zerolog/log"
)

const deepseekAPIURL = "https://api.deepseek.com/v1/chat/completions"

// ErrNoResults is returned by EnrichTrend when there is no history to
// analyze; no API call is made in that case.
var ErrNoResults = errors.New("no results to analyze")

// Client manages interactions with the Deepseek API
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a new Deepseek API client. Every request is bounded by the
// given timeout on top of whatever context the caller passes in.
func New(apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: deepseekAPIURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type responseChoice struct {
	Message message `json:"message"`
}

type response struct {
	Choices []responseChoice `json:"choices"`
	ID      string           `json:"id,omitempty"`
}

// EnrichResult asks Deepseek for an interpretation of a single completed
// assessment. One call, no retry; the caller decides what a failure means.
func (c *Client) EnrichResult(ctx context.Context, wellBeing, activity, mood float64) (string, error) {
	prompt := fmt.Sprintf(`A user just completed the SAN questionnaire (well-being, activity, mood).
Scores are on a 1.0-7.0 scale where 5.0-5.5 is the published norm:

Well-being: %.1f
Activity: %.1f
Mood: %.1f

Write a short, friendly interpretation of these scores in 3-4 sentences.
Point out anything notably above or below the norm and give one practical
suggestion. Answer in plain text, no headings.`, wellBeing, activity, mood)

	return c.complete(ctx, prompt)
}

// EnrichTrend asks Deepseek to describe the trend across the user's recent
// assessments, newest first.
func (c *Client) EnrichTrend(ctx context.Context, results []models.SurveyResult) (string, error) {
	if len(results) == 0 {
		return "", ErrNoResults
	}

	var history strings.Builder
	for i, r := range results {
		fmt.Fprintf(&history, "%d. %s — well-being %.1f, activity %.1f, mood %.1f\n",
			i+1, r.CreatedAt.Format("2006-01-02 15:04"), r.WellBeing, r.Activity, r.Mood)
	}

	prompt := fmt.Sprintf(`Here are a user's most recent SAN questionnaire results, newest first.
Scores are on a 1.0-7.0 scale where 5.0-5.5 is the published norm:

%s
Describe in a few sentences how the user's well-being, activity and mood have
been developing over these assessments, and whether anything deserves
attention. Answer in plain text, no headings.`, history.String())

	return c.complete(ctx, prompt)
}

// complete performs one chat-completion call and returns the generated text.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := request{
		Model: "deepseek-chat",
		Messages: []message{
			{Role: "user", Content: prompt},
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("deepseek request timed out after %v: %w", time.Since(start), err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("no choices in API response")
	}

	content := parsed.Choices[0].Message.Content
	log.Debug().
		Dur("took", time.Since(start)).
		Int("length", len(content)).
		Msg("deepseek completion finished")

	return content, nil
}
