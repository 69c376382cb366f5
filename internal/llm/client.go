package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"

	"tendermatch/internal"
)

type Config struct {
	BaseURL     string
	APIKey      string // falls back to env LLM_API_KEY
	Model       string
	Temperature float32
	Timeout     time.Duration
	MaxInputLen int // document excerpt cap in characters
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("LLM_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxInputLen <= 0 {
		cfg.MaxInputLen = 4000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

type contractFields struct {
	LeaseCost        *float64 `json:"lease_cost"`
	PaymentFrequency *string  `json:"payment_frequency"`
	MonoCPC          *float64 `json:"mono_cpc"`
	ColourCPC        *float64 `json:"colour_cpc"`
	StartDate        *string  `json:"start_date"`
	EndDate          *string  `json:"end_date"`
	MachineModel     *string  `json:"machine_model"`
	LeasingCompany   *string  `json:"leasing_company"`
}

const systemPrompt = `You extract lease contract details from UK photocopier invoices.
Monetary values are pounds sterling; cost-per-copy values are pounds per page
(convert pence: 0.45p = 0.0045). Dates are YYYY-MM-DD. Use null for anything
not stated in the document. Return ONLY a JSON object.`

// ExtractContract asks the completion endpoint for the contract fields hidden
// in text. Any transport, decode, or schema failure is returned as an error;
// callers keep their regex extraction in that case.
func (c *Client) ExtractContract(ctx context.Context, text string) (internal.CurrentContract, error) {
	rid := uuid.New().String()
	start := time.Now()

	if len(text) > c.cfg.MaxInputLen {
		// Back the cut off to a rune boundary so pound signs and dashes in
		// invoice text are never split mid-sequence.
		cut := c.cfg.MaxInputLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	c.log.Info("llm.contract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(text),
	)

	schema := BuildContractJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": systemPrompt},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
			{"role": "user", "content": text},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.contract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return internal.CurrentContract{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.contract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return internal.CurrentContract{}, fmt.Errorf("decode completion response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return internal.CurrentContract{}, fmt.Errorf("no choices in completion response")
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	if err := ValidateJSONAgainstSchema(schema, content); err != nil {
		c.log.Warn("llm.contract.schema_validation_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return internal.CurrentContract{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var fields contractFields
	if err := json.Unmarshal(content, &fields); err != nil {
		return internal.CurrentContract{}, fmt.Errorf("unmarshal fields: %w", err)
	}

	out := fields.toContract()
	c.log.Info("llm.contract.ok",
		"req_id", rid,
		"has_lease", out.LeaseCost != nil,
		"has_end_date", out.EndDate != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (f contractFields) toContract() internal.CurrentContract {
	out := internal.CurrentContract{
		LeaseCost:      f.LeaseCost,
		MonoCPC:        f.MonoCPC,
		ColourCPC:      f.ColourCPC,
		MachineModel:   trimmed(f.MachineModel),
		LeasingCompany: trimmed(f.LeasingCompany),
	}
	if f.PaymentFrequency != nil {
		switch internal.PaymentFrequency(strings.ToLower(*f.PaymentFrequency)) {
		case internal.FrequencyMonthly, internal.FrequencyQuarterly, internal.FrequencyAnnual:
			freq := internal.PaymentFrequency(strings.ToLower(*f.PaymentFrequency))
			out.PaymentFrequency = &freq
		}
	}
	if f.StartDate != nil {
		if ts, err := dateparse.ParseAny(*f.StartDate); err == nil {
			out.StartDate = &ts
		}
	}
	if f.EndDate != nil {
		if ts, err := dateparse.ParseAny(*f.EndDate); err == nil {
			out.EndDate = &ts
		}
	}
	return out
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm http error: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Warn("llm response body close error", "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llm status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
