package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/config"
)

// ITurnstileVerifier defines the interface for verifying Cloudflare Turnstile tokens.
type ITurnstileVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// CloudflareResponse is the expected structure from the siteverify endpoint.
type CloudflareResponse struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
}

// turnstileVerifier implements ITurnstileVerifier.
type turnstileVerifier struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewTurnstileVerifier creates a new Turnstile verifier.
func NewTurnstileVerifier(cfg *config.Config) ITurnstileVerifier {
	return &turnstileVerifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Verify calls the Cloudflare siteverify endpoint. When no secret key is
// configured (local development), verification is skipped.
func (v *turnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if v.cfg.CloudflareTurnstileSecretKey == "" {
		log.Println("WARN: Cloudflare Turnstile secret key not configured. Skipping verification.")
		return true, nil
	}

	formData := map[string]string{
		"secret":   v.cfg.CloudflareTurnstileSecretKey,
		"response": token,
	}
	if remoteIP != "" {
		formData["remoteip"] = remoteIP
	}

	jsonData, _ := json.Marshal(formData)
	req, err := http.NewRequestWithContext(ctx, "POST", v.cfg.CloudflareSiteVerifyURL, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Printf("Error creating Turnstile request: %v", err)
		return false, fmt.Errorf("failed to create turnstile request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		log.Printf("Error calling Turnstile siteverify: %v", err)
		return false, fmt.Errorf("failed to contact turnstile service")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Error reading Turnstile response body: %v", err)
		return false, fmt.Errorf("failed to read turnstile response")
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("Turnstile siteverify returned non-OK status: %d - Body: %s", resp.StatusCode, string(body))
		return false, fmt.Errorf("turnstile verification failed with status %d", resp.StatusCode)
	}

	var cfResp CloudflareResponse
	if err := json.Unmarshal(body, &cfResp); err != nil {
		log.Printf("Error unmarshalling Turnstile response: %v", err)
		return false, fmt.Errorf("failed to parse turnstile response")
	}

	if !cfResp.Success {
		log.Printf("Turnstile verification failed: %v", cfResp.ErrorCodes)
	}
	return cfResp.Success, nil
}
