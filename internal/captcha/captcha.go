// Package captcha validates client-supplied human-verification tokens
// against a reCAPTCHA-style siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultVerifyURL is Google's siteverify endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// DefaultMinScore is the acceptance threshold for v3-style scores.
// Scores strictly below it are rejected.
const DefaultMinScore = 0.5

const verifyTimeout = 10 * time.Second

var (
	// ErrNotConfigured means the server-side shared secret is missing.
	// The request cannot be verified but the process is healthy.
	ErrNotConfigured = errors.New("captcha secret is not configured")
	// ErrMissingToken means the client sent no captcha token.
	ErrMissingToken = errors.New("captcha token is required")
)

// Kind classifies a verification failure.
type Kind string

const (
	// KindUnavailable covers network errors and timeouts reaching the
	// verification service; safe for the client to retry.
	KindUnavailable Kind = "unavailable"
	// KindRejected means the service reported the token invalid.
	KindRejected Kind = "rejected"
	// KindLowScore means the returned score fell below the threshold.
	KindLowScore Kind = "low_score"
	// KindActionMismatch means the token was minted for another action.
	KindActionMismatch Kind = "action_mismatch"
)

// Error describes why a captcha check failed, with a reason fit to show
// to the client.
type Error struct {
	Kind      Kind
	Reason    string
	Retryable bool
}

func (e *Error) Error() string { return e.Reason }

// Verdict is the transient outcome of one verification call. Score is
// nil for v2-style responses that carry none.
type Verdict struct {
	Success    bool
	Score      *float64
	Action     string
	ErrorCodes []string
}

type Verifier struct {
	secret    string
	verifyURL string
	minScore  float64
	client    *http.Client
	logger    logrus.FieldLogger
}

func NewVerifier(secret, verifyURL string, minScore float64, logger logrus.FieldLogger) *Verifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Verifier{
		secret:    strings.TrimSpace(secret),
		verifyURL: verifyURL,
		minScore:  minScore,
		client:    &http.Client{Timeout: verifyTimeout},
		logger:    logger,
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks token against the verification service. expectedAction
// is only enforced when the service echoes an action back, so v2 tokens
// (which carry neither score nor action) still pass.
func (v *Verifier) Verify(ctx context.Context, token, expectedAction string) (Verdict, error) {
	if v.secret == "" {
		return Verdict{}, ErrNotConfigured
	}
	if strings.TrimSpace(token) == "" {
		return Verdict{}, ErrMissingToken
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Verdict{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Warnf("captcha service unreachable: %v", err)
		reason := "captcha service is unreachable, please try again"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "captcha verification timed out, please try again"
		}
		return Verdict{}, &Error{Kind: KindUnavailable, Reason: reason, Retryable: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Verdict{}, &Error{Kind: KindUnavailable, Reason: "captcha service returned an unreadable response, please try again", Retryable: true}
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Verdict{}, &Error{Kind: KindUnavailable, Reason: "captcha service returned an invalid response, please try again", Retryable: true}
	}

	verdict := Verdict{
		Success:    result.Success,
		Score:      result.Score,
		Action:     result.Action,
		ErrorCodes: result.ErrorCodes,
	}

	if !result.Success {
		reason := describeErrorCodes(result.ErrorCodes)
		v.logger.Infof("captcha rejected: %s", reason)
		return verdict, &Error{Kind: KindRejected, Reason: reason}
	}

	if result.Score != nil && *result.Score < v.minScore {
		v.logger.Infof("captcha score %.2f below threshold %.2f", *result.Score, v.minScore)
		return verdict, &Error{
			Kind:   KindLowScore,
			Reason: fmt.Sprintf("captcha score %.2f is below the acceptance threshold", *result.Score),
		}
	}

	if expectedAction != "" && result.Action != "" && result.Action != expectedAction {
		return verdict, &Error{
			Kind:   KindActionMismatch,
			Reason: fmt.Sprintf("captcha action %q does not match expected action %q", result.Action, expectedAction),
		}
	}

	return verdict, nil
}

func describeErrorCodes(codes []string) string {
	if len(codes) == 0 {
		return "captcha verification failed"
	}

	messages := make([]string, 0, len(codes))
	for _, code := range codes {
		switch code {
		case "missing-input-secret":
			messages = append(messages, "verification secret was not sent")
		case "invalid-input-secret":
			messages = append(messages, "verification secret is invalid")
		case "missing-input-response":
			messages = append(messages, "captcha token was not sent")
		case "invalid-input-response":
			messages = append(messages, "captcha token is invalid or expired")
		case "timeout-or-duplicate":
			messages = append(messages, "captcha token has timed out or was already used")
		case "bad-request":
			messages = append(messages, "verification request was malformed")
		default:
			messages = append(messages, fmt.Sprintf("verification failed (%s)", code))
		}
	}
	return strings.Join(messages, ", ")
}
