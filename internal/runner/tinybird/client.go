package tinybird

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/joacominatel/birdq/internal/runner"
)

// Endpoint templates, formatted with the configured base URL.
const (
	sqlEndpoint         = "%s/v0/sql"
	datasourcesEndpoint = "%s/v0/datasources"
	pipesEndpoint       = "%s/v0/pipes"
)

func (r *Runner) get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	target := fmt.Sprintf(endpoint, r.cfg.URL)
	full := target
	if len(params) > 0 {
		full += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, connectionError(target, 0, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("request failed", "url", target, "err", err)
		return nil, connectionError(target, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectionError(target, resp.StatusCode, err)
	}
	r.logger.Debug("request", "url", target, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &runner.Error{
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, connectionError(target, resp.StatusCode, err)
	}
	return raw, nil
}

func connectionError(target string, status int, cause error) *runner.Error {
	details := diagnostic(cause)
	if status > 0 {
		details = fmt.Sprintf("%s, Status Code: %d", details, status)
	}
	return &runner.Error{
		URL:        target,
		StatusCode: status,
		Message:    fmt.Sprintf("Connection error to: %s (%s).", target, details),
		Cause:      cause,
	}
}

// diagnostic names the class of a transport failure.
func diagnostic(err error) string {
	var (
		urlErr    *url.Error
		netErr    net.Error
		certErr   *tls.CertificateVerificationError
		authErr   x509.UnknownAuthorityError
		hostErr   x509.HostnameError
		dnsErr    *net.DNSError
		opErr     *net.OpError
		syntaxErr *json.SyntaxError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return "Timeout"
	case errors.As(err, &certErr), errors.As(err, &authErr), errors.As(err, &hostErr):
		return "SSLError"
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return "ConnectionError"
	case errors.As(err, &syntaxErr):
		return "JSONDecodeError"
	case errors.As(err, &urlErr):
		return fmt.Sprintf("%T", urlErr.Err)
	default:
		return fmt.Sprintf("%T", err)
	}
}
