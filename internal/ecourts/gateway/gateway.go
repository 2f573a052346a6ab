// Package gateway owns the http session against the ecourts portal and executes
// named upstream operations under a bounded retry policy.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"casetrack-backend/internal/components/assert"
	"casetrack-backend/internal/components/retry"
	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/ecourts"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://hcservices.ecourts.gov.in/ecourtindiaHC"
	DefaultCaptchaURL = "https://hcservices.ecourts.gov.in/ecourtindiaHC/securimage/securimage_show.php"
	DefaultUserAgent  = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
)

const (
	report_gateway_execute = "gateway.execute"
	report_gateway_captcha = "gateway.captcha"
	report_gateway_record  = "gateway.record"
)

// markers are only looked for in the head of the body.
const markerWindow = 30

var tracer = otel.Tracer("casetrack-backend/internal/ecourts/gateway")

// Operation names a fixed upstream endpoint.
type Operation struct {
	// Name identifies the operation in errors and telemetry.
	Name string
	Path string
	// Method defaults to POST.
	Method string
	// Action is sent as action_code when set.
	Action string
	// Court attaches the court scoping params (state_code, dist_code, court_code).
	Court bool
	// Captcha attaches a freshly solved captcha on every attempt.
	Captcha bool
}

func (o Operation) method() string {
	if o.Method == "" {
		return http.MethodPost
	}
	return o.Method
}

// ImageSource hands out fresh captcha challenges over the gateway's session.
type ImageSource interface {
	CaptchaImage(ctx context.Context) ([]byte, error)
}

// CaptchaSolver turns challenges from src into a token.
type CaptchaSolver interface {
	Solve(ctx context.Context, src ImageSource) (string, error)
}

// Recorder keeps successful responses, see archive.Archive.
type Recorder interface {
	Put(ctx context.Context, endpoint string, params map[string]string, body []byte) error
}

type Options struct {
	BaseURL    string
	CaptchaURL string
	UserAgent  string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// RequestsPerSecond limits outgoing requests, 0 disables the limiter.
	RequestsPerSecond float64

	Retry retry.Policy
	// Solver is required for operations that need a captcha.
	Solver CaptchaSolver
	// Recorder is optional.
	Recorder Recorder
}

// DefaultOptions mirrors the portal's observed tolerances.
func DefaultOptions() Options {
	return Options{
		BaseURL:           DefaultBaseURL,
		CaptchaURL:        DefaultCaptchaURL,
		UserAgent:         DefaultUserAgent,
		ConnectTimeout:    5 * time.Second,
		ReadTimeout:       10 * time.Second,
		RequestsPerSecond: 1,
		Retry: retry.Policy{
			Attempts: 3,
			Delay:    time.Second,
		},
	}
}

// Gateway executes operations for a single court over a single cookie bearing
// session. Calls are serialized, it is safe to share between goroutines.
type Gateway struct {
	court      ecourts.Court
	captchaURL string
	http       *resty.Client
	solver     CaptchaSolver
	recorder   Recorder
	retry      retry.Policy
	tel        telemetry.API

	mutex sync.Mutex
}

func New(court ecourts.Court, opts Options, tel telemetry.API) (*Gateway, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("ecourts_gateway", tel)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
		ResponseHeaderTimeout: opts.ReadTimeout,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	})
	// a redirect is returned as is, its Location carries upstream error pages
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	if opts.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	telemetry.InstrumentResty(client, tel)

	policy := opts.Retry
	policy.Retryable = retry.Any(
		ecourts.ErrValidation,
		ecourts.ErrCaptcha,
		ecourts.ErrBusiness,
		ecourts.ErrTransient,
	)

	return &Gateway{
		court:      court,
		captchaURL: opts.CaptchaURL,
		http:       client,
		solver:     opts.Solver,
		recorder:   opts.Recorder,
		retry:      policy,
		tel:        tel,
	}, nil
}

func (g *Gateway) Court() ecourts.Court {
	return g.court
}

// Execute runs op with payload and returns the decoded body.
func (g *Gateway) Execute(ctx context.Context, op Operation, payload map[string]string) (string, error) {
	body, err := g.ExecuteBytes(ctx, op, payload)
	if err != nil {
		return "", err
	}
	return decodeBody(body)
}

// ExecuteBytes runs op with payload and returns the raw body.
//
// Every attempt that fails with an error marker, a captcha rejection, an error
// redirect or a transient failure is retried, if the captcha solver cannot produce
// a token the call fails immediately.
func (g *Gateway) ExecuteBytes(ctx context.Context, op Operation, payload map[string]string) ([]byte, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	ctx, span := tracer.Start(ctx, fmt.Sprintf("gateway.%s", op.Name), trace.WithAttributes(
		attribute.String("ecourts.operation", op.Name),
		attribute.String("ecourts.court", g.court.String()),
	))
	defer span.End()

	var body []byte
	err := g.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		span.SetAttributes(attribute.Int("ecourts.attempts", attempt))

		var err error
		body, err = g.attempt(ctx, op, payload)
		if err != nil {
			g.tel.ReportDebug("attempt failed", op.Name, attempt, err)
		}
		return err
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			err = &ecourts.RetryExhaustedError{
				Operation: op.Name,
				Attempts:  exhausted.Attempts,
				Last:      exhausted.Last,
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.tel.ReportWarning(report_gateway_execute, fmt.Errorf("%s: %w", op.Name, err))
		return nil, err
	}
	return body, nil
}

func (g *Gateway) params(ctx context.Context, op Operation, payload map[string]string) (map[string]string, error) {
	params := map[string]string{}
	if op.Action != "" {
		params["action_code"] = op.Action
	}
	if op.Court {
		for k, v := range g.court.QueryParams() {
			params[k] = v
		}
	}
	for k, v := range payload {
		params[k] = v
	}

	if op.Captcha {
		if g.solver == nil {
			return nil, retry.Permanent(fmt.Errorf("%w: no captcha solver configured", ecourts.ErrCaptchaUnavailable))
		}
		token, err := g.solver.Solve(ctx, captchaSource{g: g})
		if err != nil {
			g.tel.ReportWarning(report_gateway_captcha, err)
			return nil, retry.Permanent(err)
		}
		params["captcha"] = token
	}
	return params, nil
}

func (g *Gateway) attempt(ctx context.Context, op Operation, payload map[string]string) ([]byte, error) {
	params, err := g.params(ctx, op, payload)
	if err != nil {
		return nil, err
	}

	req := g.http.R().SetContext(ctx)
	if op.method() == http.MethodGet {
		req.SetQueryParams(params)
	} else {
		req.SetFormData(params)
	}

	res, err := req.Execute(op.method(), op.Path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ecourts.ErrTransient, err)
	}

	body := res.Body()
	err = classify(res.StatusCode(), res.Header().Get("Location"), body)
	if err != nil {
		return nil, err
	}

	if g.recorder != nil {
		err = g.recorder.Put(ctx, op.Path, params, body)
		if err != nil {
			g.tel.ReportWarning(report_gateway_record, err, op.Name)
		}
	}
	return body, nil
}

// classify maps a response onto the failure kinds of the portal, in order: error
// markers in the head of the body, error redirects, then any non 2xx status.
func classify(status int, location string, body []byte) error {
	head := body
	if len(head) > markerWindow {
		head = head[:markerWindow]
	}
	upper := strings.ToUpper(string(head))
	if strings.Contains(upper, "ERROR") {
		return fmt.Errorf("%w: got invalid result", ecourts.ErrValidation)
	}
	if strings.Contains(upper, "INVALID CAPTCHA") {
		return fmt.Errorf("%w: upstream rejected the captcha", ecourts.ErrCaptcha)
	}
	if status >= 300 && status < 400 && strings.HasPrefix(location, "errormsg") {
		return fmt.Errorf("%w: redirected to %s", ecourts.ErrBusiness, location)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: unexpected status %d", ecourts.ErrTransient, status)
	}
	return nil
}

func decodeBody(body []byte) (string, error) {
	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(decoded), nil
}

type captchaSource struct {
	g *Gateway
}

// CaptchaImage fetches a new challenge, it is only called while the gateway holds
// its lock.
func (s captchaSource) CaptchaImage(ctx context.Context) ([]byte, error) {
	res, err := s.g.http.R().
		SetContext(ctx).
		Get(s.g.captchaURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(ctx.Err())
		}
		return nil, fmt.Errorf("%w: fetch captcha: %w", ecourts.ErrTransient, err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: captcha image status %d", ecourts.ErrTransient, res.StatusCode())
	}
	return res.Body(), nil
}
