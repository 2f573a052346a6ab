package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"casetrack-backend/internal/components/retry"
	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/ecourts"

	"github.com/stretchr/testify/require"
)

var listOp = Operation{
	Name:   "search-by-number",
	Path:   "/cases/case_no_qry.php",
	Action: "showRecords",
	Court:  true,
}

func testOptions(srv *httptest.Server, attempts int) Options {
	opts := DefaultOptions()
	opts.BaseURL = srv.URL
	opts.CaptchaURL = srv.URL + "/captcha"
	opts.RequestsPerSecond = 0
	opts.Retry = retry.Policy{Attempts: attempts}
	return opts
}

func testCourt(t testing.TB) ecourts.Court {
	court, err := ecourts.NewCourt("10", "", "")
	require.NoError(t, err)
	return court
}

func newTestGateway(t testing.TB, opts Options) *Gateway {
	g, err := New(testCourt(t), opts, telemetry.NewTestAPI())
	require.NoError(t, err)
	return g
}

func TestExecuteTransientRetries(t *testing.T) {
	cases := []struct {
		budget   int
		failures int
	}{
		{budget: 3, failures: 0},
		{budget: 3, failures: 2},
		{budget: 3, failures: 3},
		{budget: 2, failures: 5},
		{budget: 5, failures: 4},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("b=%d/k=%d", tc.budget, tc.failures), func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				if int(n) <= tc.failures {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				fmt.Fprint(w, "ok")
			}))
			defer srv.Close()

			g := newTestGateway(t, testOptions(srv, tc.budget))
			body, err := g.Execute(context.Background(), listOp, nil)

			if tc.budget > tc.failures {
				require.NoError(t, err)
				require.Equal(t, "ok", body)
				require.EqualValues(t, tc.failures+1, atomic.LoadInt32(&calls))
				return
			}

			require.ErrorIs(t, err, ecourts.ErrRetryExhausted)
			require.ErrorIs(t, err, ecourts.ErrTransient)
			var exhausted *ecourts.RetryExhaustedError
			require.ErrorAs(t, err, &exhausted)
			require.Equal(t, tc.budget, exhausted.Attempts)
			require.Equal(t, listOp.Name, exhausted.Operation)
			require.EqualValues(t, tc.budget, atomic.LoadInt32(&calls))
		})
	}
}

func TestExecuteClassification(t *testing.T) {
	cases := []struct {
		name     string
		handler  http.HandlerFunc
		expected error
	}{
		{
			name: "error marker",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "  error: record not found, please check")
			},
			expected: ecourts.ErrValidation,
		},
		{
			name: "invalid captcha",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "Invalid Captcha")
			},
			expected: ecourts.ErrCaptcha,
		},
		{
			name: "error redirect",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Location", "errormsg.php?msg=1")
				w.WriteHeader(http.StatusFound)
			},
			expected: ecourts.ErrBusiness,
		},
		{
			name: "other redirect",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Location", "/elsewhere")
				w.WriteHeader(http.StatusFound)
			},
			expected: ecourts.ErrTransient,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				tc.handler(w, r)
			}))
			defer srv.Close()

			g := newTestGateway(t, testOptions(srv, 2))
			_, err := g.Execute(context.Background(), listOp, nil)
			require.ErrorIs(t, err, ecourts.ErrRetryExhausted)
			require.ErrorIs(t, err, tc.expected)
			require.EqualValues(t, 2, atomic.LoadInt32(&calls))
		})
	}
}

func TestExecuteMarkerOutsideHeadIsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "CT/0020/2020/1~1234/2020/20~ERROR Versus Bob")
	}))
	defer srv.Close()

	g := newTestGateway(t, testOptions(srv, 1))
	_, err := g.Execute(context.Background(), listOp, nil)
	require.NoError(t, err)
}

type stubSolver struct {
	token string
	err   error
	calls int
}

func (s *stubSolver) Solve(ctx context.Context, src ImageSource) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	_, err := src.CaptchaImage(ctx)
	if err != nil {
		return "", err
	}
	return s.token, nil
}

func TestExecuteParams(t *testing.T) {
	var form map[string]string
	var captchaFetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/captcha" {
			atomic.AddInt32(&captchaFetches, 1)
			http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "abc"})
			w.Write([]byte{0x89, 'P', 'N', 'G'})
			return
		}
		require.Equal(t, "/cases/case_no_qry.php", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, DefaultUserAgent, r.UserAgent())

		cookie, err := r.Cookie("PHPSESSID")
		require.NoError(t, err)
		require.Equal(t, "abc", cookie.Value)

		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Write([]byte("\xef\xbb\xbfpayload"))
	}))
	defer srv.Close()

	solver := &stubSolver{token: "ab12c"}
	opts := testOptions(srv, 3)
	opts.Solver = solver
	g := newTestGateway(t, opts)

	op := listOp
	op.Captcha = true
	body, err := g.Execute(context.Background(), op, map[string]string{
		"case_no":    "20",
		"court_code": "override",
	})
	require.NoError(t, err)
	require.Equal(t, "payload", body)
	require.Equal(t, 1, solver.calls)
	require.EqualValues(t, 1, atomic.LoadInt32(&captchaFetches))

	require.Equal(t, map[string]string{
		"action_code": "showRecords",
		"state_code":  "10",
		"dist_code":   "1",
		"court_code":  "override",
		"case_no":     "20",
		"captcha":     "ab12c",
	}, form)
}

func TestExecuteCaptchaFailureIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	solver := &stubSolver{err: &ecourts.CaptchaFailureError{Attempts: 100, Last: errors.New("4 chars")}}
	opts := testOptions(srv, 3)
	opts.Solver = solver
	g := newTestGateway(t, opts)

	op := listOp
	op.Captcha = true
	_, err := g.Execute(context.Background(), op, nil)
	require.ErrorIs(t, err, ecourts.ErrCaptcha)
	require.False(t, errors.Is(err, ecourts.ErrRetryExhausted))
	require.Equal(t, 1, solver.calls)
	require.EqualValues(t, 0, atomic.LoadInt32(&calls))
}

func TestExecuteCaptchaWithoutSolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	g := newTestGateway(t, testOptions(srv, 3))
	op := listOp
	op.Captcha = true
	_, err := g.Execute(context.Background(), op, nil)
	require.ErrorIs(t, err, ecourts.ErrCaptchaUnavailable)
}

func TestExecuteGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "a.pdf", r.URL.Query().Get("filename"))
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	g := newTestGateway(t, testOptions(srv, 1))
	body, err := g.ExecuteBytes(context.Background(), Operation{
		Name:   "download-order",
		Path:   "/cases/display_pdf.php",
		Method: http.MethodGet,
	}, map[string]string{"filename": "a.pdf"})
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4"), body)
}

type memoryRecorder struct {
	endpoints []string
	params    []map[string]string
}

func (r *memoryRecorder) Put(_ context.Context, endpoint string, params map[string]string, _ []byte) error {
	r.endpoints = append(r.endpoints, endpoint)
	r.params = append(r.params, params)
	return nil
}

func TestExecuteRecordsSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, "ERROR")
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	recorder := &memoryRecorder{}
	opts := testOptions(srv, 2)
	opts.Recorder = recorder
	g := newTestGateway(t, opts)

	_, err := g.Execute(context.Background(), listOp, map[string]string{"case_no": "20"})
	require.NoError(t, err)
	require.Equal(t, []string{listOp.Path}, recorder.endpoints)
	require.Equal(t, "20", recorder.params[0]["case_no"])
}
