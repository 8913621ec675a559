package dispatch_test

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/krustie/core/dispatch"
	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/router"
)

func newTestRouter() *router.Router {
	r := router.New()
	r.Get("/hello", func(req *handler.Request, res *handler.Response) {
		res.Text("Hello, World!")
	})
	r.Get("/user/:id", func(req *handler.Request, res *handler.Response) {
		res.JSON(map[string]string{"id": req.Param("id")})
	})
	r.Post("/echo", func(req *handler.Request, res *handler.Response) {
		var in map[string]any
		if err := req.Body().Decode(&in); err != nil {
			res.Status(http.StatusUnprocessableEntity).Text(err.Error())
			return
		}
		res.Status(http.StatusCreated).JSON(in)
	})
	r.Get("/panic", func(req *handler.Request, res *handler.Response) {
		res.SetHeader("X-Partial", "yes").Text("partial")
		panic("boom")
	})
	return r
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	d := dispatch.New(newTestRouter())

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/hello"))
		assert.Equal(t, http.StatusOK, res.StatusCode())
		assert.Equal(t, "Hello, World!", string(res.BodyBytes()))
		assert.Equal(t, "/hello", dispatch.Route(res))
	})

	t.Run("params with trailing slash", func(t *testing.T) {
		t.Parallel()

		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/user/42/"))
		assert.Equal(t, http.StatusOK, res.StatusCode())
		assert.JSONEq(t, `{"id":"42"}`, string(res.BodyBytes()))
		assert.Equal(t, "/user/:id", dispatch.Route(res))
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/missing"))
		assert.Equal(t, http.StatusNotFound, res.StatusCode())
		assert.Equal(t, "Not Found", string(res.BodyBytes()))
		assert.Empty(t, dispatch.Route(res))
	})

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()

		res := d.Dispatch(handler.NewRequest(handler.MethodDelete, "/hello"))
		assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode())
		assert.Equal(t, "GET", res.Header("Allow"))
	})

	t.Run("panic is isolated", func(t *testing.T) {
		t.Parallel()

		res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/panic"))
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode())
		assert.Equal(t, "Internal Server Error", string(res.BodyBytes()))
		_, ok := res.LookupHeader("X-Partial")
		assert.False(t, ok)

		next := d.Dispatch(handler.NewRequest(handler.MethodGet, "/hello"))
		assert.Equal(t, http.StatusOK, next.StatusCode())
	})
}

func TestDispatchFreezesRouter(t *testing.T) {
	t.Parallel()

	r := router.New()
	dispatch.New(r)

	assert.True(t, r.Frozen())
	assert.Panics(t, func() { r.Get("/late", func(*handler.Request, *handler.Response) {}) })
	assert.Panics(t, func() { dispatch.New(nil) })
}

func TestDispatchEndSkipsHandler(t *testing.T) {
	t.Parallel()

	var handled atomic.Bool

	r := router.New()
	r.UseFunc(func(req *handler.Request, res *handler.Response) handler.Result {
		if req.Header("Authorization") == "" {
			res.Status(http.StatusUnauthorized).Text("unauthorized")
			return handler.End
		}
		return handler.Next
	})
	r.Get("/", func(req *handler.Request, res *handler.Response) {
		handled.Store(true)
		res.Text("ok")
	})

	d := dispatch.New(r)

	res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/"))
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode())
	assert.False(t, handled.Load())

	res = d.Dispatch(handler.NewRequest(handler.MethodGet, "/", handler.WithHeader("Authorization", "Bearer x")))
	assert.Equal(t, http.StatusOK, res.StatusCode())
	assert.True(t, handled.Load())
}

func TestDispatchNoHandlerInvokedOnNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	r := router.New()
	r.Get("/a", func(req *handler.Request, res *handler.Response) {
		calls.Add(1)
	})

	d := dispatch.New(r)
	res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/b"))

	assert.Equal(t, http.StatusNotFound, res.StatusCode())
	assert.Equal(t, int32(0), calls.Load())
}

func TestCustomErrorHandler(t *testing.T) {
	t.Parallel()

	var got error
	var mu sync.Mutex

	d := dispatch.New(newTestRouter(), dispatch.WithErrorHandler(
		func(req *handler.Request, res *handler.Response, err error) {
			mu.Lock()
			got = err
			mu.Unlock()
			res.Status(dispatch.StatusCode(err)).JSON(map[string]string{"error": err.Error()})
		},
	))

	res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/panic"))
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode())
	assert.Equal(t, "application/json", res.ContentType())

	mu.Lock()
	defer mu.Unlock()

	require.Error(t, got)
	assert.ErrorIs(t, got, dispatch.ErrHandlerFault)

	var pe dispatch.PanicError
	require.ErrorAs(t, got, &pe)
	assert.Equal(t, "boom", pe.Value())
	assert.NotEmpty(t, pe.Stack())
}

func TestErrorHandlerPanicFallsBack(t *testing.T) {
	t.Parallel()

	d := dispatch.New(newTestRouter(), dispatch.WithErrorHandler(
		func(req *handler.Request, res *handler.Response, err error) {
			panic("broken error handler")
		},
	))

	res := d.Dispatch(handler.NewRequest(handler.MethodGet, "/missing"))
	assert.Equal(t, http.StatusNotFound, res.StatusCode())
	assert.Equal(t, "Not Found", string(res.BodyBytes()))
}

func TestObserver(t *testing.T) {
	t.Parallel()

	type observation struct {
		path    string
		status  int
		route   string
		elapsed time.Duration
	}

	var (
		mu   sync.Mutex
		seen []observation
	)

	d := dispatch.New(newTestRouter(), dispatch.WithObserver(
		dispatch.ObserverFunc(func(req *handler.Request, res *handler.Response, elapsed time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, observation{req.Path(), res.StatusCode(), dispatch.Route(res), elapsed})
		}),
		nil,
	))

	d.Dispatch(handler.NewRequest(handler.MethodGet, "/user/7"))
	d.Dispatch(handler.NewRequest(handler.MethodGet, "/nope"))

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, seen, 2)
	assert.Equal(t, "/user/7", seen[0].path)
	assert.Equal(t, http.StatusOK, seen[0].status)
	assert.Equal(t, "/user/:id", seen[0].route)
	assert.GreaterOrEqual(t, seen[0].elapsed, time.Duration(0))
	assert.Equal(t, http.StatusNotFound, seen[1].status)
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", router.ErrNotFound, http.StatusNotFound},
		{"method not allowed", &router.MethodNotAllowedError{Method: handler.MethodPost}, http.StatusMethodNotAllowed},
		{"malformed", dispatch.ErrMalformedRequest, http.StatusBadRequest},
		{"malformed body", handler.ErrMalformedBody, http.StatusBadRequest},
		{"too large", dispatch.ErrBodyTooLarge, http.StatusRequestEntityTooLarge},
		{"custom", teapotError{}, http.StatusTeapot},
		{"other", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, dispatch.StatusCode(tt.err))
		})
	}
}

type teapotError struct{}

func (teapotError) Error() string   { return "teapot" }
func (teapotError) StatusCode() int { return http.StatusTeapot }

func TestServeHTTP(t *testing.T) {
	t.Parallel()

	d := dispatch.New(newTestRouter(), dispatch.WithMaxBodySize(64))

	t.Run("get", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/hello", nil)
		w := httptest.NewRecorder()

		d.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Hello, World!", w.Body.String())
		assert.Equal(t, "13", w.Header().Get("Content-Length"))
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	})

	t.Run("encoded slash in param", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/user/a%2Fb", nil)
		w := httptest.NewRecorder()

		d.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"a/b"}`, w.Body.String())
	})

	t.Run("json body", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"server":"krustie"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		d.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"server":"krustie"}`, w.Body.String())
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"server":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		d.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("a", 65)))
		w := httptest.NewRecorder()

		d.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("unknown method", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("BREW", "/hello", nil)
		w := httptest.NewRecorder()

		d.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("method not allowed sets allow", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPut, "/hello", nil)
		w := httptest.NewRecorder()

		d.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		assert.Equal(t, "GET", w.Header().Get("Allow"))
	})

	t.Run("query and peer", func(t *testing.T) {
		t.Parallel()

		r := router.New()
		r.Get("/echo", func(req *handler.Request, res *handler.Response) {
			res.Text(req.QueryValue("query") + "@" + req.PeerIP())
		})
		d := dispatch.New(r)

		req := httptest.NewRequest(http.MethodGet, "/echo?query=a&query=world", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		w := httptest.NewRecorder()

		d.ServeHTTP(w, req)

		assert.Equal(t, "world@10.1.2.3", w.Body.String())
	})
}

func TestServeHTTPHead(t *testing.T) {
	t.Parallel()

	r := router.New()
	r.Head("/doc", func(req *handler.Request, res *handler.Response) {
		res.Text("ignored body")
	})
	d := dispatch.New(r)

	req := httptest.NewRequest(http.MethodHead, "/doc", nil)
	w := httptest.NewRecorder()

	d.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "12", w.Header().Get("Content-Length"))
}

func TestHandleRaw(t *testing.T) {
	t.Parallel()

	d := dispatch.New(newTestRouter())

	readResponse := func(t *testing.T, raw []byte, method string) (*http.Response, string) {
		t.Helper()

		resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), &http.Request{Method: method})
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(body)
	}

	t.Run("get", func(t *testing.T) {
		t.Parallel()

		out := d.HandleRaw([]byte("GET /hello HTTP/1.1\r\nHost: localhost\r\n\r\n"))
		resp, body := readResponse(t, out, http.MethodGet)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Hello, World!", body)
	})

	t.Run("post json", func(t *testing.T) {
		t.Parallel()

		payload := `{"n":1}`
		raw := "POST /echo HTTP/1.1\r\nHost: localhost\r\nContent-Type: application/json\r\nContent-Length: 7\r\n\r\n" + payload
		resp, body := readResponse(t, d.HandleRaw([]byte(raw)), http.MethodPost)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.JSONEq(t, payload, body)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		resp, body := readResponse(t, d.HandleRaw([]byte("this is not http\r\n\r\n")), http.MethodGet)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Bad Request", body)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		resp, _ := readResponse(t, d.HandleRaw([]byte("GET /nope HTTP/1.1\r\nHost: x\r\n\r\n")), http.MethodGet)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestConcurrentDispatch(t *testing.T) {
	t.Parallel()

	d := dispatch.New(newTestRouter())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			path := "/hello"
			want := http.StatusOK
			if i%5 == 0 {
				path, want = "/panic", http.StatusInternalServerError
			}
			res := d.Dispatch(handler.NewRequest(handler.MethodGet, path))
			assert.Equal(t, want, res.StatusCode())
		}(i)
	}
	wg.Wait()
}
