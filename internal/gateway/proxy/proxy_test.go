package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
)

type echo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query"`
	Auth   string `json:"auth"`
	Body   string `json:"body"`
	Field  string `json:"field"`
	File   string `json:"file"`
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := echo{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err == nil {
				e.Field = r.FormValue("path")
				if f, _, err := r.FormFile("file"); err == nil {
					data, _ := io.ReadAll(f)
					e.File = string(data)
					f.Close()
				}
			}
		} else {
			data, _ := io.ReadAll(r.Body)
			e.Body = string(data)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", "blur")
		w.WriteHeader(http.StatusTeapot)
		json.NewEncoder(w).Encode(e)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, echo) {
	t.Helper()
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var e echo
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, e
}

func TestMountForwardsPathQueryAndHeaders(t *testing.T) {
	srv := newUpstream(t)
	app := fiber.New()
	New(srv.URL+"/", time.Second).Mount(app, "/api/v1/blur")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/blur/zones?image=%2Fimages%2Fa.jpg", strings.NewReader(`[{"x":1}]`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer t")

	resp, e := send(t, app, req)
	if resp.StatusCode != http.StatusTeapot || resp.Header.Get("X-Upstream") != "blur" {
		t.Errorf("status = %d, header = %q", resp.StatusCode, resp.Header.Get("X-Upstream"))
	}
	if e.Method != http.MethodPut || e.Path != "/api/v1/blur/zones" || e.Query != "image=%2Fimages%2Fa.jpg" {
		t.Errorf("upstream saw %+v", e)
	}
	if e.Auth != "Bearer t" || e.Body != `[{"x":1}]` {
		t.Errorf("upstream saw auth %q body %q", e.Auth, e.Body)
	}
}

func TestMountRebuildsMultipart(t *testing.T) {
	srv := newUpstream(t)
	app := fiber.New()
	New(srv.URL, time.Second).Mount(app, "/api/v1/blur")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("path", "/images/a.png")
	fw, _ := mw.CreateFormFile("file", "a.png")
	fw.Write([]byte("pixels"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/blur/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, e := send(t, app, req)
	if e.Field != "/images/a.png" || e.File != "pixels" {
		t.Errorf("upstream saw %+v", e)
	}
}

func TestUnreachableUpstream(t *testing.T) {
	srv := newUpstream(t)
	url := srv.URL
	srv.Close()

	app := fiber.New()
	New(url, time.Second).Mount(app, "/api/v1/blur")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/blur/settings", nil), fiber.TestConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}
