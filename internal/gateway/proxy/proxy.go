package proxy

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Proxy Handler
// ============================================================

// forwardedHeaders are copied from the client request to the upstream.
var forwardedHeaders = []string{"Authorization", "Accept", "X-Request-ID"}

// Upstream проксирует запросы шлюза в один внутренний сервис.
type Upstream struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Upstream {
	return &Upstream{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Mount отдает все под prefix (например /api/v1/blur) в upstream с тем же путем.
func (u *Upstream) Mount(r fiber.Router, prefix string) {
	handler := func(c fiber.Ctx) error {
		return u.Forward(c, c.Path())
	}
	r.All(prefix, handler)
	r.All(prefix+"/*", handler)
}

// Forward проксирует текущий запрос на path upstream-а с исходной query-строкой.
func (u *Upstream) Forward(c fiber.Ctx, path string) error {
	target := u.baseURL + path
	if qs := string(c.Request().URI().QueryString()); qs != "" {
		target += "?" + qs
	}

	contentType := c.Get("Content-Type")
	log.Printf("[PROXY] %s %s -> %s (%d bytes)", c.Method(), c.Path(), target, len(c.Body()))

	var (
		body io.Reader
		err  error
	)
	if strings.HasPrefix(contentType, "multipart/form-data") {
		body, contentType, err = rebuildMultipart(c)
		if err != nil {
			log.Printf("[PROXY] Failed to parse multipart: %v", err)
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid multipart data"})
		}
	} else if len(c.Body()) > 0 {
		body = bytes.NewReader(c.Body())
	}

	req, err := http.NewRequest(c.Method(), target, body)
	if err != nil {
		log.Printf("[PROXY] build request error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "proxy failed"})
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, h := range forwardedHeaders {
		if v := c.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		log.Printf("[PROXY] Error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "failed to reach upstream service"})
	}
	defer resp.Body.Close()

	return copyResponse(c, resp)
}

func rebuildMultipart(c fiber.Ctx) (io.Reader, string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, values := range form.Value {
		for _, value := range values {
			writer.WriteField(key, value)
		}
	}

	for key, files := range form.File {
		for _, fileHeader := range files {
			file, err := fileHeader.Open()
			if err != nil {
				return nil, "", fmt.Errorf("open %s: %w", fileHeader.Filename, err)
			}

			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, key, fileHeader.Filename))
			if ct := fileHeader.Header.Get("Content-Type"); ct != "" {
				h.Set("Content-Type", ct)
			}

			part, err := writer.CreatePart(h)
			if err == nil {
				_, err = io.Copy(part, file)
			}
			file.Close()
			if err != nil {
				return nil, "", fmt.Errorf("copy %s: %w", fileHeader.Filename, err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func copyResponse(c fiber.Ctx, resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[PROXY] Read response error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "invalid upstream response"})
	}

	for key, values := range resp.Header {
		if len(values) > 0 && !strings.EqualFold(key, "Content-Length") {
			c.Set(key, values[0])
		}
	}

	c.Status(resp.StatusCode)
	return c.Send(data)
}
