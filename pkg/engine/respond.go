package engine

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joeydtaylor/steeze-host/pkg/codec"
	"go.uber.org/zap"
)

// SendBinary completes the response with content. The content type is looked up
// from fakeName's extension.
func (c *Context) SendBinary(content []byte, fakeName string) error {
	c.log.Debug("http: sending", zap.String("name", fakeName), zap.Int("bytes", len(content)))
	return c.send(content, MimeType(fakeName))
}

// SendString completes the response with UTF-8 text.
func (c *Context) SendString(content, fakeName string) error {
	ct := MimeType(fakeName)
	if !strings.Contains(ct, "charset=") {
		ct += "; charset=utf-8"
	}
	c.log.Debug("http: sending", zap.String("name", fakeName), zap.Int("bytes", len(content)))
	return c.send([]byte(content), ct)
}

// SendJSON completes the response with v encoded as JSON. Encoding failures leave
// the response open.
func (c *Context) SendJSON(v any) error {
	b, err := codec.JSONStrict.Marshal(v)
	if err != nil {
		return err
	}
	c.log.Debug("http: sending json", zap.Int("bytes", len(b)))
	return c.send(b, codec.JSONStrict.ContentType())
}

// SendFile streams a file from disk. With cache set, the modification time becomes
// the ETag and a matching If-None-Match is answered with 304.
func (c *Context) SendFile(path string, cache bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("send file: %s is a directory", path)
	}
	etag := `"` + strconv.FormatInt(info.ModTime().UnixNano(), 10) + `"`

	if cache && c.r.Header.Get("If-None-Match") == etag {
		if err := c.begin(); err != nil {
			return err
		}
		c.w.Header().Set("ETag", etag)
		c.w.WriteHeader(http.StatusNotModified)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	defer f.Close()

	if err := c.begin(); err != nil {
		return err
	}
	c.log.Debug("http: sending file", zap.String("path", path), zap.Int64("bytes", info.Size()))
	h := c.w.Header()
	if cache {
		h.Set("ETag", etag)
	}
	h.Set("Content-Type", MimeType(path))
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	c.w.WriteHeader(c.statusOr(http.StatusOK))
	_, err = io.Copy(c.w, f)
	return err
}

// Redirect completes the response with 301 (permanent) or 307.
func (c *Context) Redirect(url string, permanent bool) error {
	if err := c.begin(); err != nil {
		return err
	}
	c.log.Debug("http: redirecting", zap.String("location", url), zap.Bool("permanent", permanent))
	code := http.StatusTemporaryRedirect
	if permanent {
		code = http.StatusMovedPermanently
	}
	c.w.Header().Set("Location", url)
	c.w.WriteHeader(code)
	return nil
}

// NotFound completes the response with a bare 404.
func (c *Context) NotFound() error {
	if err := c.begin(); err != nil {
		return err
	}
	c.log.Debug("http: sending 404")
	c.w.WriteHeader(http.StatusNotFound)
	return nil
}

// InternalError completes the response with the fault page for v, the value a
// handler panicked with (or an error). stack is the goroutine trace at recovery.
func (c *Context) InternalError(v any, stack []byte) error {
	page := FaultPage(Chain(v, stack))
	if err := c.begin(); err != nil {
		return err
	}
	h := c.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(page)))
	h.Del("ETag")
	c.w.WriteHeader(http.StatusInternalServerError)
	_, err := io.WriteString(c.w, page)
	return err
}

func (c *Context) send(content []byte, contentType string) error {
	if err := c.begin(); err != nil {
		return err
	}
	h := c.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(content)))
	c.w.WriteHeader(c.statusOr(http.StatusOK))
	_, err := c.w.Write(content)
	return err
}
