package engine

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(method, target string) (*Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	return NewContext(rec, req, nil), rec
}

func TestSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/", nil},
		{"", nil},
		{"//", nil},
		{"/Foo", []string{"Foo"}},
		{"/Foo/Bar/", []string{"Foo", "Bar"}},
		{"/Foo/ Bar /x", []string{"Foo", "Bar", "x"}},
		{"/Home//X", []string{"Home", "", "X"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Segments(tt.path))
		})
	}
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", MimeType("blob"))
	assert.Equal(t, "application/octet-stream", MimeType("file.unknownext"))
	assert.Contains(t, MimeType("INDEX.HTML"), "text/html")
	assert.Contains(t, MimeType("a.json"), "application/json")
}

func TestSendString(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/")

	require.NoError(t, ctx.SendString("héllo", "x.txt"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "héllo", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Header().Get("Content-Type"), "charset=utf-8")
	assert.Equal(t, strconv.Itoa(len("héllo")), rec.Header().Get("Content-Length"))
	assert.True(t, ctx.Closed())
}

func TestSendBinaryUsesStatus(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/")
	ctx.SetStatus(http.StatusCreated)

	require.NoError(t, ctx.SendBinary([]byte{1, 2, 3}, "blob.bin"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []byte{1, 2, 3}, rec.Body.Bytes())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
}

func TestTerminalActionsCompleteOnce(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/")

	require.NoError(t, ctx.SendString("first", "a.txt"))
	assert.ErrorIs(t, ctx.SendString("second", "a.txt"), ErrResponseClosed)
	assert.ErrorIs(t, ctx.NotFound(), ErrResponseClosed)
	assert.ErrorIs(t, ctx.Redirect("/x", false), ErrResponseClosed)

	assert.Equal(t, "first", rec.Body.String())
}

func TestWriteStreamsThenBlocksTerminal(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/")
	ctx.SetStatus(http.StatusAccepted)

	_, err := ctx.Write([]byte("a"))
	require.NoError(t, err)
	_, err = ctx.Write([]byte("b"))
	require.NoError(t, err)

	assert.ErrorIs(t, ctx.SendString("c", "c.txt"), ErrResponseClosed)
	ctx.Close()
	_, err = ctx.Write([]byte("d"))
	assert.ErrorIs(t, err, ErrResponseClosed)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "ab", rec.Body.String())
}

func TestCloseSendsEmptyResponse(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/")
	ctx.Close()
	ctx.Close()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.True(t, ctx.Closed())
}

func TestRedirect(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/")
	require.NoError(t, ctx.Redirect("/Home/Index", true))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/Home/Index", rec.Header().Get("Location"))

	ctx, rec = newTestContext(http.MethodGet, "/")
	require.NoError(t, ctx.Redirect("/elsewhere", false))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}

func TestNotFoundIsBare(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/missing")
	require.NoError(t, ctx.NotFound())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestSendJSON(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/")
	require.NoError(t, ctx.SendJSON(map[string]string{"a": "<b>"}))

	assert.JSONEq(t, `{"a":"<b>"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	ctx := NewContext(httptest.NewRecorder(), req, nil)
	var p payload
	require.NoError(t, ctx.DecodeJSON(&p))
	assert.Equal(t, "x", p.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	ctx = NewContext(httptest.NewRecorder(), req, nil)
	assert.Error(t, ctx.DecodeJSON(&p))
}

func TestSendFileAndNotModified(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>hi</p>"), 0o644))

	ctx, rec := newTestContext(http.MethodGet, "/")
	require.NoError(t, ctx.SendFile(path, true))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>hi</p>", rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	ctx = NewContext(rec, req, nil)
	require.NoError(t, ctx.SendFile(path, true))
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestSendFileMissingLeavesResponseOpen(t *testing.T) {
	ctx, _ := newTestContext(http.MethodGet, "/")
	assert.Error(t, ctx.SendFile(filepath.Join(t.TempDir(), "nope"), false))
	assert.False(t, ctx.Closed())
}

func TestChainOutermostFirst(t *testing.T) {
	inner := errors.New("disk on fire")
	mid := Wrap(inner, "could not save")
	outer := fmt.Errorf("request failed: %w", mid)

	frames := Chain(outer, nil)
	require.Len(t, frames, 3)

	assert.Equal(t, "request failed: could not save: disk on fire", frames[0].Message)
	assert.Equal(t, "unknown", frames[0].Location)
	assert.Equal(t, "could not save", frames[1].Message)
	assert.Contains(t, frames[1].Location, "engine_test.go")
	assert.Contains(t, frames[1].Location, "TestChainOutermostFirst")
	assert.Equal(t, "disk on fire", frames[2].Message)
	assert.Equal(t, "unknown", frames[2].Location)
}

func TestChainJoinedErrorsDepthFirst(t *testing.T) {
	a := fmt.Errorf("a: %w", errors.New("a1"))
	b := errors.New("b")

	frames := Chain(errors.Join(a, b), nil)
	msgs := make([]string, 0, len(frames))
	for _, f := range frames {
		msgs = append(msgs, f.Message)
	}
	assert.Equal(t, []string{"a: a1\nb", "a: a1", "a1", "b"}, msgs)
}

func TestChainNonErrorAndStack(t *testing.T) {
	frames := Chain("boom", []byte("goroutine 1 [running]:\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, "boom", frames[0].Message)
	assert.Equal(t, "goroutine 1 [running]:", frames[0].Location)

	frames = Chain(nil, nil)
	require.Len(t, frames, 1)
	assert.Equal(t, "Unknown error", frames[0].Message)
}

type brokenErr struct{ unwrapPanics bool }

func (e *brokenErr) Error() string {
	if e.unwrapPanics {
		return "broken unwrap"
	}
	panic("no message")
}

func (e *brokenErr) Unwrap() error { panic("no cause") }

func TestChainSurvivesBrokenErrors(t *testing.T) {
	var nilFault *Fault
	frames := Chain(nilFault, nil)
	require.Len(t, frames, 1)
	assert.Equal(t, "nil *engine.Fault", frames[0].Message)
	assert.Equal(t, "unknown", frames[0].Location)

	frames = Chain(fmt.Errorf("outer: %w", &brokenErr{}), nil)
	require.Len(t, frames, 2)
	assert.Equal(t, "*engine.brokenErr (Error() panicked: no message)", frames[1].Message)

	frames = Chain(&brokenErr{unwrapPanics: true}, nil)
	require.Len(t, frames, 1)
	assert.Equal(t, "broken unwrap", frames[0].Message)
}

func TestChainLocatesOnlyFaults(t *testing.T) {
	frames := Chain(Wrap(errors.New("plain"), "located"), nil)
	require.Len(t, frames, 2)
	assert.Contains(t, frames[0].Location, "engine_test.go")
	assert.Equal(t, "unknown", frames[1].Location)
}

func TestInternalErrorPage(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/")
	err := Wrap(errors.New("root cause"), "outer")

	require.NoError(t, ctx.InternalError(err, nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "HTTP 500 - Internal Server Error\n"))
	assert.Less(t, strings.Index(body, "Error: outer"), strings.Index(body, "Error: root cause"))
	assert.Equal(t, 2, strings.Count(body, "=================================="))
}

func TestInternalErrorAfterCloseIsRejected(t *testing.T) {
	ctx, rec := newTestContext(http.MethodGet, "/")
	require.NoError(t, ctx.SendString("done", "a.txt"))

	assert.ErrorIs(t, ctx.InternalError(errors.New("late"), nil), ErrResponseClosed)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBaseIsController(t *testing.T) {
	type home struct{ Base }
	var v any = home{}
	c, ok := v.(Controller)
	require.True(t, ok)
	assert.Nil(t, c.Methods())

	var plain any = struct{}{}
	_, ok = plain.(Controller)
	assert.False(t, ok)
}
