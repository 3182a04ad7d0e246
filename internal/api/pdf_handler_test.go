package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"magicyan/internal/artifact"
	"magicyan/internal/export"
	"magicyan/internal/fallback"
	"magicyan/internal/handoff"
	"magicyan/internal/resume"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDocRenderer struct {
	pdf   *export.Artifact
	image *export.Artifact
	err   error
}

func (f *fakeDocRenderer) RenderPDF(_ context.Context, _ *resume.Document, _ string) (*export.Artifact, error) {
	return f.pdf, f.err
}

func (f *fakeDocRenderer) RenderImage(_ context.Context, _ *resume.Document, _ string) (*export.Artifact, error) {
	return f.image, f.err
}

type fakeChecker struct{ err error }

func (f *fakeChecker) Check(_ context.Context) error { return f.err }

func validDocumentJSON(t *testing.T) []byte {
	t.Helper()
	doc := resume.Document{
		Title: "张三的简历",
		PersonalInfo: resume.PersonalInfoSection{
			ShowLabels: true,
			Layout:     resume.PersonalInfoLayout{Mode: resume.LayoutInline},
		},
	}
	raw, err := json.Marshal(&doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	return raw
}

func newTestRouter(renderer documentRenderer, checker engineChecker, store artifact.Store) *gin.Engine {
	logger := testLogger()
	router := gin.New()

	pdfHandler := NewPDFHandler(renderer, checker, store, logger, "https://resume.example.com", 5*time.Minute)
	renderHandler := NewRenderHandler(logger)
	fileHandler := NewFileHandler(logger)

	prober := proberFunc(func(context.Context) bool { return true })
	service := export.NewService(prober, renderer, store, fallback.NewController(logger), logger, false, false)
	exportHandler := NewExportHandler(service, logger, "https://resume.example.com")
	handoffHandler := NewHandoffHandler(handoff.NewBroker(logger), logger)

	RegisterRoutes(router, Handlers{
		PDF:     pdfHandler,
		Export:  exportHandler,
		Render:  renderHandler,
		Handoff: handoffHandler,
		File:    fileHandler,
	}, "")
	return router
}

type proberFunc func(ctx context.Context) bool

func (f proberFunc) Probe(ctx context.Context) bool { return f(ctx) }

func pdfArtifact() *export.Artifact {
	return &export.Artifact{
		Bytes:             []byte("%PDF-1.7 content"),
		MIMEType:          "application/pdf",
		SuggestedFilename: "张三的简历_2026-08-30.pdf",
	}
}

func TestGeneratePDF_RedirectsWithToken(t *testing.T) {
	store := artifact.NewMemoryStore(5*time.Minute, testLogger())
	router := newTestRouter(&fakeDocRenderer{pdf: pdfArtifact()}, &fakeChecker{}, store)

	req := httptest.NewRequest(http.MethodPost, "/api/pdf/resume.pdf", bytes.NewReader(validDocumentJSON(t)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/api/pdf/") || !strings.Contains(location, "token=") {
		t.Errorf("location = %q", location)
	}

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == pdfTokenCookie {
			cookie = ck
		}
	}
	if cookie == nil {
		t.Fatal("pdfToken cookie not set")
	}
	if cookie.Path != "/api/pdf" || cookie.MaxAge != 300 {
		t.Errorf("cookie = %+v", cookie)
	}

	// 按重定向地址取件。
	getReq := httptest.NewRequest(http.MethodGet, location, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("retrieve status = %d", getRec.Code)
	}
	if got := getRec.Body.String(); got != "%PDF-1.7 content" {
		t.Errorf("retrieved bytes = %q", got)
	}
	if ct := getRec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if cd := getRec.Header().Get("Content-Disposition"); !strings.Contains(cd, "filename*=UTF-8''") {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestGeneratePDF_FormField(t *testing.T) {
	store := artifact.NewMemoryStore(5*time.Minute, testLogger())
	router := newTestRouter(&fakeDocRenderer{pdf: pdfArtifact()}, &fakeChecker{}, store)

	form := url.Values{"resumeData": {string(validDocumentJSON(t))}}
	req := httptest.NewRequest(http.MethodPost, "/api/pdf/resume.pdf", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGeneratePDF_WrappedBody(t *testing.T) {
	store := artifact.NewMemoryStore(5*time.Minute, testLogger())
	router := newTestRouter(&fakeDocRenderer{pdf: pdfArtifact()}, &fakeChecker{}, store)

	// 文档也可以包在 resumeData 字段里提交。
	wrapped, err := json.Marshal(map[string]json.RawMessage{"resumeData": validDocumentJSON(t)})
	if err != nil {
		t.Fatalf("marshal wrapped body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/pdf/resume.pdf", bytes.NewReader(wrapped))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGeneratePDF_InvalidBody(t *testing.T) {
	store := artifact.NewMemoryStore(5*time.Minute, testLogger())
	router := newTestRouter(&fakeDocRenderer{pdf: pdfArtifact()}, &fakeChecker{}, store)

	for name, body := range map[string]string{
		"not json":      "not json at all",
		"empty":         "",
		"invalid model": `{"title":""}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/pdf/resume.pdf", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
	}
}

func TestGeneratePDF_EngineUnavailable(t *testing.T) {
	store := artifact.NewMemoryStore(5*time.Minute, testLogger())
	renderer := &fakeDocRenderer{err: &export.EngineUnavailableError{Hint: "no browser"}}
	router := newTestRouter(renderer, &fakeChecker{}, store)

	req := httptest.NewRequest(http.MethodPost, "/api/pdf/resume.pdf", bytes.NewReader(validDocumentJSON(t)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "executable") {
		t.Errorf("body = %s, want mention of the missing executable", body)
	}
}

func TestRetrievePDF_ExpiredToken(t *testing.T) {
	store := artifact.NewMemoryStore(5*time.Minute, testLogger())
	router := newTestRouter(&fakeDocRenderer{}, &fakeChecker{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/pdf/resume.pdf?token=expired", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), cacheExpiredMessage) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRetrievePDF_TokenFromCookie(t *testing.T) {
	store := artifact.NewMemoryStore(5*time.Minute, testLogger())
	router := newTestRouter(&fakeDocRenderer{}, &fakeChecker{}, store)

	_ = store.Put(context.Background(), "cookie-token", artifact.Entry{
		Bytes:    []byte("cached"),
		MIMEType: "application/pdf",
		Filename: "resume_2026-08-30.pdf",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/pdf/resume.pdf", nil)
	req.AddCookie(&http.Cookie{Name: pdfTokenCookie, Value: "cookie-token"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "cached" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestPDFHealth(t *testing.T) {
	store := artifact.NewMemoryStore(5*time.Minute, testLogger())

	healthy := newTestRouter(&fakeDocRenderer{}, &fakeChecker{}, store)
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pdf/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Errorf("healthy: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	broken := newTestRouter(&fakeDocRenderer{}, &fakeChecker{err: errors.New("launch failed")}, store)
	rec = httptest.NewRecorder()
	broken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pdf/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("broken: status = %d", rec.Code)
	}
}

func TestGenerateImage_ReturnsBytes(t *testing.T) {
	store := artifact.NewMemoryStore(5*time.Minute, testLogger())
	renderer := &fakeDocRenderer{image: &export.Artifact{
		Bytes:             []byte{0xFF, 0xD8, 0xFF},
		MIMEType:          "image/jpeg",
		SuggestedFilename: "张三的简历_2026-08-30.jpg",
	}}
	router := newTestRouter(renderer, &fakeChecker{}, store)

	req := httptest.NewRequest(http.MethodPost, "/api/image/resume.jpg", bytes.NewReader(validDocumentJSON(t)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("content type = %q", ct)
	}
}
