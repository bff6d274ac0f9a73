package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cardscan/internal/config"
	"github.com/agenthands/cardscan/internal/core/contacts"
	"github.com/agenthands/cardscan/internal/core/extract"
	"github.com/agenthands/cardscan/internal/core/model"
	"github.com/agenthands/cardscan/internal/core/normalize"
	"github.com/agenthands/cardscan/internal/core/outreach"
	"github.com/agenthands/cardscan/internal/llm"
)

func newTestServer(client llm.VisionClient) *Server {
	gin.SetMode(gin.TestMode)
	return &Server{
		Normalizer:     normalize.New(1600, 80),
		Extractor:      extract.New(client),
		Contacts:       contacts.NewCollection(),
		Campaign:       outreach.NewCampaign(nil),
		Outreach:       config.Default().Outreach,
		ExtractTimeout: time.Minute,
	}
}

func cardImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 70))
	for x := 0; x < 120; x++ {
		for y := 0; y < 70; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func scanRequest(t *testing.T, images ...[]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, img := range images {
		part, err := w.CreateFormFile("images", "card.png")
		require.NoError(t, err)
		_, err = part.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/scan", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestScanIngestsExtractedContacts(t *testing.T) {
	mock := &extract.MockVisionClient{
		Response: `{"contacts":[{"name":"Jane Doe","email":"jane@x.com"}]}`,
	}
	s := newTestServer(mock)
	r := s.SetupRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, scanRequest(t, cardImage(t)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.Contacts.Len())
	got := s.Contacts.All()[0]
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, "jane@x.com", got.Email)
	assert.False(t, got.IsEdited)
	assert.NotEmpty(t, got.ID)
}

func TestScanAppendsAcrossBatches(t *testing.T) {
	mock := &extract.MockVisionClient{Response: `{"contacts":[{"name":"Jane Doe"}]}`}
	s := newTestServer(mock)
	r := s.SetupRouter()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, scanRequest(t, cardImage(t)))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2, s.Contacts.Len())
}

func TestScanWithoutCredential(t *testing.T) {
	s := newTestServer(nil)
	r := s.SetupRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, scanRequest(t, cardImage(t)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, s.Contacts.Len())
}

func TestScanUndecodableImage(t *testing.T) {
	mock := &extract.MockVisionClient{Response: `{"contacts":[]}`}
	s := newTestServer(mock)
	r := s.SetupRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, scanRequest(t, []byte("not an image")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanEmptyModelResponseLeavesCollectionUntouched(t *testing.T) {
	mock := &extract.MockVisionClient{Response: `{"contacts":[{"name":"Jane Doe"}]}`}
	s := newTestServer(mock)
	r := s.SetupRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, scanRequest(t, cardImage(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	mock.Response = ""
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, scanRequest(t, cardImage(t)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 1, s.Contacts.Len())
}

// blockingVisionClient parks on release so a scan can be held in flight.
type blockingVisionClient struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingVisionClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	close(b.started)
	select {
	case <-b.release:
		return `{"contacts":[{"name":"Jane Doe"}]}`, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestScanSerializesExtractions(t *testing.T) {
	blocker := &blockingVisionClient{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestServer(blocker)
	r := s.SetupRouter()

	firstDone := make(chan *httptest.ResponseRecorder)
	go func() {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, scanRequest(t, cardImage(t)))
		firstDone <- rec
	}()
	<-blocker.started

	// A second scan while the first is outstanding must be refused and
	// must not touch the collection.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, scanRequest(t, cardImage(t)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, s.Contacts.Len())

	close(blocker.release)
	first := <-firstDone
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, s.Contacts.Len())

	// The guard resets once the first scan completes; release is already
	// closed so this call returns immediately.
	blocker.started = make(chan struct{})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, scanRequest(t, cardImage(t)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, s.Contacts.Len())
}

func TestScanRateLimited(t *testing.T) {
	mock := &extract.MockVisionClient{
		Err: &llm.TransportError{Reason: llm.ReasonRateLimited, Status: 429, Err: errors.New("quota")},
	}
	s := newTestServer(mock)
	r := s.SetupRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, scanRequest(t, cardImage(t)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUpdateContact(t *testing.T) {
	s := newTestServer(nil)
	r := s.SetupRouter()
	created := s.Contacts.Ingest([]model.ContactFields{{Name: "Jane Doe", Email: "jane@x.com"}})

	body, _ := json.Marshal(model.ContactFields{Name: "Jane Smith"})
	req := httptest.NewRequest(http.MethodPut, "/contacts/"+created[0].ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	got, _ := s.Contacts.Get(created[0].ID)
	assert.Equal(t, "Jane Smith", got.Name)
	assert.Equal(t, "", got.Email)
	assert.True(t, got.IsEdited)
}

func TestUpdateAbsentContactIsNoOp(t *testing.T) {
	s := newTestServer(nil)
	r := s.SetupRouter()

	body, _ := json.Marshal(model.ContactFields{Name: "Ghost"})
	req := httptest.NewRequest(http.MethodPut, "/contacts/nope", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.Contacts.Len())
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	s := newTestServer(nil)
	r := s.SetupRouter()
	created := s.Contacts.Ingest([]model.ContactFields{{Name: "Jane Doe"}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/contacts/"+created[0].ID, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, s.Contacts.Len())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/contacts/"+created[0].ID+"?confirm=true", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.Contacts.Len())

	// Stale second delete is still a no-op success.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/contacts/"+created[0].ID+"?confirm=true", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExportEmptyCollection(t *testing.T) {
	s := newTestServer(nil)
	r := s.SetupRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(nil)
	r := s.SetupRouter()
	s.Contacts.Ingest([]model.ContactFields{{Name: "Jane Doe", Company: "Acme, Inc."}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bizcards_export_")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Name,Title,Company"))
	assert.Contains(t, rec.Body.String(), `"Jane Doe"`)
}

func TestDuplicatesEndpoint(t *testing.T) {
	s := newTestServer(nil)
	r := s.SetupRouter()
	s.Contacts.Ingest([]model.ContactFields{
		{Name: "Jane Doe", Email: "jane@x.com"},
		{Name: "Jane Doe", Email: "jane@x.com"},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contacts/duplicates", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Duplicates []struct {
			MatchedOn string `json:"matched_on"`
		} `json:"duplicates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Duplicates, 1)
	assert.Equal(t, "email", resp.Duplicates[0].MatchedOn)
}

func TestDraftOutreachPreviewsFirstContact(t *testing.T) {
	s := newTestServer(nil)
	r := s.SetupRouter()
	s.Contacts.Ingest([]model.ContactFields{{Name: "Ada Lovelace", Email: "ada@x.com"}})

	body := `{"subject":"Hello {name}","body":"Hi {name},"}`
	req := httptest.NewRequest(http.MethodPost, "/outreach/draft", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Preview    outreach.Message `json:"preview"`
		Recipients int              `json:"recipients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hello Ada", resp.Preview.Subject)
	assert.Equal(t, "Hi Ada,", resp.Preview.Body)
	assert.Equal(t, "ada@x.com", resp.Preview.To)
	assert.Equal(t, 1, resp.Recipients)
}

func TestSendOutreachCountsRecipients(t *testing.T) {
	s := newTestServer(nil)
	r := s.SetupRouter()
	s.Contacts.Ingest([]model.ContactFields{{Name: "Ada"}, {Name: "Bob"}})

	req := httptest.NewRequest(http.MethodPost, "/outreach/send", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Sent int `json:"sent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Sent)
}
