package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/cardscan/internal/config"
	"github.com/agenthands/cardscan/internal/core/contacts"
	"github.com/agenthands/cardscan/internal/core/dedupe"
	"github.com/agenthands/cardscan/internal/core/export"
	"github.com/agenthands/cardscan/internal/core/extract"
	"github.com/agenthands/cardscan/internal/core/model"
	"github.com/agenthands/cardscan/internal/core/normalize"
	"github.com/agenthands/cardscan/internal/core/outreach"
	"github.com/agenthands/cardscan/internal/llm"
)

// DefaultExtractTimeout bounds the inference round-trip so a hung endpoint
// cannot wedge the session.
const DefaultExtractTimeout = 2 * time.Minute

type Server struct {
	Normalizer     *normalize.Normalizer
	Extractor      *extract.Extractor
	Contacts       *contacts.Collection
	Campaign       *outreach.Campaign
	Outreach       config.OutreachConfig
	ExtractTimeout time.Duration

	// scanning enforces one in-flight extraction per session; concurrent
	// calls get 409 instead of undefined merge behavior.
	scanning atomic.Bool
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("No config file at %s, using defaults: %v", cfgPath, err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	extractor := extract.New(nil)
	client, err := llm.NewClient(context.Background(), cfg.LLM)
	switch {
	case err == nil:
		extractor.SetClient(client)
	case errors.Is(err, llm.ErrMissingAPIKey):
		log.Printf("Warning: no API credential configured; /scan will return 401 until one is provided")
	default:
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	return &Server{
		Normalizer:     normalize.New(cfg.Image.MaxWidth, cfg.Image.Quality),
		Extractor:      extractor,
		Contacts:       contacts.NewCollection(),
		Campaign:       outreach.NewCampaign(nil),
		Outreach:       cfg.Outreach,
		ExtractTimeout: DefaultExtractTimeout,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/scan", s.Scan)
	r.GET("/contacts", s.ListContacts)
	r.GET("/contacts/duplicates", s.Duplicates)
	r.PUT("/contacts/:id", s.UpdateContact)
	r.DELETE("/contacts/:id", s.DeleteContact)
	r.GET("/export", s.Export)
	r.POST("/outreach/draft", s.DraftOutreach)
	r.POST("/outreach/send", s.SendOutreach)

	return r
}

// Scan accepts multipart image uploads, runs the normalize → extract →
// ingest pipeline, and appends the batch to the collection. Failures leave
// already-committed contacts untouched.
func (s *Server) Scan(c *gin.Context) {
	if !s.scanning.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "an extraction is already in progress"})
		return
	}
	defer s.scanning.Store(false)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no images provided"})
		return
	}

	raws := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
			return
		}
		raws = append(raws, data)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.ExtractTimeout)
	defer cancel()

	payloads, err := s.Normalizer.NormalizeAll(ctx, raws)
	if err != nil {
		s.writePipelineError(c, err)
		return
	}

	fields, err := s.Extractor.Extract(ctx, payloads)
	if err != nil {
		s.writePipelineError(c, err)
		return
	}

	created := s.Contacts.Ingest(fields)
	c.JSON(http.StatusOK, gin.H{"contacts": created, "total": s.Contacts.Len()})
}

func (s *Server) ListContacts(c *gin.Context) {
	all := s.Contacts.All()
	c.JSON(http.StatusOK, gin.H{"contacts": all, "total": len(all)})
}

func (s *Server) Duplicates(c *gin.Context) {
	pairs := dedupe.Find(s.Contacts.All())
	if pairs == nil {
		pairs = []dedupe.DuplicatePair{}
	}
	c.JSON(http.StatusOK, gin.H{"duplicates": pairs})
}

func (s *Server) UpdateContact(c *gin.Context) {
	var fields model.ContactFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id := c.Param("id")
	if !s.Contacts.Update(id, fields) {
		// Editing a vanished contact is already satisfied, not an error.
		c.Status(http.StatusNoContent)
		return
	}

	contact, _ := s.Contacts.Get(id)
	c.JSON(http.StatusOK, contact)
}

// DeleteContact requires confirm=true, standing in for the interactive
// yes/no gate the UI owns. The collection itself treats absent ids as done.
func (s *Server) DeleteContact(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation required: pass confirm=true"})
		return
	}
	s.Contacts.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) Export(c *gin.Context) {
	all := s.Contacts.All()
	if len(all) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", export.ToCSV(all))
}

type outreachRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (r *outreachRequest) applyDefaults(cfg config.OutreachConfig) {
	if r.Subject == "" {
		r.Subject = cfg.Subject
	}
	if r.Body == "" {
		r.Body = cfg.Body
	}
}

// DraftOutreach previews the template against the first contact, matching
// the review screen's preview panel.
func (s *Server) DraftOutreach(c *gin.Context) {
	var req outreachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.applyDefaults(s.Outreach)

	all := s.Contacts.All()
	preview := outreach.Message{Subject: req.Subject, Body: req.Body}
	if len(all) > 0 {
		preview = outreach.Message{
			To:      all[0].Email,
			Subject: outreach.Render(req.Subject, all[0]),
			Body:    outreach.Render(req.Body, all[0]),
		}
	}
	c.JSON(http.StatusOK, gin.H{"preview": preview, "recipients": len(all)})
}

func (s *Server) SendOutreach(c *gin.Context) {
	var req outreachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.applyDefaults(s.Outreach)

	sent, err := s.Campaign.Send(c.Request.Context(), s.Contacts.All(), req.Subject, req.Body)
	if err != nil {
		log.Printf("Outreach send failed after %d messages: %v", sent, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "send failed", "sent": sent})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// writePipelineError maps the extraction error taxonomy onto HTTP statuses
// so the UI can distinguish re-prompt-for-key from retry-later.
func (s *Server) writePipelineError(c *gin.Context, err error) {
	log.Printf("Scan pipeline error: %v", err)

	switch {
	case errors.Is(err, extract.ErrNoCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no API credential configured", "hint": "connect your key"})
		return
	case errors.Is(err, normalize.ErrDecode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, extract.ErrEmptyResponse), errors.Is(err, extract.ErrMalformedResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	var terr *llm.TransportError
	if errors.As(err, &terr) {
		switch terr.Reason {
		case llm.ReasonUnauthorized:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "credential rejected by extraction endpoint", "hint": "connect your key"})
		case llm.ReasonPayloadTooLarge:
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "images too large for extraction endpoint"})
		case llm.ReasonRateLimited:
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "extraction endpoint is rate limiting, try again shortly"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "extraction endpoint unreachable"})
		}
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process scan"})
}
