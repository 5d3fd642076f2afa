package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/tradebook/confirm"
	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/ledger"
	"github.com/rustyeddy/tradebook/market"
)

// submitRequest carries either the manual argument list or the fields.
type submitRequest struct {
	Args      []string `json:"args"`
	Symbol    string   `json:"symbol"`
	Side      string   `json:"side"`
	Entry     float64  `json:"entry"`
	Exit      float64  `json:"exit"`
	Qty       float64  `json:"qty"`
	CloseTime string   `json:"close_time"`
}

func (r submitRequest) submission(loc *time.Location) (ledger.Submission, error) {
	if len(r.Args) > 0 {
		return ledger.ParseTradeArgs(r.Args, loc)
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return ledger.Submission{}, fmt.Errorf("%w: symbol is required", ledger.ErrMalformed)
	}
	side, err := market.ParseSide(r.Side)
	if err != nil {
		return ledger.Submission{}, err
	}
	s := ledger.Submission{Symbol: r.Symbol, Side: side, Entry: r.Entry, Exit: r.Exit, Qty: r.Qty}
	if r.CloseTime != "" {
		if s.CloseTime, err = market.ParseTimestamp(r.CloseTime, loc); err != nil {
			return ledger.Submission{}, err
		}
	}
	return s, nil
}

func outcomeStatus(o ledger.Outcome) int {
	switch o.State {
	case confirm.Committed:
		return http.StatusCreated
	case confirm.DuplicateDetected:
		return http.StatusAccepted
	}
	return http.StatusOK
}

func (s *Server) submitTrade(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %w", ledger.ErrMalformed, err))
		return
	}
	sub, err := req.submission(s.loc)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := s.ledger.Submit(c.Request.Context(), requester(c), sub)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(outcomeStatus(out), toOutcomeJSON(out))
}

func (s *Server) submitScreenshot(c *gin.Context) {
	if s.recognizer == nil || s.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "screenshot recognition is not configured"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	img, err := io.ReadAll(io.LimitReader(f, MaxUpload))
	if err != nil {
		respondError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	ctx := c.Request.Context()
	page, err := s.recognizer.Recognize(ctx, img)
	if err != nil {
		respondError(c, fmt.Errorf("recognize: %w", err))
		return
	}
	res, err := s.extractor.Extract(ctx, page)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := s.ledger.Submit(ctx, requester(c), ledger.FromExtraction(res))
	if err != nil {
		respondError(c, err)
		return
	}
	body := toOutcomeJSON(out)
	body.Pass = res.Pass
	body.SideDefaulted = res.SideDefaulted
	body.Suspicious = res.Suspicious
	c.JSON(outcomeStatus(out), body)
}

func (s *Server) pending(c *gin.Context) {
	p, ok, err := s.ledger.Pending(c.Request.Context(), requester(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		respondError(c, confirm.ErrNoPending)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         p.ID,
		"trade":      toTradeJSON(p.Trade),
		"created_at": market.FormatTimestamp(p.CreatedAt.In(s.loc)),
	})
}

type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

func (s *Server) decide(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %w", ledger.ErrMalformed, err))
		return
	}
	d, err := confirm.ParseDecision(req.Decision)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := s.ledger.Decide(c.Request.Context(), requester(c), d)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(outcomeStatus(out), toOutcomeJSON(out))
}

type badLineJSON struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// importBatch reads one manual trade per line from the plain text body.
func (s *Server) importBatch(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxUpload))
	if err != nil {
		respondError(c, fmt.Errorf("read body: %w", err))
		return
	}

	res, err := s.ledger.ImportBatch(c.Request.Context(), string(body))
	if err != nil {
		respondError(c, err)
		return
	}
	bad := make([]badLineJSON, 0, len(res.Malformed))
	for _, b := range res.Malformed {
		bad = append(bad, badLineJSON{Line: b.Line, Error: b.Err.Error()})
	}
	c.JSON(http.StatusOK, gin.H{
		"imported":   res.Imported,
		"duplicates": res.Duplicates,
		"malformed":  bad,
		"totals":     toTotalsJSON(res.Totals),
	})
}

func (s *Server) listTrades(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(c, fmt.Errorf("%w: limit %q", ledger.ErrMalformed, v))
			return
		}
		limit = n
	}
	trades, err := s.ledger.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": toTradesJSON(trades)})
}

func tradeID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: trade id %q", ledger.ErrMalformed, c.Param("id"))
	}
	return id, nil
}

// getTrade answers JSON, or the Org-mode block with ?format=org.
func (s *Server) getTrade(c *gin.Context) {
	id, err := tradeID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	t, err := s.ledger.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("format") == "org" {
		c.String(http.StatusOK, journal.FormatTradeOrg(t))
		return
	}
	c.JSON(http.StatusOK, toTradeJSON(t))
}

func (s *Server) deleteTrade(c *gin.Context) {
	id, err := tradeID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.ledger.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) reindex(c *gin.Context) {
	if err := s.ledger.Reindex(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reindexed"})
}

func (s *Server) clearTrades(c *gin.Context) {
	if c.Query("confirm") != "yes" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clearing all trades requires ?confirm=yes"})
		return
	}
	if err := s.ledger.Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
