package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/platform/debounce"
	"github.com/lojafacil/api/internal/platform/functions"
)

const fnGetCarrierQuotes = "getCarrierQuotes"

// ErrQuoteInvalidInput indicates the caller supplied invalid input parameters.
var ErrQuoteInvalidInput = errors.New("quotes: invalid input")

// QuoteFunctionInvoker abstracts the functions client for easier testing.
type QuoteFunctionInvoker interface {
	Invoke(ctx context.Context, name string, payload any, out any) error
}

// QuoteServiceDeps wires the dependencies required by the quote service.
type QuoteServiceDeps struct {
	Functions QuoteFunctionInvoker
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type quoteService struct {
	functions QuoteFunctionInvoker
	logger    func(ctx context.Context, event string, fields map[string]any)

	// seq is the latest issued request number. A response is applied only
	// when its request is still the newest; anything older is stale.
	seq atomic.Uint64
}

// NewQuoteService constructs a QuoteService validating required dependencies.
func NewQuoteService(deps QuoteServiceDeps) (QuoteService, error) {
	if deps.Functions == nil {
		return nil, errors.New("quote service: functions client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &quoteService{functions: deps.Functions, logger: logger}, nil
}

type quoteRequestPayload struct {
	StoreID            string             `json:"storeId"`
	OriginZipcode      string             `json:"originZipcode"`
	DestinationZipcode string             `json:"destinationZipcode"`
	Items              []quoteItemPayload `json:"items"`
}

type quoteItemPayload struct {
	WeightGrams int `json:"weightGrams"`
	LengthMM    int `json:"lengthMm"`
	WidthMM     int `json:"widthMm"`
	HeightMM    int `json:"heightMm"`
	Quantity    int `json:"quantity"`
}

type quoteResponsePayload struct {
	functions.Envelope
	Quotes []struct {
		ServiceID    string `json:"serviceId"`
		Name         string `json:"name"`
		Price        int64  `json:"price"`
		CustomPrice  *int64 `json:"customPrice,omitempty"`
		DeliveryDays int    `json:"deliveryDays"`
	} `json:"quotes"`
}

// Fetch requests carrier rates for the given destination. Each call takes the
// next sequence number; when a response lands after a newer request was
// issued it is marked stale and its quotes are dropped. Network failures
// degrade to an empty quote set so checkout is not blocked.
func (s *quoteService) Fetch(ctx context.Context, cmd FetchQuotesCommand) (QuoteResult, error) {
	if s == nil || s.functions == nil {
		return QuoteResult{}, errors.New("quote service not initialised")
	}

	destination := domain.NormalizeZipcode(cmd.DestinationZipcode)
	if strings.TrimSpace(cmd.StoreID) == "" || destination == "" {
		return QuoteResult{}, ErrQuoteInvalidInput
	}

	seq := s.seq.Add(1)

	payload := quoteRequestPayload{
		StoreID:            cmd.StoreID,
		OriginZipcode:      domain.NormalizeZipcode(cmd.OriginZipcode),
		DestinationZipcode: destination,
	}
	for _, line := range cmd.Lines {
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		dims := line.Dimensions.OrDefault()
		payload.Items = append(payload.Items, quoteItemPayload{
			WeightGrams: dims.WeightGrams,
			LengthMM:    dims.LengthMM,
			WidthMM:     dims.WidthMM,
			HeightMM:    dims.HeightMM,
			Quantity:    qty,
		})
	}

	var resp quoteResponsePayload
	if err := s.functions.Invoke(ctx, fnGetCarrierQuotes, payload, &resp); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return QuoteResult{}, err
		}
		s.logger(ctx, "carrier_quotes_unavailable", map[string]any{
			"storeId": cmd.StoreID,
			"error":   err.Error(),
		})
		return QuoteResult{Sequence: seq, Stale: s.seq.Load() != seq}, nil
	}

	if s.seq.Load() != seq {
		return QuoteResult{Sequence: seq, Stale: true}, nil
	}

	result := QuoteResult{Sequence: seq}
	for _, q := range resp.Quotes {
		result.Quotes = append(result.Quotes, domain.CarrierQuote{
			ServiceID:    q.ServiceID,
			Name:         q.Name,
			Price:        q.Price,
			CustomPrice:  q.CustomPrice,
			DeliveryDays: q.DeliveryDays,
		})
	}
	return result, nil
}

// QuoteStream debounces address changes into quote fetches. Results keep
// their Stale mark so consumers can discard superseded quotes; cancelled
// fetches are dropped.
type QuoteStream struct {
	quotes    QuoteService
	debouncer *debounce.Debouncer
	onResult  func(QuoteResult)
}

// NewQuoteStream builds a stream over the quote service. interval <= 0 falls
// back to the debouncer's default.
func NewQuoteStream(quotes QuoteService, interval time.Duration, onResult func(QuoteResult)) (*QuoteStream, error) {
	if quotes == nil {
		return nil, errors.New("quote stream: quote service is required")
	}
	if onResult == nil {
		return nil, errors.New("quote stream: result callback is required")
	}
	return &QuoteStream{
		quotes:    quotes,
		debouncer: debounce.New(interval),
		onResult:  onResult,
	}, nil
}

// AddressChanged schedules a fetch for the new destination, resetting the
// debounce window.
func (s *QuoteStream) AddressChanged(ctx context.Context, cmd FetchQuotesCommand) {
	if s == nil {
		return
	}
	s.debouncer.Trigger(func() {
		result, err := s.quotes.Fetch(ctx, cmd)
		if err != nil {
			return
		}
		s.onResult(result)
	})
}

// Close stops any pending fetch trigger.
func (s *QuoteStream) Close() {
	if s != nil {
		s.debouncer.Stop()
	}
}

// QuoteStreamPool shares one debounced stream per checkout session so rapid
// destination edits collapse into a single carrier fetch. Every caller blocked
// on a session receives the result of the fetch that finally fires.
type QuoteStreamPool struct {
	quotes   QuoteService
	interval time.Duration

	mu       sync.Mutex
	sessions map[string]*quoteSession
}

type quoteSession struct {
	stream *QuoteStream

	mu      sync.Mutex
	waiters []chan QuoteResult
}

// NewQuoteStreamPool builds a pool over the quote service. interval <= 0
// falls back to the debouncer's default.
func NewQuoteStreamPool(quotes QuoteService, interval time.Duration) (*QuoteStreamPool, error) {
	if quotes == nil {
		return nil, errors.New("quote stream pool: quote service is required")
	}
	return &QuoteStreamPool{
		quotes:   quotes,
		interval: interval,
		sessions: make(map[string]*quoteSession),
	}, nil
}

// Fetch schedules a debounced fetch for the session and blocks until the quiet
// window closes and the quotes arrive, or ctx ends. A call landing inside the
// window supersedes the pending destination; every blocked caller is released
// with the final result.
func (p *QuoteStreamPool) Fetch(ctx context.Context, sessionKey string, cmd FetchQuotesCommand) (QuoteResult, error) {
	if p == nil || p.quotes == nil {
		return QuoteResult{}, errors.New("quote stream pool not initialised")
	}
	// Rejecting bad input here keeps the debounced fetch from failing after
	// the window, which would leave the blocked callers without an answer.
	if strings.TrimSpace(sessionKey) == "" || strings.TrimSpace(cmd.StoreID) == "" ||
		domain.NormalizeZipcode(cmd.DestinationZipcode) == "" {
		return QuoteResult{}, ErrQuoteInvalidInput
	}

	session := p.session(sessionKey)

	ch := make(chan QuoteResult, 1)
	session.mu.Lock()
	session.waiters = append(session.waiters, ch)
	session.mu.Unlock()

	session.stream.AddressChanged(ctx, cmd)

	select {
	case result := <-ch:
		return result, nil
	case <-ctx.Done():
		session.drop(ch)
		return QuoteResult{}, ctx.Err()
	}
}

// Close stops every pending debounce timer.
func (p *QuoteStreamPool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, session := range p.sessions {
		session.stream.Close()
		delete(p.sessions, key)
	}
}

func (p *QuoteStreamPool) session(key string) *quoteSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	if session, ok := p.sessions[key]; ok {
		return session
	}
	session := &quoteSession{}
	// The constructor only rejects nil arguments, both checked here.
	stream, _ := NewQuoteStream(p.quotes, p.interval, session.deliver)
	session.stream = stream
	p.sessions[key] = session
	return session
}

func (s *quoteSession) deliver(result QuoteResult) {
	s.mu.Lock()
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- result
	}
}

func (s *quoteSession) drop(ch chan QuoteResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.waiters[:0]
	for _, w := range s.waiters {
		if w != ch {
			kept = append(kept, w)
		}
	}
	s.waiters = kept
}
