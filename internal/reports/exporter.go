// Package reports renders member, catalog, order and transaction listings
// into CSV/JSON artifacts asynchronously and hands them to an artifact
// store.
package reports

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"storecore/internal/artifacts"
	"storecore/pkg/domain"
)

// Kind selects which projection a report renders.
type Kind string

const (
	KindMembers            Kind = "members"
	KindProducts           Kind = "products"
	KindOrders             Kind = "orders"
	KindMemberTransactions Kind = "member_transactions"
)

// Format identifies a report output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Status describes the lifecycle stage of a report request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures one stored report output.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Rows        int       `json:"rows"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks a report request and its resulting artifacts.
type Record struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	Formats     []Format   `json:"formats"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Request enqueues a report run.
type Request struct {
	Kind        Kind
	Formats     []Format
	MemberID    string // required for KindMemberTransactions
	Start       time.Time
	End         time.Time
	RequestedBy string
	Reason      string
}

// ListingSource produces the safe projections a report renders. The store
// facade satisfies it.
type ListingSource interface {
	GetMembers() *domain.ListingIterator
	GetProducts() *domain.ListingIterator
	GetOrders() *domain.ListingIterator
	GetTransactions(memberID string, start, end time.Time) (*domain.ListingIterator, domain.Status)
}

// AuditLogger records report audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for report runs.
type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Kind       Kind      `json:"kind"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Worker executes report requests asynchronously.
type Worker struct {
	source ListingSource
	store  artifacts.Store
	audit  AuditLogger
	logger *zap.Logger

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Record

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type task struct {
	id  string
	req Request
}

// Option customises a Worker.
type Option func(*Worker)

// WithAudit installs an audit logger.
func WithAudit(audit AuditLogger) Option {
	return func(w *Worker) { w.audit = audit }
}

// WithLogger installs a structured logger. The default is a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker constructs a report worker over the listing source and
// artifact store.
func NewWorker(source ListingSource, store artifacts.Store, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		source: source,
		store:  store,
		logger: zap.NewNop(),
		queue:  make(chan task, 32),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing report requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.process(t)
		}
	}
}

// Enqueue schedules a report run and returns the queued record.
func (w *Worker) Enqueue(ctx context.Context, req Request) (Record, error) {
	switch req.Kind {
	case KindMembers, KindProducts, KindOrders:
	case KindMemberTransactions:
		if req.MemberID == "" {
			return Record{}, fmt.Errorf("member id required for %s report", req.Kind)
		}
	default:
		return Record{}, fmt.Errorf("unknown report kind %q", req.Kind)
	}

	formats := req.Formats
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, f := range formats {
		if f != FormatCSV && f != FormatJSON {
			return Record{}, fmt.Errorf("unsupported format %q", f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		uniq = append(uniq, f)
		seen[f] = struct{}{}
	}

	id := newID()
	now := time.Now().UTC()
	record := Record{
		ID:          id,
		Kind:        req.Kind,
		Formats:     uniq,
		Status:      StatusQueued,
		RequestedBy: req.RequestedBy,
		Reason:      req.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.recordAudit(ctx, record.RequestedBy, req.Kind, StatusQueued, req.Reason, "")

	select {
	case w.queue <- task{id: id, req: req}:
	default:
		return Record{}, fmt.Errorf("report queue full")
	}
	return queued, nil
}

// Get returns a snapshot of the report record.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(t task) {
	w.setStatus(t.id, StatusRunning, "")

	listings, err := w.collect(t.req)
	if err != nil {
		w.fail(t.id, err.Error())
		return
	}

	w.mu.RLock()
	record, ok := w.jobs[t.id]
	var formats []Format
	if ok {
		formats = append(formats, record.Formats...)
	}
	w.mu.RUnlock()
	if !ok {
		return
	}

	stored := make([]Artifact, 0, len(formats))
	for _, format := range formats {
		payload, contentType, err := render(t.req.Kind, format, listings)
		if err != nil {
			w.fail(t.id, err.Error())
			return
		}
		ref := artifacts.Ref{Kind: string(t.req.Kind), ReportID: t.id, Format: string(format)}
		artifact := Artifact{
			Key:         ref.Key(),
			Format:      format,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			Rows:        len(listings),
			CreatedAt:   time.Now().UTC(),
		}
		if w.store != nil {
			desc, err := w.store.Save(w.ctx, ref, payload, contentType, len(listings))
			if err != nil {
				w.fail(t.id, fmt.Sprintf("store artifact: %v", err))
				return
			}
			artifact.Location = desc.Location
		}
		stored = append(stored, artifact)
	}
	w.complete(t.id, stored)
}

func (w *Worker) collect(req Request) ([]domain.Listing, error) {
	var it *domain.ListingIterator
	switch req.Kind {
	case KindMembers:
		it = w.source.GetMembers()
	case KindProducts:
		it = w.source.GetProducts()
	case KindOrders:
		it = w.source.GetOrders()
	case KindMemberTransactions:
		var status domain.Status
		it, status = w.source.GetTransactions(req.MemberID, req.Start, req.End)
		if !status.OK() {
			return nil, fmt.Errorf("member %s: %s", req.MemberID, status)
		}
	}
	var listings []domain.Listing
	for {
		listing, err := it.Next()
		if errors.Is(err, domain.ErrListingExhausted) {
			return listings, nil
		}
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
}

func (w *Worker) setStatus(id string, status Status, note string) {
	now := time.Now().UTC()
	w.mu.Lock()
	record, ok := w.jobs[id]
	var actor string
	var kind Kind
	var reason string
	if ok {
		record.Status = status
		record.Error = note
		record.UpdatedAt = now
		actor, kind, reason = record.RequestedBy, record.Kind, record.Reason
	}
	w.mu.Unlock()
	if !ok {
		return
	}
	w.logger.Debug("report status", zap.String("id", id), zap.String("status", string(status)))
	w.recordAudit(w.ctx, actor, kind, status, reason, note)
}

func (w *Worker) complete(id string, stored []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.Artifacts = stored
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.setStatusAudited(id, StatusSucceeded, "")
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.logger.Warn("report failed", zap.String("id", id), zap.String("reason", reason))
	w.setStatusAudited(id, StatusFailed, reason)
}

func (w *Worker) setStatusAudited(id string, status Status, note string) {
	w.mu.RLock()
	record, ok := w.jobs[id]
	var actor string
	var kind Kind
	var reason string
	if ok {
		actor, kind, reason = record.RequestedBy, record.Kind, record.Reason
	}
	w.mu.RUnlock()
	if !ok {
		return
	}
	w.recordAudit(w.ctx, actor, kind, status, reason, note)
}

func (w *Worker) recordAudit(ctx context.Context, actor string, kind Kind, status Status, reason, note string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         newID(),
		Action:     "report_export",
		Actor:      actor,
		Kind:       kind,
		Status:     status,
		Reason:     reason,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	})
}

func render(kind Kind, format Format, listings []domain.Listing) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(listings)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write(csvHeader(kind)); err != nil {
			return nil, "", err
		}
		for _, listing := range listings {
			if err := writer.Write(csvRow(kind, listing)); err != nil {
				return nil, "", err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	}
	return nil, "", fmt.Errorf("unsupported format %q", format)
}

func csvHeader(kind Kind) []string {
	switch kind {
	case KindMembers:
		return []string{"id", "name", "address", "phone", "joined_at", "fee_paid", "fee"}
	case KindProducts:
		return []string{"id", "name", "stock", "price", "reorder_level"}
	case KindOrders:
		return []string{"id", "product_id", "product_name", "quantity", "reason", "created_at"}
	case KindMemberTransactions:
		return []string{"member_id", "created_at", "items", "total", "payment", "completed"}
	}
	return nil
}

func csvRow(kind Kind, l domain.Listing) []string {
	switch kind {
	case KindMembers:
		return []string{
			l.ID,
			l.Name,
			l.Address,
			l.Phone,
			l.JoinedAt.Format(time.RFC3339),
			cast.ToString(l.FeePaid),
			cast.ToString(l.Fee),
		}
	case KindProducts:
		return []string{
			l.ID,
			l.Name,
			cast.ToString(l.Stock),
			cast.ToString(l.Price),
			cast.ToString(l.ReorderLevel),
		}
	case KindOrders:
		return []string{
			l.ID,
			l.ProductID,
			l.ProductName,
			cast.ToString(l.Quantity),
			string(l.Reason),
			l.CreatedAt.Format(time.RFC3339),
		}
	case KindMemberTransactions:
		return []string{
			l.ID,
			l.CreatedAt.Format(time.RFC3339),
			cast.ToString(len(l.Items)),
			cast.ToString(l.Total),
			cast.ToString(l.Payment),
			cast.ToString(l.Completed),
		}
	}
	return nil
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

// MemoryAuditLog captures audit entries in-memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
