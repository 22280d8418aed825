// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package router decides, per model call, whether a request may go to the
// cloud backend or must stay on the local backend.
//
// The decision is a pure function of the content batch about to be sent:
// any confidential item forces the local backend, and for query-only
// calls (no retrieved content yet) a positive PII detection does the same.
// Decisions are never cached; every call site asks again because later
// stages may touch different content.
package router

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// Kind is the backend family a call is routed to.
type Kind string

const (
	Local Kind = "local"
	Cloud Kind = "cloud"
)

// Label converts a Kind into the result label recorded on stage outputs.
// The zero Kind, meaning no call was routed, is unknown.
func (k Kind) Label() types.BackendLabel {
	switch k {
	case Local:
		return types.BackendLocal
	case Cloud:
		return types.BackendCloud
	default:
		return types.BackendUnknown
	}
}

// Reason explains a routing decision.
type Reason string

const (
	ReasonConfidentialContent Reason = "confidential_content"
	ReasonPIIInQuery          Reason = "pii_in_query"
	ReasonPIICheckFailed      Reason = "pii_check_failed"
	ReasonPublicContent       Reason = "public_content"
	ReasonNoSensitiveContent  Reason = "no_sensitive_content"
)

// Batch is the set of content relevant to one model call. Items carry a
// confidentiality marker; Texts are raw query-side strings (query, context,
// history) that have no marker and are screened for PII only when no
// items are present.
type Batch struct {
	Items []types.Bucket
	Texts []string
}

// FindingsBatch builds a batch from findings plus optional query-side text.
func FindingsBatch(findings []types.Finding, texts ...string) Batch {
	b := Batch{Texts: texts}
	for _, f := range findings {
		b.Items = append(b.Items, f.Bucket)
	}
	return b
}

// WithEvidence returns a copy of b extended with verification evidence markers.
func (b Batch) WithEvidence(evidence []types.Evidence) Batch {
	items := append([]types.Bucket(nil), b.Items...)
	for _, e := range evidence {
		items = append(items, e.Bucket)
	}
	return Batch{Items: items, Texts: b.Texts}
}

// QueryBatch builds a query-only batch.
func QueryBatch(texts ...string) Batch {
	return Batch{Texts: texts}
}

// Composition counts the confidentiality markers in a batch.
func (b Batch) Composition() (confidential, public int) {
	for _, item := range b.Items {
		if item.IsConfidential() {
			confidential++
		} else {
			public++
		}
	}
	return confidential, public
}

// PIIDetector reports whether text contains personally identifying information.
type PIIDetector interface {
	Detect(ctx context.Context, text string) (bool, error)
}

// Decision is one routing outcome.
type Decision struct {
	Stage        string    `json:"stage" yaml:"stage"`
	Backend      Kind      `json:"backend" yaml:"backend"`
	Reason       Reason    `json:"reason" yaml:"reason"`
	Confidential int       `json:"confidential" yaml:"confidential"`
	Public       int       `json:"public" yaml:"public"`
	Texts        int       `json:"texts" yaml:"texts"`
	At           time.Time `json:"at" yaml:"at"`
}

// Router applies the confidentiality policy and keeps an append-only log of
// every decision it makes.
type Router struct {
	pii PIIDetector
	log *zap.Logger

	mu        sync.Mutex
	decisions []Decision
}

// New creates a Router. A nil detector disables PII screening; a nil
// logger discards decision logs.
func New(pii PIIDetector, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{pii: pii, log: log.Named("router")}
}

// Choose decides the backend for one call made by stage over batch.
func (r *Router) Choose(ctx context.Context, stage string, batch Batch) Decision {
	confidential, public := batch.Composition()
	d := Decision{
		Stage:        stage,
		Confidential: confidential,
		Public:       public,
		Texts:        len(batch.Texts),
		At:           time.Now(),
	}

	switch {
	case confidential > 0:
		d.Backend, d.Reason = Local, ReasonConfidentialContent
	case len(batch.Items) > 0:
		d.Backend, d.Reason = Cloud, ReasonPublicContent
	default:
		d.Backend, d.Reason = r.screenQuery(ctx, batch.Texts)
	}

	r.record(d)
	return d
}

// screenQuery runs PII detection over query-only text. Detector failures
// keep the call local.
func (r *Router) screenQuery(ctx context.Context, texts []string) (Kind, Reason) {
	if r.pii == nil {
		return Cloud, ReasonNoSensitiveContent
	}
	for _, text := range texts {
		if text == "" {
			continue
		}
		found, err := r.pii.Detect(ctx, text)
		if err != nil {
			r.log.Warn("pii detection failed, routing local", zap.Error(err))
			return Local, ReasonPIICheckFailed
		}
		if found {
			return Local, ReasonPIIInQuery
		}
	}
	return Cloud, ReasonNoSensitiveContent
}

func (r *Router) record(d Decision) {
	r.mu.Lock()
	r.decisions = append(r.decisions, d)
	r.mu.Unlock()

	r.log.Info("route",
		zap.String("stage", d.Stage),
		zap.String("backend", string(d.Backend)),
		zap.String("reason", string(d.Reason)),
		zap.Int("confidential", d.Confidential),
		zap.Int("public", d.Public),
		zap.Int("items", d.Confidential+d.Public),
		zap.Int("texts", d.Texts),
	)
}

// Decisions returns a copy of the decision log in the order decisions were made.
func (r *Router) Decisions() []Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Decision(nil), r.decisions...)
}
