// Package claude serves the Anthropic messages dialect.
package claude

import (
	"context"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/discovery"
	"antigravity2api-go/internal/handlers/common"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/relay"
	"antigravity2api-go/internal/translator"
)

const dialect = "claude"

type dispatcher interface {
	Stream(ctx context.Context, ireq *translator.InternalRequest, acct *models.Account, sink relay.Sink) error
	Complete(ctx context.Context, ireq *translator.InternalRequest, acct *models.Account) (*translator.Completion, error)
}

type accountPool interface {
	Acquire(ctx context.Context) (*models.Account, error)
	Release(acct *models.Account, outcome string)
}

type modelLister interface {
	List(ctx context.Context) []string
}

var (
	_ dispatcher  = (*relay.Dispatcher)(nil)
	_ accountPool = (*credential.Pool)(nil)
	_ modelLister = (*discovery.ModelService)(nil)
)

// Handler aggregates shared dependencies of the Anthropic-compatible
// endpoints.
type Handler struct {
	cfg      *config.Manager
	pool     accountPool
	trans    *translator.Translator
	relay    dispatcher
	streams  *common.Streams
	catalog  modelLister
	recorder *common.Recorder
	images   translator.ImageSink
}

// New constructs the Anthropic handler set.
func New(cfg *config.Manager, pool accountPool, trans *translator.Translator, relay dispatcher,
	streams *common.Streams, catalog modelLister, recorder *common.Recorder, images translator.ImageSink) *Handler {
	return &Handler{
		cfg:      cfg,
		pool:     pool,
		trans:    trans,
		relay:    relay,
		streams:  streams,
		catalog:  catalog,
		recorder: recorder,
		images:   images,
	}
}
