package router

import (
	"fmt"
	"net/http"

	"github.com/citizenwallet/multisig/internal/auth"
	"github.com/citizenwallet/multisig/internal/multisigs"
	"github.com/citizenwallet/multisig/internal/proposals"
	"github.com/citizenwallet/multisig/internal/session"
	"github.com/citizenwallet/multisig/internal/templates"
	"github.com/citizenwallet/multisig/internal/version"
	"github.com/citizenwallet/multisig/internal/wallet"
	"github.com/citizenwallet/multisig/pkg/reconcile"
	tpl "github.com/citizenwallet/multisig/pkg/templates"
	"github.com/citizenwallet/multisig/pkg/tracker"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Router struct {
	chainID string
	apiKey  string
	prefix  string
	codeID  uint64

	reg *tpl.Registry
	r   *reconcile.Reconciler
	t   *tracker.Tracker
	c   *wallet.Connector
}

func NewServer(chainID, apiKey, prefix string, codeID uint64, reg *tpl.Registry, r *reconcile.Reconciler, t *tracker.Tracker, c *wallet.Connector) *Router {
	return &Router{
		chainID: chainID,
		apiKey:  apiKey,
		prefix:  prefix,
		codeID:  codeID,
		reg:     reg,
		r:       r,
		t:       t,
		c:       c,
	}
}

// Handler builds the http handler with every route and middleware
func (r *Router) Handler() http.Handler {
	cr := chi.NewRouter()

	a := auth.New(r.apiKey)
	sh := sentryhttp.New(sentryhttp.Options{Repanic: true})

	// configure middleware
	cr.Use(middleware.RequestID)
	cr.Use(middleware.Logger)
	cr.Use(middleware.Recoverer)
	cr.Use(sh.Handle)

	// configure custom middleware
	cr.Use(OptionsMiddleware)
	cr.Use(HealthMiddleware)
	cr.Use(RequestSizeLimitMiddleware(1 << 20)) // Limit request bodies to 1MB
	cr.Use(a.AuthMiddleware)
	cr.Use(middleware.Compress(9))

	// instantiate handlers
	v := version.NewService(r.chainID)
	se := session.NewService(r.c)
	te := templates.NewService(r.reg)
	ms := multisigs.NewService(r.r, r.t, r.codeID, r.prefix)
	pr := proposals.NewService(r.r, r.t, r.reg, r.prefix)

	withWallet := WalletMiddleware(r.c)

	// configure routes
	cr.Get("/version", v.Current)

	cr.Route("/session", func(cr chi.Router) {
		cr.Get("/", se.Get)
		cr.Post("/{connect_type}", se.Connect)
		cr.Delete("/", se.Disconnect)
	})

	cr.Route("/templates", func(cr chi.Router) {
		cr.Get("/", te.List)
		cr.Post("/{template_id}/render", te.Render)
	})

	cr.Route("/multisig", func(cr chi.Router) {
		cr.With(withWallet).Post("/", ms.Create)

		cr.Route("/{multisig_address}", func(cr chi.Router) {
			cr.Get("/", ms.Get)

			cr.Route("/proposals", func(cr chi.Router) {
				cr.Use(withWallet)

				cr.Get("/", pr.List)
				cr.Post("/", pr.Create)

				cr.Route("/{proposal_id}", func(cr chi.Router) {
					cr.Get("/", pr.Get)
					cr.Delete("/", pr.Leave)
					cr.Post("/vote", pr.Vote)
					cr.Post("/execute", pr.Execute)
					cr.Post("/close", pr.Close)
				})
			})
		})
	})

	return cr
}

// Start listens on port until the server fails
func (r *Router) Start(port int) error {
	return http.ListenAndServe(fmt.Sprintf(":%v", port), r.Handler())
}
