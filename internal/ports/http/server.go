package http

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"time"

	"echodao-backend/internal/app"
	"echodao-backend/internal/model"
	"echodao-backend/internal/ports/http/middleware/cors"
	"echodao-backend/internal/ports/http/middleware/ratelimit"
	"echodao-backend/internal/ports/http/middleware/requestid"
	"echodao-backend/internal/quota"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Service is implemented by *app.App.
type Service interface {
	CreateProposal(ctx context.Context, draft model.ProposalDraft) (model.CreateResult, error)
	CheckLimit(ctx context.Context, user string) (quota.Status, error)
	Vote(ctx context.Context, id uint64, support bool) (model.VoteResult, error)
	Execute(ctx context.Context, id uint64) (model.ExecuteResult, error)
	ListProposals(ctx context.Context) ([]model.Proposal, error)
	GetProposal(ctx context.Context, id uint64) (model.Proposal, error)
	ProposalState(ctx context.Context, id uint64) (app.ProposalState, error)

	TreasuryBalance(ctx context.Context) (*big.Int, error)
	TreasuryInfo(ctx context.Context) (model.TreasuryInfo, error)

	SubmitReport(ctx context.Context, filename string, data []byte) (model.Report, error)
	VerifyReportText(text string) (string, model.TrustScore, error)
	VerifyIntegrity(ctx context.Context, contentID, expectedHash string) (model.IntegrityCheck, error)
}

type Options struct {
	Address         string
	RequestTimeout  time.Duration
	// MutationTimeout bounds create, vote and execute; RequestTimeout when unset.
	MutationTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

type server struct {
	app        Service
	httpServer *http.Server
	opts       Options
	logger     *zap.Logger
}

func (ser server) registerHandlers(router *mux.Router) {
	router.HandleFunc("/", ser.root).Methods(http.MethodGet)
	router.HandleFunc("/health", healthcheck).Methods(http.MethodGet)

	proposals := router.PathPrefix("/proposals").Subrouter()
	proposals.HandleFunc("/create", ser.createProposal).Methods(http.MethodPost)
	proposals.HandleFunc("/check-limit/{userAddress}", ser.checkLimit).Methods(http.MethodGet)
	proposals.HandleFunc("/vote", ser.vote).Methods(http.MethodPost)
	proposals.HandleFunc("/execute/{proposalID}", ser.execute).Methods(http.MethodPost)
	proposals.HandleFunc("/list", ser.listProposals).Methods(http.MethodGet)
	proposals.HandleFunc("/{proposalID}", ser.getProposal).Methods(http.MethodGet)

	funds := router.PathPrefix("/funds").Subrouter()
	funds.HandleFunc("/treasury_balance", ser.treasuryBalance).Methods(http.MethodGet)
	funds.HandleFunc("/treasury_info", ser.treasuryInfo).Methods(http.MethodGet)
	funds.HandleFunc("/proposal_status/{proposalID}", ser.proposalStatus).Methods(http.MethodGet)

	reports := router.PathPrefix("/reports").Subrouter()
	reports.HandleFunc("/submit_report", ser.submitReport).Methods(http.MethodPost)
	reports.HandleFunc("/verify_report_ai", ser.verifyReportAI).Methods(http.MethodPost)
	reports.HandleFunc("/verify_hash", ser.verifyHash).Methods(http.MethodPost)
}

func (ser server) root(w http.ResponseWriter, r *http.Request) {
	ser.writeJSON(w, http.StatusOK, map[string]string{"message": "EchoDAO backend is running"})
}

func healthcheck(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("all good here"))
}

func NewServer(logger *zap.Logger, a Service, opts Options) *server {
	return &server{
		app:    a,
		opts:   opts,
		logger: logger,
	}
}

// Handler builds the router wrapped in the middleware chain.
func (ser *server) Handler() http.Handler {
	router := mux.NewRouter()
	ser.registerHandlers(router)

	var handler http.Handler = router
	if ser.opts.RateLimitRPS > 0 {
		handler = ratelimit.New(ser.opts.RateLimitRPS, ser.opts.RateLimitBurst).Middleware(handler)
	}
	handler = requestid.Middleware(ser.logger)(handler)
	return cors.AddCorsPolicy(handler)
}

func (ser *server) Run() error {
	ser.httpServer = &http.Server{
		Handler:           ser.Handler(),
		Addr:              ser.opts.Address,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ser.logger.Info("starting the http server", zap.String("address", ser.opts.Address))

	if err := ser.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ser *server) Shutdown(ctx context.Context) error {
	if ser.httpServer == nil {
		return nil
	}
	return ser.httpServer.Shutdown(ctx)
}

// requestContext bounds the handler's work by the configured request timeout.
func (ser server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return withTimeout(r, ser.opts.RequestTimeout)
}

// mutationContext is requestContext for handlers that submit transactions.
func (ser server) mutationContext(r *http.Request) (context.Context, context.CancelFunc) {
	if ser.opts.MutationTimeout <= 0 {
		return ser.requestContext(r)
	}
	return withTimeout(r, ser.opts.MutationTimeout)
}

func withTimeout(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), timeout)
}
