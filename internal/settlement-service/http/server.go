package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/settlement"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/engine"
)

// CallerHeader carrega a identidade do chamador, autenticada antes do serviço.
const CallerHeader = "X-Caller-Address"

// Engine é o que o handler usa do motor de liquidação
type Engine interface {
	Deposit(ctx context.Context, caller common.Address, amount *uint256.Int) (*chain.Receipt, error)
	Withdraw(ctx context.Context, caller common.Address, amount *uint256.Int) (*chain.Receipt, error)
	Payout(ctx context.Context, caller, recipient common.Address, amount *uint256.Int) (*chain.Receipt, error)
	PlaceBet(ctx context.Context, caller common.Address, eventID domain.EventID, outcome domain.Outcome, stake *uint256.Int) (*chain.Receipt, error)
	ResolveEvent(ctx context.Context, caller common.Address, eventID domain.EventID) (*settlement.Resolution, *chain.Receipt, error)
	SetResult(ctx context.Context, caller common.Address, eventID domain.EventID, outcome domain.Outcome) (*chain.Receipt, error)
	SetSettlement(ctx context.Context, caller, addr common.Address) (*chain.Receipt, error)
	SetOracle(ctx context.Context, caller, addr common.Address) (*chain.Receipt, error)
	SetOperator(ctx context.Context, caller, addr common.Address) (*chain.Receipt, error)
	ReleaseRetained(ctx context.Context, caller common.Address) (*uint256.Int, *chain.Receipt, error)
	Fund(ctx context.Context, to common.Address, amount *uint256.Int) (*chain.Receipt, error)

	Balance(account common.Address) *uint256.Int
	WalletBalance(addr common.Address) *uint256.Int
	ReserveState() engine.ReserveState
	Result(eventID domain.EventID) (domain.Outcome, error)
	EventSummary(eventID domain.EventID) settlement.EventSummary
	StakeOf(eventID domain.EventID, outcome domain.Outcome, bettor common.Address) *uint256.Int
	PotentialPrize(stake *uint256.Int, outcomeCount uint8) (*uint256.Int, error)
	Addresses() engine.Addresses
	Owner() common.Address
	Operator() common.Address
	Sequence() uint64
	FaucetEnabled() bool
}

// Server expõe a API REST de liquidação
type Server struct {
	log *zap.Logger
	eng Engine
	ws  http.Handler // opcional
}

// NewServer instancia o servidor HTTP. ws pode ser nil.
func NewServer(log *zap.Logger, eng Engine, ws http.Handler) *Server {
	return &Server{log: log, eng: eng, ws: ws}
}

// Router retorna o roteador com todas as rotas da API
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/v1/info", s.info)

	r.Route("/v1/reserve", func(r chi.Router) {
		r.Post("/deposit", s.deposit)
		r.Post("/withdraw", s.withdraw)
		r.Post("/payout", s.payout) // só a liquidação; externo recebe 403
		r.Get("/balances/{address}", s.balance)
		r.Get("/liquidity", s.liquidity)
		r.Post("/settlement", s.setSettlement)
		r.Post("/release", s.releaseRetained)
	})

	r.Route("/v1/events/{id}", func(r chi.Router) {
		r.Get("/", s.getEvent)
		r.Post("/bets", s.placeBet)
		r.Post("/resolve", s.resolveEvent)
		r.Put("/result", s.setResult)
		r.Get("/result", s.getResult)
		r.Get("/stakes/{address}", s.stakes)
	})

	r.Get("/v1/prize", s.prize)
	r.Post("/v1/settlement/oracle", s.setOracle)
	r.Post("/v1/oracle/operator", s.setOperator)
	r.Get("/v1/wallets/{address}", s.wallet)
	if s.eng.FaucetEnabled() {
		r.Post("/v1/faucet", s.faucet)
	}
	if s.ws != nil {
		r.Get("/ws", s.ws.ServeHTTP)
	}
	return r
}

// accessLog registra método, rota, status e latência de cada requisição
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
