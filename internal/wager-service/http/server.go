package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/betting-game/internal/wager-service/dto"
	"github.com/radieske/betting-game/internal/wager-service/leaderboard"
	"github.com/radieske/betting-game/internal/wager-service/repo"
	"github.com/radieske/betting-game/internal/wager-service/service"
)

const requestIDHeader = "X-Request-ID"

// Wagers define as operações de conta/aposta usadas pelo handler HTTP
type Wagers interface {
	GetAccount(ctx context.Context, id int64) (repo.Account, error)
	ListAccounts(ctx context.Context) ([]repo.Account, error)
	GetWager(ctx context.Context, id int64) (repo.Wager, error)
	PlaceBet(ctx context.Context, accountID int64, stake, winProbability decimal.Decimal) (repo.Wager, error)
}

// Leaderboard define a consulta de melhores apostas
type Leaderboard interface {
	BestWagers(ctx context.Context, limit int) ([]repo.Wager, error)
}

// Server expõe a API REST de apostas
type Server struct {
	log   *zap.Logger
	svc   Wagers
	board Leaderboard
	feed  http.Handler // opcional: websocket de vitórias
}

// NewServer instancia o servidor HTTP; feed pode ser nil
func NewServer(log *zap.Logger, svc Wagers, board Leaderboard, feed http.Handler) *Server {
	return &Server{log: log, svc: svc, board: board, feed: feed}
}

// Router retorna o roteador HTTP com os endpoints REST
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	r.Get("/v1/accounts", s.listAccounts)    // Lista contas
	r.Get("/v1/accounts/{id}", s.getAccount) // Conta por id
	r.Post("/v1/bets", s.placeBet)           // Coloca e liquida uma aposta
	r.Get("/v1/bets/{id}", s.getWager)       // Aposta por id
	r.Get("/v1/leaderboard", s.bestWagers)   // ?limit=N
	if s.feed != nil {
		r.Handle("/ws", s.feed) // feed de vitórias em tempo real
	}
	return r
}

// requestLog atribui um request id e registra método, rota, status e latência
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.log.Debug("http request",
			zap.String("requestId", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.ListAccounts(r.Context())
	if err != nil {
		s.internalError(w, "list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Accounts(accounts))
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	acc, err := s.svc.GetAccount(r.Context(), id)
	if errors.Is(err, repo.ErrAccountNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		s.internalError(w, "get account", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Account(acc))
}

func (s *Server) getWager(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wager, err := s.svc.GetWager(r.Context(), id)
	if errors.Is(err, repo.ErrWagerNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		s.internalError(w, "get wager", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Wager(wager))
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}

	wager, err := s.svc.PlaceBet(r.Context(), req.AccountID, req.Stake, req.WinProbability)
	if err != nil {
		var rej *service.Rejection
		if !errors.As(err, &rej) {
			rej = &service.Rejection{Reason: service.ReasonInternal}
		}
		writeJSON(w, rejectionStatus(rej.Reason), dto.RejectionResponse{Reason: string(rej.Reason)})
		return
	}
	writeJSON(w, http.StatusCreated, dto.Wager(wager))
}

// bestWagers responde null quando o limit é ausente, não numérico ou <= 0
func (s *Server) bestWagers(w http.ResponseWriter, r *http.Request) {
	limit := leaderboard.ParseLimit(r.URL.Query().Get("limit"))
	ws, err := s.board.BestWagers(r.Context(), limit)
	if err != nil {
		s.internalError(w, "best wagers", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.Wagers(ws))
}

// rejectionStatus mapeia o motivo para o status HTTP
func rejectionStatus(reason service.Reason) int {
	switch reason {
	case service.ReasonInvalidStake, service.ReasonInvalidProbability, service.ReasonInsufficientFunds:
		return http.StatusUnprocessableEntity
	case service.ReasonAccountNotFound:
		return http.StatusNotFound
	case service.ReasonConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// internalError loga o detalhe e devolve uma mensagem genérica
func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op+" failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
