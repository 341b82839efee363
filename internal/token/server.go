package token

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/metaconcert/meco/config"
	"github.com/metaconcert/meco/internal/observability"
	"github.com/metaconcert/meco/internal/poller"
)

// Server exposes a Token over HTTP and drives its background loops.
type Server struct {
	token     *Token
	cfg       *config.Config
	router    *mux.Router
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewServer creates a server and starts the block producer and, when
// enabled, the expiry reclaimer.
func NewServer(tok *Token, cfg *config.Config) *Server {
	s := newServer(tok, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.run(ctx, poller.NewPoller("block-producer", cfg.BlockTime(), s.produceBlock))
	if cfg.Reclaim.Enabled {
		s.run(ctx, poller.NewPoller("expiry-reclaimer", cfg.Reclaim.Interval, s.reclaimExpired))
	}
	return s
}

// NewServerForTest creates a server without background loops (for testing)
func NewServerForTest(tok *Token, cfg *config.Config) *Server {
	return newServer(tok, cfg)
}

func newServer(tok *Token, cfg *config.Config) *Server {
	s := &Server{
		token:  tok,
		cfg:    cfg,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) run(ctx context.Context, p *poller.Poller) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		p.Start(ctx)
	}()
}

// Router returns the HTTP router for testing
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) Token() *Token {
	return s.token
}

// Close stops the background loops and waits for them. It is idempotent
// and safe on servers created with NewServerForTest.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

// HTTPServer wraps the router in an http.Server listening on port.
func (s *Server) HTTPServer(port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) produceBlock(context.Context) error {
	block, err := s.token.ProduceBlock()
	if err != nil {
		return fmt.Errorf("produce block: %w", err)
	}
	if len(block.Receipts) > 0 {
		log.Info().
			Uint64("height", block.Height).
			Int("txs", len(block.Receipts)).
			Str("root", block.StateRoot.Hex()).
			Msg("Produced block")
	}
	return nil
}

func (s *Server) reclaimExpired(context.Context) error {
	holders, released, r := s.token.SweepExpired(s.cfg.Reclaim.MaxHolders)
	if r != nil {
		log.Info().
			Int("holders", holders).
			Int("released", released).
			Str("tx", r.TxHash.Hex()).
			Msg("Released expired locks")
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router.Use(observability.RequestMiddleware(log.Logger))

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")
	s.router.Handle("/metrics", observability.Handler()).Methods("GET")

	// ERC-20
	s.router.HandleFunc("/balance/{address}", s.handleGetBalance).Methods("GET")
	s.router.HandleFunc("/allowance/{owner}/{spender}", s.handleGetAllowance).Methods("GET")
	s.router.HandleFunc("/transfer", s.handleTransfer).Methods("POST")
	s.router.HandleFunc("/transfer-from", s.handleTransferFrom).Methods("POST")
	s.router.HandleFunc("/approve", s.handleApprove).Methods("POST")

	// Supply
	s.router.HandleFunc("/mint", s.handleMint).Methods("POST")
	s.router.HandleFunc("/mint/finish", s.handleFinishMint).Methods("POST")
	s.router.HandleFunc("/burn", s.handleBurn).Methods("POST")
	s.router.HandleFunc("/burn-from", s.handleBurnFrom).Methods("POST")

	// Gates and ownership
	s.router.HandleFunc("/pause", s.handlePause).Methods("POST")
	s.router.HandleFunc("/unpause", s.handleUnpause).Methods("POST")
	s.router.HandleFunc("/freeze", s.handleFreeze).Methods("POST")
	s.router.HandleFunc("/unfreeze", s.handleUnfreeze).Methods("POST")
	s.router.HandleFunc("/ownership/transfer", s.handleTransferOwnership).Methods("POST")
	s.router.HandleFunc("/ownership/renounce", s.handleRenounceOwnership).Methods("POST")

	// Locks
	s.router.HandleFunc("/lock", s.handleLock).Methods("POST")
	s.router.HandleFunc("/unlock", s.handleUnlock).Methods("POST")
	s.router.HandleFunc("/unlock-all", s.handleUnlockAll).Methods("POST")
	s.router.HandleFunc("/release-lock", s.handleReleaseLock).Methods("POST")
	s.router.HandleFunc("/transfer-with-lockup", s.handleTransferWithLockUp).Methods("POST")
	s.router.HandleFunc("/locks/{address}", s.handleGetLocks).Methods("GET")
	s.router.HandleFunc("/locks/{address}/{index}", s.handleGetLockInfo).Methods("GET")
	s.router.HandleFunc("/check-lock/{address}/{amount}", s.handleCheckLock).Methods("GET")

	// Chain
	s.router.HandleFunc("/receipt/{hash}", s.handleGetReceipt).Methods("GET")
	s.router.HandleFunc("/block/latest", s.handleLatestBlock).Methods("GET")
}
