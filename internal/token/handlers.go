package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"

	"github.com/metaconcert/meco/internal/lockable"
	"github.com/metaconcert/meco/internal/protocol"
)

const codeBadRequest = "BadRequest"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Int("status", status).Msg("Failed to write response")
	}
}

// statusFor maps a call error to an HTTP status: 403 for authorization
// failures, 400 for anything else the ledger rejected, 500 otherwise.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lockable.ErrUnauthorized):
		return http.StatusForbidden
	case Code(err) != "":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, protocol.TxResponse{Success: false, Error: err.Error(), Code: code})
}

func writeCallError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), Code(err), err)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, codeBadRequest, err)
}

// writeTx answers a mutating call with its receipt hash or its error.
func writeTx(w http.ResponseWriter) func(*Receipt, error) {
	return func(receipt *Receipt, err error) {
		if err != nil {
			writeCallError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, protocol.TxResponse{Success: true, TxHash: &receipt.TxHash})
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, fmt.Errorf("decode request: %w", err))
		return false
	}
	return true
}

func parseAmount(w http.ResponseWriter, s string) (*uint256.Int, bool) {
	v, err := protocol.ParseAmount(s)
	if err != nil {
		writeBadRequest(w, err)
		return nil, false
	}
	return v, true
}

func pathAddress(w http.ResponseWriter, r *http.Request, name string) (common.Address, bool) {
	raw := mux.Vars(r)[name]
	if !common.IsHexAddress(raw) {
		writeBadRequest(w, fmt.Errorf("invalid %s address %q", name, raw))
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	t := s.token
	writeJSON(w, http.StatusOK, protocol.InfoResponse{
		Name:            t.Name(),
		Symbol:          t.Symbol(),
		Decimals:        t.Decimals(),
		TotalSupply:     t.TotalSupply().Dec(),
		Owner:           t.Owner(),
		Paused:          t.Paused(),
		MintingFinished: t.MintingFinished(),
		Height:          t.Head().Height,
		Now:             t.Now(),
	})
}

// ---- ERC-20 ----

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, protocol.BalanceResponse{
		Address:   addr,
		Balance:   s.token.BalanceOf(addr).Dec(),
		Spendable: s.token.Spendable(addr).Dec(),
		Frozen:    s.token.IsFrozen(addr),
	})
}

func (s *Server) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "owner")
	if !ok {
		return
	}
	spender, ok := pathAddress(w, r, "spender")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, protocol.AllowanceResponse{
		Owner:     owner,
		Spender:   spender,
		Allowance: s.token.Allowance(owner, spender).Dec(),
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req protocol.TransferRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	writeTx(w)(s.token.Transfer(req.Caller, req.To, amount))
}

func (s *Server) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	var req protocol.TransferFromRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	writeTx(w)(s.token.TransferFrom(req.Caller, req.From, req.To, amount))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req protocol.ApproveRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	writeTx(w)(s.token.Approve(req.Caller, req.Spender, amount))
}

// ---- supply ----

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req protocol.MintRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	writeTx(w)(s.token.Mint(req.Caller, req.To, amount))
}

func (s *Server) handleFinishMint(w http.ResponseWriter, r *http.Request) {
	var req protocol.CallerRequest
	if !decode(w, r, &req) {
		return
	}
	writeTx(w)(s.token.FinishMint(req.Caller))
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req protocol.BurnRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	writeTx(w)(s.token.Burn(req.Caller, amount))
}

func (s *Server) handleBurnFrom(w http.ResponseWriter, r *http.Request) {
	var req protocol.BurnFromRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	writeTx(w)(s.token.BurnFrom(req.Caller, req.From, amount))
}

// ---- gates and ownership ----

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req protocol.CallerRequest
	if !decode(w, r, &req) {
		return
	}
	writeTx(w)(s.token.Pause(req.Caller))
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	var req protocol.CallerRequest
	if !decode(w, r, &req) {
		return
	}
	writeTx(w)(s.token.Unpause(req.Caller))
}

func (s *Server) handleFreeze(w http.ResponseWriter, r *http.Request) {
	var req protocol.TargetRequest
	if !decode(w, r, &req) {
		return
	}
	writeTx(w)(s.token.Freeze(req.Caller, req.Target))
}

func (s *Server) handleUnfreeze(w http.ResponseWriter, r *http.Request) {
	var req protocol.TargetRequest
	if !decode(w, r, &req) {
		return
	}
	writeTx(w)(s.token.Unfreeze(req.Caller, req.Target))
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req protocol.TargetRequest
	if !decode(w, r, &req) {
		return
	}
	writeTx(w)(s.token.TransferOwnership(req.Caller, req.Target))
}

func (s *Server) handleRenounceOwnership(w http.ResponseWriter, r *http.Request) {
	var req protocol.CallerRequest
	if !decode(w, r, &req) {
		return
	}
	writeTx(w)(s.token.RenounceOwnership(req.Caller))
}

// ---- locks ----

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req protocol.LockRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	writeTx(w)(s.token.Lock(req.Caller, req.Holder, amount, req.Due))
}

func (s *Server) handleTransferWithLockUp(w http.ResponseWriter, r *http.Request) {
	var req protocol.TransferWithLockUpRequest
	if !decode(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}
	writeTx(w)(s.token.TransferWithLockUp(req.Caller, req.To, amount, req.Due))
}

// handleUnlock answers a pending entry with 200 and unlocked=false: asking
// too early is an expected outcome, not a failure.
func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req protocol.UnlockRequest
	if !decode(w, r, &req) {
		return
	}
	receipt, err := s.token.Unlock(req.Caller, req.Holder, req.Index)
	unlocked := err == nil
	switch {
	case errors.Is(err, lockable.ErrLockNotDue):
		writeJSON(w, http.StatusOK, protocol.TxResponse{
			Success:  true,
			Unlocked: &unlocked,
			Error:    err.Error(),
			Code:     Code(err),
		})
	case err != nil:
		writeCallError(w, err)
	default:
		writeJSON(w, http.StatusOK, protocol.TxResponse{
			Success:  true,
			TxHash:   &receipt.TxHash,
			Unlocked: &unlocked,
		})
	}
}

func (s *Server) handleUnlockAll(w http.ResponseWriter, r *http.Request) {
	var req protocol.HolderRequest
	if !decode(w, r, &req) {
		return
	}
	writeReleased(w)(s.token.UnlockAll(req.Caller, req.Holder))
}

func (s *Server) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	var req protocol.HolderRequest
	if !decode(w, r, &req) {
		return
	}
	writeReleased(w)(s.token.ReleaseLock(req.Caller, req.Holder))
}

func writeReleased(w http.ResponseWriter) func(int, *Receipt, error) {
	return func(released int, receipt *Receipt, err error) {
		if err != nil {
			writeCallError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, protocol.TxResponse{
			Success:  true,
			TxHash:   &receipt.TxHash,
			Released: &released,
		})
	}
}

func (s *Server) handleGetLocks(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	total, count := s.token.TotalLocked(addr)
	entries := s.token.LockEntries(addr)
	resp := protocol.LocksResponse{
		Address:   addr,
		Total:     total.Dec(),
		Count:     count,
		Spendable: s.token.Spendable(addr).Dec(),
		Entries:   make([]protocol.LockEntry, len(entries)),
	}
	for i, e := range entries {
		resp.Entries[i] = protocol.LockEntry{Index: i, Amount: e.Amount.Dec(), Due: e.Due}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLockInfo(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeBadRequest(w, fmt.Errorf("invalid index: %w", err))
		return
	}
	amount, due, err := s.token.LockInfo(addr, index)
	if err != nil {
		writeCallError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.LockInfoResponse{
		Address:   addr,
		LockEntry: protocol.LockEntry{Index: index, Amount: amount.Dec(), Due: due},
	})
}

func (s *Server) handleCheckLock(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	amount, ok := parseAmount(w, mux.Vars(r)["amount"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, protocol.CheckLockResponse{
		Address: addr,
		Amount:  amount.Dec(),
		Allowed: s.token.CheckLock(addr, amount),
	})
}

// ---- chain ----

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt := s.token.Receipt(common.HexToHash(mux.Vars(r)["hash"]))
	if receipt == nil {
		http.Error(w, "receipt not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleLatestBlock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.token.Head())
}
