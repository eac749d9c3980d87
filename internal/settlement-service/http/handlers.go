package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/settlement-service/dto"
	"github.com/radieske/parimutuel-settlement/internal/shared/units"
)

// info retorna os endereços dos componentes e a sequência atual
func (s *Server) info(w http.ResponseWriter, _ *http.Request) {
	a := s.eng.Addresses()
	writeJSON(w, http.StatusOK, dto.InfoResponse{
		Owner:      s.eng.Owner().Hex(),
		Reserve:    a.Reserve.Hex(),
		Settlement: a.Settlement.Hex(),
		Oracle:     a.Oracle.Hex(),
		Operator:   s.eng.Operator().Hex(),
		Seq:        s.eng.Sequence(),
		Faucet:     s.eng.FaucetEnabled(),
	})
}

// deposit credita o valor anexado no saldo do chamador
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.AmountRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc, err := s.eng.Deposit(r.Context(), caller, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountTxResponse{Tx: txResponse(rc), BalanceResponse: balanceResponse(caller, s.eng.Balance(caller))})
}

// withdraw devolve saldo do chamador para a carteira dele
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.AmountRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc, err := s.eng.Withdraw(r.Context(), caller, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountTxResponse{Tx: txResponse(rc), BalanceResponse: balanceResponse(caller, s.eng.Balance(caller))})
}

func (s *Server) payout(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.PayoutRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.AmountRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc, err := s.eng.Payout(r.Context(), caller, recipient, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txResponse(rc))
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse(addr, s.eng.Balance(addr)))
}

func (s *Server) wallet(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse(addr, s.eng.WalletBalance(addr)))
}

// liquidity retorna a foto da custódia da reserva
func (s *Server) liquidity(w http.ResponseWriter, _ *http.Request) {
	st := s.eng.ReserveState()
	writeJSON(w, http.StatusOK, dto.ReserveResponse{
		Owner:        st.Owner.Hex(),
		Settlement:   st.Settlement.Hex(),
		LiquidityWei: st.Liquidity.Dec(),
		Liquidity:    units.FormatEther(st.Liquidity),
		EscrowWei:    st.Escrow.Dec(),
		RetainedWei:  st.Retained.Dec(),
		HoldingsWei:  st.Holdings.Dec(),
	})
}

func (s *Server) setSettlement(w http.ResponseWriter, r *http.Request) {
	s.bind(w, r, s.eng.SetSettlement)
}

func (s *Server) setOracle(w http.ResponseWriter, r *http.Request) {
	s.bind(w, r, s.eng.SetOracle)
}

func (s *Server) setOperator(w http.ResponseWriter, r *http.Request) {
	s.bind(w, r, s.eng.SetOperator)
}

type bindFunc func(ctx context.Context, caller, addr common.Address) (*chain.Receipt, error)

// bind trata os três vínculos owner-only que recebem um endereço
func (s *Server) bind(w http.ResponseWriter, r *http.Request, op bindFunc) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.AddressRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc, err := op(r.Context(), caller, addr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txResponse(rc))
}

func (s *Server) releaseRetained(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	released, rc, err := s.eng.ReleaseRetained(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReleaseResponse{Tx: txResponse(rc), ReleasedWei: released.Dec()})
}

// placeBet registra a aposta do chamador; o stake sai da carteira dele
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	eventID, err := eventParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.BetRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stake, err := parseAmount(req.AmountRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc, err := s.eng.PlaceBet(r.Context(), caller, eventID, outcome, stake)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.BetResponse{
		Tx:       txResponse(rc),
		EventID:  uint64(eventID),
		Outcome:  outcome.String(),
		StakeWei: stake.Dec(),
	})
}

// resolveEvent liquida o evento com o resultado do feed
func (s *Server) resolveEvent(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	eventID, err := eventParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, rc, err := s.eng.ResolveEvent(r.Context(), caller, eventID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := dto.ResolutionResponse{
		Tx:              txResponse(rc),
		EventID:         uint64(res.EventID),
		Winner:          res.Winner.String(),
		TotalStakedWei:  res.TotalStaked.Dec(),
		WinningStakeWei: res.WinningStake.Dec(),
		PaidWei:         res.Paid.Dec(),
		DustWei:         res.Dust.Dec(),
		Payouts:         make([]dto.PayoutItem, 0, len(res.Payouts)),
	}
	for _, p := range res.Payouts {
		out.Payouts = append(out.Payouts, dto.PayoutItem{Bettor: p.Bettor.Hex(), AmountWei: p.Amount.Dec()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sum := s.eng.EventSummary(eventID)
	out := dto.EventResponse{
		EventID:   uint64(eventID),
		TotalsWei: make(map[string]string, len(sum.Totals)),
		TotalWei:  sum.Total.Dec(),
		Bettors:   sum.Bettors,
		Resolved:  sum.Resolved,
	}
	for i, t := range sum.Totals {
		out.TotalsWei[domain.Outcome(i).String()] = t.Dec()
	}
	if sum.Winner != nil {
		name := sum.Winner.String()
		out.Winner = &name
	}
	if o, err := s.eng.Result(eventID); err == nil {
		name := o.String()
		out.Result = &name
	}
	writeJSON(w, http.StatusOK, out)
}

// setResult grava o resultado no feed (operador)
func (s *Server) setResult(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	eventID, err := eventParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.ResultRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc, err := s.eng.SetResult(r.Context(), caller, eventID, outcome)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tx := txResponse(rc)
	writeJSON(w, http.StatusOK, dto.ResultResponse{EventID: uint64(eventID), Outcome: outcome.String(), Tx: &tx})
}

func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	o, err := s.eng.Result(eventID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ResultResponse{EventID: uint64(eventID), Outcome: o.String()})
}

// stakes retorna o stake de um apostador em cada resultado do evento
func (s *Server) stakes(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	addr, err := addressParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make(map[string]string, domain.OutcomeCount)
	for o := domain.Outcome(0); o.Valid(); o++ {
		out[o.String()] = s.eng.StakeOf(eventID, o, addr).Dec()
	}
	writeJSON(w, http.StatusOK, out)
}

// prize projeta o prêmio: GET /v1/prize?stake=1.5&outcomes=3 (ou stake_wei)
func (s *Server) prize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stake, err := parseAmount(dto.AmountRequest{Amount: q.Get("stake"), AmountWei: q.Get("stake_wei")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	count := uint64(domain.OutcomeCount)
	if v := q.Get("outcomes"); v != "" {
		count, err = strconv.ParseUint(v, 10, 8)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: outcomes %q", domain.ErrInvalidOutcome, v))
			return
		}
	}
	prize, err := s.eng.PotentialPrize(stake, uint8(count))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PrizeResponse{
		StakeWei:     stake.Dec(),
		OutcomeCount: uint8(count),
		PrizeWei:     prize.Dec(),
		Prize:        units.FormatEther(prize),
	})
}

// faucet credita saldo nativo (só em dev)
func (s *Server) faucet(w http.ResponseWriter, r *http.Request) {
	var req dto.FaucetRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.AmountRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc, err := s.eng.Fund(r.Context(), addr, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountTxResponse{Tx: txResponse(rc), BalanceResponse: balanceResponse(addr, s.eng.WalletBalance(addr))})
}
